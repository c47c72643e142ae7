package main

import (
	"fmt"

	echoapi "github.com/trezcool/lessondesk/apps/api/echo"
	"github.com/trezcool/lessondesk/core"
)

// token prints a signed API token for `actor`.
func (cli *commandLine) token(actor core.Actor) error {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(actor, cli.app.Conf), cli.app.Conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
