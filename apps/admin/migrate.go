package main

import (
	"github.com/trezcool/goose"

	"github.com/trezcool/lessondesk/fs"
	"github.com/trezcool/lessondesk/storage/database"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.app.DB == nil {
		return errNoDB
	}
	if err := goose.SetDialect(database.Dialect(cli.app.DB)); err != nil {
		return err
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.app.DB.DB, appfs.FS, "migrations", arguments...)
}
