package main

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/trezcool/lessondesk/apps/shared"
	"github.com/trezcool/lessondesk/core"
	logsvc "github.com/trezcool/lessondesk/services/logger"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewConsoleZap(conf.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewZapLogger(zl.Named("admin"))
	defer func() { _ = logger.Sync() }()

	app, err := shared.Bootstrap(context.Background(), conf, logger, newTerminalPrompter(os.Stdin, os.Stdout))
	if err != nil {
		logger.Fatal("bootstrap failed", err)
	}

	// start CLI
	cli := commandLine{
		app:   app,
		out:   os.Stdout,
		actor: currentActor(),
	}
	err = cli.run(os.Args)
	if cErr := app.Close(); cErr != nil {
		logger.Error("closing stores", cErr)
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
			if vErr, ok := core.AsValidationError(err); ok {
				fmt.Fprint(os.Stderr, vErr.Details())
			}
		}
		os.Exit(1)
	}
}

// currentActor names the operating system user running the CLI.
func currentActor() core.Actor {
	usr, err := user.Current()
	if err != nil {
		return core.Actor{ID: "admin", Name: "admin"}
	}
	name := usr.Name
	if name == "" {
		name = usr.Username
	}
	return core.Actor{ID: usr.Uid, Name: name}
}
