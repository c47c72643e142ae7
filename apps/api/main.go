package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	echoapi "github.com/trezcool/lessondesk/apps/api/echo"
	"github.com/trezcool/lessondesk/apps/shared"
	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	logsvc "github.com/trezcool/lessondesk/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewConsoleZap(conf.Debug)
	if err != nil {
		panic(err)
	}
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(zl, "api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Flush()

	// set up stores & services
	prompter := echoapi.NewLogPrompter(logger)
	app, err := shared.Bootstrap(context.Background(), conf, logger, prompter)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up stores: %v", err), err)
	}
	defer func() {
		if err = app.Close(); err != nil {
			logger.Error("Failed to close stores", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()
	dispatcher := lesson.NewDispatcher(app.Service, prompter, logger)

	if out := dispatcher.Dispatch(context.Background(), lesson.SystemOpened{Actor: core.Actor{ID: "api", Name: conf.AppName}}); out.Err != nil {
		logger.Fatal(fmt.Sprintf("opening workbook: %v", out.Err), out.Err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("backend").Set(conf.Storage.Backend)
	expvar.NewString("ledger").Set(app.Settings.Ledger.String())
	expvar.Publish("view_state", expvar.Func(func() interface{} { return app.Service.State().String() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Service:    app.Service,
			Dispatcher: dispatcher,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
