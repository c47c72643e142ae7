// Package shared wires the stores, settings and sync service shared by the admin CLI and the API.
package shared

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	"github.com/trezcool/lessondesk/core/sheet"
	"github.com/trezcool/lessondesk/storage/database"
	dummydb "github.com/trezcool/lessondesk/storage/database/dummy"
	sqlxrepos "github.com/trezcool/lessondesk/storage/database/sqlx"
	dummysheet "github.com/trezcool/lessondesk/storage/sheets/dummy"
	xlsxsheet "github.com/trezcool/lessondesk/storage/sheets/xlsx"
)

// App holds everything a running app needs. Close it when done.
type App struct {
	Conf     *core.Config
	Settings lesson.Settings
	Props    core.PropertyStore
	Workbook sheet.Store
	Service  *lesson.Service
	// DB is nil with the memory backend.
	DB *sqlx.DB

	logger  core.Logger
	closers []func() error
}

// Bootstrap opens the configured stores and builds the sync service.
// A nil `prompter` declines every confirmation.
func Bootstrap(ctx context.Context, conf *core.Config, logger core.Logger, prompter core.Prompter) (*App, error) {
	app := &App{Conf: conf, logger: logger}
	if err := app.setUp(ctx, prompter); err != nil {
		if cErr := app.Close(); cErr != nil {
			logger.Error("bootstrap: closing stores", cErr)
		}
		return nil, err
	}
	return app, nil
}

func (app *App) setUp(ctx context.Context, prompter core.Prompter) error {
	conf := app.Conf

	var history lesson.History
	switch conf.Storage.Backend {
	case core.BackendMemory:
		mem, err := dummydb.Open()
		if err != nil {
			return errors.Wrap(err, "opening memory database")
		}
		history = dummydb.NewHistoryRepository(mem)
	default:
		db, err := OpenDB(conf)
		if err != nil {
			return err
		}
		app.DB = db
		app.closers = append(app.closers, db.Close)
		history = sqlxrepos.NewHistoryRepository(db)
	}

	workbook, err := app.openWorkbook(conf.Storage.WorkbookPath)
	if err != nil {
		return err
	}
	app.Workbook = app.limit(workbook)
	app.Props = sheet.NewPropertyTable(app.Workbook, conf.Sheets.Properties)

	app.Settings, err = lesson.NewSettings(ctx, conf, app.Props)
	if err != nil {
		return errors.Wrap(err, "loading settings")
	}

	var ledger sheet.Store
	if ref := app.Settings.Ledger; ref.Workbook != "" {
		if conf.Storage.Backend != core.BackendXLSX {
			return errors.Errorf("ledger %q: a separate ledger workbook needs the %s backend", ref, core.BackendXLSX)
		}
		path := core.ResolvePath(conf.Storage.WorkbookPath, ref.Workbook)
		store, err := xlsxsheet.Open(path)
		if err != nil {
			return errors.Wrapf(err, "opening ledger workbook %q", path)
		}
		app.closers = append(app.closers, store.Close)
		ledger = app.limit(store)
		app.logger.Info(fmt.Sprintf("bootstrap: ledger %q", ref))
	}

	app.Service = lesson.NewService(lesson.Deps{
		Settings: app.Settings,
		Workbook: app.Workbook,
		Ledger:   ledger,
		History:  history,
		Prompter: prompter,
		Logger:   app.logger,
	})
	return nil
}

func (app *App) openWorkbook(path string) (sheet.Store, error) {
	switch app.Conf.Storage.Backend {
	case core.BackendXLSX:
		store, err := xlsxsheet.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening workbook %q", path)
		}
		app.closers = append(app.closers, store.Close)
		return store, nil
	case core.BackendSQL:
		return sqlxrepos.NewSheetStore(app.DB), nil
	case core.BackendMemory:
		return dummysheet.New(), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", app.Conf.Storage.Backend)
	}
}

func (app *App) limit(store sheet.Store) sheet.Store {
	if max := app.Conf.Batch.MaxRowsPerCall; max > 0 {
		return sheet.RowLimit(store, max)
	}
	return store
}

// Close closes the stores in reverse opening order.
func (app *App) Close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	app.closers = nil
	return firstErr
}

// OpenDB opens the configured database, creating and migrating it as needed.
func OpenDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
