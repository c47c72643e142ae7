package shared

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	"github.com/trezcool/lessondesk/tests"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		configure func(conf *core.Config, dir string)
		wantDB    bool
	}{
		{
			name:      "memory",
			configure: func(conf *core.Config, _ string) { conf.Storage.Backend = core.BackendMemory },
		},
		{
			name: "xlsx",
			configure: func(conf *core.Config, dir string) {
				conf.Storage.Backend = core.BackendXLSX
				conf.Storage.WorkbookPath = filepath.Join(dir, "lessons.xlsx")
				conf.Database.Path = filepath.Join(dir, "lessondesk.db")
			},
			wantDB: true,
		},
		{
			name: "sql",
			configure: func(conf *core.Config, dir string) {
				conf.Storage.Backend = core.BackendSQL
				conf.Database.Path = filepath.Join(dir, "lessondesk.db")
				conf.Batch.MaxRowsPerCall = 100
			},
			wantDB: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig(t)
			conf.Batch.Pause = 0
			tt.configure(conf, t.TempDir())

			app, err := Bootstrap(ctx, conf, testutil.NewLogger(t), nil)
			if err != nil {
				t.Fatalf("Bootstrap() error = %v", err)
			}
			defer func() { assert.NoError(t, app.Close()) }()
			assert.Equal(t, tt.wantDB, app.DB != nil)

			testutil.SeedWorkbook(t, app.Workbook)
			require.NoError(t, app.Service.Open(ctx, testutil.Actor))

			_, sum, err := app.Service.SelectClass(ctx, testutil.Selector, testutil.Actor)
			require.NoError(t, err)
			assert.Equal(t, 2, sum.Students)

			entries, err := app.Service.History(ctx, lesson.HistoryFilter{})
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
}

func TestBootstrap_ledgerWorkbook(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	conf := testutil.NewConfig(t)
	conf.Storage.Backend = core.BackendXLSX
	conf.Storage.WorkbookPath = filepath.Join(dir, "lessons.xlsx")
	conf.Database.Path = filepath.Join(dir, "lessondesk.db")

	app, err := Bootstrap(ctx, conf, testutil.NewLogger(t), nil)
	require.NoError(t, err)
	require.NoError(t, app.Props.SetProperty(ctx, lesson.PropLedgerRef, "ledger.xlsx#Marks"))
	require.NoError(t, app.Close())

	app, err = Bootstrap(ctx, conf, testutil.NewLogger(t), nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close()) }()

	assert.Equal(t, lesson.LedgerRef{Workbook: "ledger.xlsx", Table: "Marks"}, app.Settings.Ledger)
	assert.Equal(t, "Marks", app.Settings.LedgerTable)
	assert.FileExists(t, filepath.Join(dir, "ledger.xlsx"))

	_, err = app.Service.Taxonomy(ctx)
	assert.True(t, lesson.IsMissingDependency(err), "Taxonomy() error = %v, want a missing dependency", err)
}

func TestBootstrap_ledgerWorkbookNeedsXLSX(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	conf := testutil.NewConfig(t)
	conf.Storage.Backend = core.BackendSQL
	conf.Database.Path = filepath.Join(dir, "lessondesk.db")

	app, err := Bootstrap(ctx, conf, testutil.NewLogger(t), nil)
	require.NoError(t, err)
	require.NoError(t, app.Props.SetProperty(ctx, lesson.PropLedgerRef, "ledger.xlsx#Marks"))
	require.NoError(t, app.Close())

	_, err = Bootstrap(ctx, conf, testutil.NewLogger(t), nil)
	assert.Error(t, err)
}
