package sqlxrepos_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core/lesson"
	"github.com/trezcool/lessondesk/core/sheet"
	sqlxrepos "github.com/trezcool/lessondesk/storage/database/sqlx"
	"github.com/trezcool/lessondesk/tests"
)

func TestSheetStore(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewSheetStore(testutil.PrepareDB(t))

	testutil.SeedWorkbook(t, store)
	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.RosterTable, testutil.LedgerTable}, tables)
	assert.True(t, errors.Is(store.CreateTable(ctx, testutil.RosterTable), sheet.ErrTableExists))

	got, err := store.ReadTable(ctx, testutil.LedgerTable)
	require.NoError(t, err)
	if diff := cmp.Diff(testutil.Ledger(), got); diff != "" {
		t.Errorf("ReadTable() mismatch (-want +got):\n%s", diff)
	}

	t.Run("blank cells are not stored", func(t *testing.T) {
		require.NoError(t, store.WriteCells(ctx, testutil.LedgerTable, []sheet.CellUpdate{
			{Row: 3, Col: 3, Value: ""},
			{Row: 2, Col: 4, Value: "/"},
		}))
		v, err := store.ReadCell(ctx, testutil.LedgerTable, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, "", v)
		v, _ = store.ReadCell(ctx, testutil.LedgerTable, 2, 4)
		assert.Equal(t, "/", v)
		v, err = store.ReadCell(ctx, testutil.LedgerTable, 99, 99)
		require.NoError(t, err)
		assert.Equal(t, "", v)
	})

	t.Run("insert and delete rows", func(t *testing.T) {
		require.NoError(t, store.InsertRows(ctx, testutil.RosterTable, 1, 2))
		g, _ := store.ReadTable(ctx, testutil.RosterTable)
		assert.Equal(t, "First", g.Get(0, 0))
		assert.Equal(t, "", g.Get(1, 0))
		assert.Equal(t, "Ann", g.Get(3, 0))
		assert.Equal(t, "Bo", g.Get(5, 0))

		require.NoError(t, store.DeleteRows(ctx, testutil.RosterTable, 1, 2))
		g, _ = store.ReadTable(ctx, testutil.RosterTable)
		if diff := cmp.Diff(testutil.Roster(), g); diff != "" {
			t.Errorf("ReadTable() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rename replaces the destination", func(t *testing.T) {
		testutil.SeedTable(t, store, "Roster~staging", sheet.Grid{{"First", "Last"}, {"Di", "Fox"}})
		require.NoError(t, store.RenameTable(ctx, "Roster~staging", testutil.RosterTable))

		g, err := store.ReadTable(ctx, testutil.RosterTable)
		require.NoError(t, err)
		assert.Equal(t, sheet.Grid{{"First", "Last"}, {"Di", "Fox"}}, g)
		ok, _ := store.HasTable(ctx, "Roster~staging")
		assert.False(t, ok)
	})

	t.Run("clear and delete", func(t *testing.T) {
		require.NoError(t, store.ClearTable(ctx, testutil.RosterTable))
		g, err := store.ReadTable(ctx, testutil.RosterTable)
		require.NoError(t, err)
		assert.Empty(t, g)

		require.NoError(t, store.DeleteTable(ctx, testutil.RosterTable))
		_, err = store.ReadTable(ctx, testutil.RosterTable)
		assert.True(t, errors.Is(err, sheet.ErrTableNotFound))
		assert.True(t, errors.Is(store.WriteCells(ctx, testutil.RosterTable, nil), sheet.ErrTableNotFound))
	})
}

func TestSheetStore_replace(t *testing.T) {
	ctx := context.Background()
	store := sqlxrepos.NewSheetStore(testutil.PrepareDB(t))
	testutil.SeedWorkbook(t, store)

	src := sheet.Grid{{"First", "Last", "Program"}}
	for i := 1; i < 1200; i++ {
		src = append(src, []string{fmt.Sprintf("First%04d", i), fmt.Sprintf("Last%04d", i), "Level 2"})
	}
	writer := sheet.NewBatchWriter(sheet.RowLimit(store, 500), sheet.BatchOptions{ChunkSize: 500}, testutil.NewLogger(t))

	report, err := writer.Replace(ctx, testutil.RosterTable, src)
	require.NoError(t, err)
	assert.Equal(t, 1200, report.Rows)
	assert.Equal(t, 3, report.Batches)

	got, err := store.ReadTable(ctx, testutil.RosterTable)
	require.NoError(t, err)
	assert.Equal(t, len(src), got.Rows())
}

// The whole sync engine runs unchanged over the SQL store.
func TestSheetStore_service(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	store := sqlxrepos.NewSheetStore(db)
	testutil.SeedWorkbook(t, store)

	conf := testutil.NewConfig(t)
	settings, err := lesson.NewSettings(ctx, conf, sheet.NewPropertyTable(store, conf.Sheets.Properties))
	require.NoError(t, err)
	svc := lesson.NewService(lesson.Deps{
		Settings: settings,
		Workbook: store,
		History:  sqlxrepos.NewHistoryRepository(db),
		Logger:   testutil.NewLogger(t),
	})

	snap, _, err := svc.SelectClass(ctx, testutil.Selector, testutil.Actor)
	require.NoError(t, err)
	float, ok := snap.Layout.Skill("S1-Float")
	require.True(t, ok)
	assert.Equal(t, "X", snap.Grid.Get(lesson.FirstStudentRow, float.Col))

	_, err = svc.EditMarks(ctx, []lesson.MarkEdit{{First: "Ann", Last: "Lee", Skill: "SAW-Glide", Value: lesson.MarkIntroduced}})
	require.NoError(t, err)
	sum, err := svc.Push(ctx, testutil.Actor)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.New)
	assert.Equal(t, 0, sum.Updated)

	v, err := store.ReadCell(ctx, testutil.LedgerTable, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "/", v)

	entries, err := svc.History(ctx, lesson.HistoryFilter{Kind: lesson.HistoryPush})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].New)
}
