package sheet_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/lessondesk/core/sheet"
	logsvc "github.com/trezcool/lessondesk/services/logger"
	"github.com/trezcool/lessondesk/storage/sheets/dummy"
	"github.com/trezcool/lessondesk/storage/sheets/xlsx"
)

func sourceGrid(rows int) sheet.Grid {
	g := make(sheet.Grid, 0, rows)
	for i := 0; i < rows; i++ {
		g = append(g, []string{fmt.Sprintf("First%04d", i), fmt.Sprintf("Last%04d", i), "Level 2"})
	}
	return g
}

func newWriter(t *testing.T, store sheet.Store, chunk int) *sheet.BatchWriter {
	return sheet.NewBatchWriter(store, sheet.BatchOptions{ChunkSize: chunk}, logsvc.NewZapLogger(zaptest.NewLogger(t)))
}

func TestBatchWriter_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("1200 rows under a 500 rows per call limit", func(t *testing.T) {
		mem := dummysheet.New()
		mem.Seed("Imported", sheet.Grid{{"stale"}, {"stale"}})
		store := sheet.RowLimit(mem, 500)
		src := sourceGrid(1200)

		report, err := newWriter(t, store, 500).Replace(ctx, "Imported", src)
		require.NoError(t, err)

		assert.Equal(t, 1200, report.Rows)
		assert.Equal(t, 3, report.Batches)
		assert.LessOrEqual(t, mem.Stats().MaxRowsPerCall, 500)
		assert.Equal(t, 1, mem.Stats().Renames)

		got, err := store.ReadTable(ctx, "Imported")
		require.NoError(t, err)
		if diff := cmp.Diff(src, got); diff != "" {
			t.Errorf("Replace() mismatch (-want +got):\n%s", diff)
		}
		tables, _ := store.Tables(ctx)
		assert.NotContains(t, tables, "Imported"+sheet.StagingSuffix)
	})

	t.Run("chunk larger than the row limit fails without touching the destination", func(t *testing.T) {
		mem := dummysheet.New()
		old := sheet.Grid{{"old", "data"}}
		mem.Seed("Imported", old)
		store := sheet.RowLimit(mem, 100)

		_, err := newWriter(t, store, 500).Replace(ctx, "Imported", sourceGrid(300))
		require.Error(t, err)
		assert.True(t, errors.Is(err, sheet.ErrTooManyRows))

		got, err := store.ReadTable(ctx, "Imported")
		require.NoError(t, err)
		assert.Equal(t, old, got)
		exists, _ := store.HasTable(ctx, "Imported"+sheet.StagingSuffix)
		assert.False(t, exists, "staging table should be dropped")
	})

	t.Run("rate limit mid-way keeps the old table", func(t *testing.T) {
		mem := dummysheet.New()
		old := sheet.Grid{{"old"}}
		mem.Seed("Imported", old)
		mem.FailWriteAfter(2, sheet.ErrRateLimited)

		_, err := newWriter(t, mem, 100).Replace(ctx, "Imported", sourceGrid(350))
		require.Error(t, err)
		assert.True(t, errors.Is(err, sheet.ErrRateLimited))

		got, _ := mem.ReadTable(ctx, "Imported")
		assert.Equal(t, old, got)
	})

	t.Run("stale staging table is replaced", func(t *testing.T) {
		mem := dummysheet.New()
		mem.Seed("Imported"+sheet.StagingSuffix, sheet.Grid{{"half", "written"}})

		report, err := newWriter(t, mem, 10).Replace(ctx, "Imported", sourceGrid(25))
		require.NoError(t, err)
		assert.Equal(t, 25, report.Rows)
		assert.Equal(t, 3, report.Batches)
	})

	t.Run("long destination name on a workbook", func(t *testing.T) {
		book := xlsxsheet.New()
		dest := "Skills Ledger Imported 2024-25" // 30 characters
		require.NoError(t, book.CreateTable(ctx, dest))

		_, err := newWriter(t, book, 10).Replace(ctx, dest, sourceGrid(12))
		require.NoError(t, err)

		got, err := book.ReadTable(ctx, dest)
		require.NoError(t, err)
		assert.Len(t, got, 12)
		exists, _ := book.HasTable(ctx, sheet.StagingName(dest))
		assert.False(t, exists)
	})

	t.Run("new destination", func(t *testing.T) {
		mem := dummysheet.New()
		_, err := newWriter(t, mem, 10).Replace(ctx, "Fresh", sourceGrid(4))
		require.NoError(t, err)
		got, _ := mem.ReadTable(ctx, "Fresh")
		assert.Len(t, got, 4)
	})
}

func TestBatchWriter_WriteCells(t *testing.T) {
	ctx := context.Background()
	mem := dummysheet.New()
	mem.Seed("Ledger", sheet.NewGrid(10, 4))

	cells := []sheet.CellUpdate{
		{Row: 5, Col: 1, Value: "X"},
		{Row: 1, Col: 2, Value: "/"},
		{Row: 1, Col: 3, Value: "X"},
		{Row: 3, Col: 2, Value: "X"},
		{Row: 9, Col: 0, Value: "X"},
	}
	report, err := newWriter(t, sheet.RowLimit(mem, 2), 2).WriteCells(ctx, "Ledger", cells)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Batches)
	assert.LessOrEqual(t, mem.Stats().MaxRowsPerCall, 2)

	got, _ := mem.ReadTable(ctx, "Ledger")
	for _, c := range cells {
		assert.Equal(t, c.Value, got.Get(c.Row, c.Col))
	}
}

func TestBatchWriter_WriteRows(t *testing.T) {
	ctx := context.Background()
	mem := dummysheet.New()
	mem.Seed("View", sheet.Grid{{"Class:", "Level 2 Monday 4:00"}})

	report, err := newWriter(t, mem, 2).WriteRows(ctx, "View", 1, sourceGrid(5))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Batches)

	got, _ := mem.ReadTable(ctx, "View")
	assert.Equal(t, "Level 2 Monday 4:00", got.Get(0, 1))
	assert.Equal(t, "First0004", got.Get(5, 0))
}
