package sheet_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lessondesk/core/sheet"
	"github.com/trezcool/lessondesk/storage/sheets/dummy"
)

func TestGrid(t *testing.T) {
	g := sheet.Grid{{"a", "b"}, {"c"}, {}, {" ", ""}}

	assert.Equal(t, 4, g.Rows())
	assert.Equal(t, 2, g.Cols())
	assert.Equal(t, "b", g.Get(0, 1))
	assert.Equal(t, "", g.Get(1, 1))
	assert.Equal(t, "", g.Get(-1, 0))
	assert.Equal(t, []string{"c", "", ""}, g.Row(1, 3))
	assert.Len(t, g.Trim(), 2)
	assert.Equal(t, sheet.Grid{{"c"}}, g.Window(1, 2))
	assert.Empty(t, g.Window(5, 9))

	padded := g.Pad(3)
	for i := range padded {
		assert.Len(t, padded[i], 3)
	}

	var grown sheet.Grid
	grown.Set(2, 1, "x")
	assert.Equal(t, 3, grown.Rows())
	assert.Equal(t, "x", grown.Get(2, 1))

	clone := g.Clone()
	clone[0][0] = "z"
	assert.Equal(t, "a", g.Get(0, 0))
}

func TestPropertyTable(t *testing.T) {
	ctx := context.Background()
	props := sheet.NewPropertyTable(dummysheet.New(), "_properties")

	_, ok, err := props.GetProperty(ctx, "activeSession")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, props.SetProperty(ctx, "activeSession", "Fall 2026"))
	require.NoError(t, props.SetProperty(ctx, "ledgerRef", "ledger.xlsx#Skills Ledger"))
	require.NoError(t, props.SetProperty(ctx, "activeSession", "Winter 2027"))

	val, ok, err := props.GetProperty(ctx, "activeSession")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Winter 2027", val)

	val, _, _ = props.GetProperty(ctx, "ledgerRef")
	assert.Equal(t, "ledger.xlsx#Skills Ledger", val)
}

type bareStore struct{ sheet.Store }

func TestResolveCapabilities(t *testing.T) {
	ctx := context.Background()
	mem := dummysheet.New()
	mem.Seed("View", nil)

	// through a decorator
	caps := sheet.ResolveCapabilities(sheet.RowLimit(mem, 10))
	require.NoError(t, caps.Freezer.Freeze(ctx, "View", 3, 2))
	rows, cols := mem.Frozen("View")
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)

	// no capabilities at all
	caps = sheet.ResolveCapabilities(bareStore{mem})
	assert.NoError(t, caps.Styler.StyleBand(ctx, "View", sheet.Band{Kind: sheet.BandStage}))
	assert.NoError(t, caps.ListBinder.BindList(ctx, "View", 0, 1, []string{"a"}))
	assert.Empty(t, mem.Bands("View"))
	assert.Nil(t, mem.List("View", 0, 1))
}

func TestDerivedName(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		suffix string
		want   string
		maxLen int
	}{
		{name: "short name unchanged", base: "Roster", suffix: sheet.StagingSuffix, want: "Roster~staging"},
		{name: "fits as is", base: "_Class View Level 2", suffix: "_baseline", want: "_Class View Level 2_baseline"},
		{name: "long base", base: "_Level Two Progress Tracker", suffix: "_baseline", maxLen: sheet.MaxTableName},
		{name: "long multibyte base", base: "Élèves de la classe préparatoire", suffix: sheet.StagingSuffix, maxLen: sheet.MaxTableName},
		{name: "suffix alone too long", base: "View", suffix: strings.Repeat("x", 40), maxLen: 47},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sheet.DerivedName(tt.base, tt.suffix)
			if tt.want != "" {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.maxLen)
			assert.True(t, strings.HasSuffix(got, tt.suffix))
			assert.Equal(t, got, sheet.DerivedName(tt.base, tt.suffix), "stable")
		})
	}

	t.Run("distinct bases sharing a prefix", func(t *testing.T) {
		a := sheet.DerivedName("Level Two Progress Tracker A", sheet.StagingSuffix)
		b := sheet.DerivedName("Level Two Progress Tracker B", sheet.StagingSuffix)
		assert.NotEqual(t, a, b)
		assert.LessOrEqual(t, utf8.RuneCountInString(a), sheet.MaxTableName)
	})
}
