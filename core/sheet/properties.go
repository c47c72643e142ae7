package sheet

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
)

// PropertyTable is a core.PropertyStore kept in a two-column (key, value) table of a Store.
type PropertyTable struct {
	store Store
	table string
}

var _ core.PropertyStore = (*PropertyTable)(nil) // interface compliance check

func NewPropertyTable(store Store, table string) *PropertyTable {
	return &PropertyTable{store: store, table: table}
}

func (p *PropertyTable) GetProperty(ctx context.Context, key string) (string, bool, error) {
	grid, err := p.store.ReadTable(ctx, p.table)
	if err != nil {
		if errors.Is(err, ErrTableNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading properties")
	}
	if row := p.find(grid, key); row >= 0 {
		return grid.Get(row, 1), true, nil
	}
	return "", false, nil
}

func (p *PropertyTable) SetProperty(ctx context.Context, key, value string) error {
	grid, err := p.store.ReadTable(ctx, p.table)
	if err != nil {
		if !errors.Is(err, ErrTableNotFound) {
			return errors.Wrap(err, "reading properties")
		}
		if err = p.store.CreateTable(ctx, p.table); err != nil {
			return errors.Wrap(err, "creating properties")
		}
	}
	row := p.find(grid, key)
	if row < 0 {
		row = len(grid)
	}
	return p.store.WriteRange(ctx, p.table, row, 0, Grid{{key, value}})
}

func (p *PropertyTable) find(grid Grid, key string) int {
	for i := range grid {
		if grid.Get(i, 0) == key {
			return i
		}
	}
	return -1
}
