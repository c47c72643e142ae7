package sheet

import (
	"context"

	"github.com/pkg/errors"
)

type rowLimitStore struct {
	Store
	max int
}

// RowLimit decorates `store` so that a single write call touching more than `max` rows fails with ErrTooManyRows.
// A `max` <= 0 returns `store` as is.
func RowLimit(store Store, max int) Store {
	if max <= 0 {
		return store
	}
	return &rowLimitStore{Store: store, max: max}
}

func (s *rowLimitStore) Unwrap() Store { return s.Store }

func (s *rowLimitStore) WriteRange(ctx context.Context, name string, row, col int, values Grid) error {
	if len(values) > s.max {
		return errors.Wrapf(ErrTooManyRows, "%d rows (max %d)", len(values), s.max)
	}
	return s.Store.WriteRange(ctx, name, row, col, values)
}

func (s *rowLimitStore) WriteCells(ctx context.Context, name string, cells []CellUpdate) error {
	rows := make(map[int]struct{}, len(cells))
	for _, c := range cells {
		rows[c.Row] = struct{}{}
	}
	if len(rows) > s.max {
		return errors.Wrapf(ErrTooManyRows, "%d rows (max %d)", len(rows), s.max)
	}
	return s.Store.WriteCells(ctx, name, cells)
}
