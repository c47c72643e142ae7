package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

// SheetStore keeps tables as sparse cells: blank cells are not stored.
type SheetStore struct {
	db core.DB
}

var _ sheet.Store = (*SheetStore)(nil) // interface compliance check

func NewSheetStore(db core.DB) *SheetStore {
	return &SheetStore{db: db}
}

type cellRow struct {
	Row   int    `db:"row_idx"`
	Col   int    `db:"col_idx"`
	Value string `db:"value"`
}

const (
	upsertCellQuery = `INSERT INTO sheet_cells (table_name, row_idx, col_idx, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (table_name, row_idx, col_idx) DO UPDATE SET value = excluded.value`
	deleteCellQuery = `DELETE FROM sheet_cells WHERE table_name = ? AND row_idx = ? AND col_idx = ?`
)

// inTx runs `fn` in a transaction, committed when `fn` succeeds.
func (store SheetStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (store SheetStore) exists(ctx context.Context, exec core.DBExecutor, name string) (bool, error) {
	var n int
	q := exec.Rebind(`SELECT COUNT(*) FROM sheet_tables WHERE name = ?`)
	if err := exec.GetContext(ctx, &n, q, name); err != nil {
		return false, errors.Wrapf(err, "looking up %q", name)
	}
	return n > 0, nil
}

func (store SheetStore) check(ctx context.Context, exec core.DBExecutor, name string) error {
	ok, err := store.exists(ctx, exec, name)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(sheet.ErrTableNotFound, name)
	}
	return nil
}

func (store SheetStore) Tables(ctx context.Context) ([]string, error) {
	var names []string
	if err := store.db.SelectContext(ctx, &names, `SELECT name FROM sheet_tables ORDER BY position`); err != nil {
		return nil, errors.Wrap(err, "listing tables")
	}
	return names, nil
}

func (store SheetStore) HasTable(ctx context.Context, name string) (bool, error) {
	return store.exists(ctx, store.db, name)
}

func (store SheetStore) ReadTable(ctx context.Context, name string) (sheet.Grid, error) {
	if err := store.check(ctx, store.db, name); err != nil {
		return nil, err
	}
	var cells []cellRow
	q := store.db.Rebind(`SELECT row_idx, col_idx, value FROM sheet_cells WHERE table_name = ? ORDER BY row_idx, col_idx`)
	if err := store.db.SelectContext(ctx, &cells, q, name); err != nil {
		return nil, errors.Wrapf(err, "reading %q", name)
	}
	grid := sheet.Grid{}
	for _, c := range cells {
		grid.Set(c.Row, c.Col, c.Value)
	}
	return grid, nil
}

func (store SheetStore) ReadCell(ctx context.Context, name string, row, col int) (string, error) {
	if err := store.check(ctx, store.db, name); err != nil {
		return "", err
	}
	var value string
	q := store.db.Rebind(`SELECT value FROM sheet_cells WHERE table_name = ? AND row_idx = ? AND col_idx = ?`)
	err := store.db.GetContext(ctx, &value, q, name, row, col)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(err, "reading %q R%dC%d", name, row+1, col+1)
	}
	return value, nil
}

func (store SheetStore) CreateTable(ctx context.Context, name string) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := store.exists(ctx, tx, name)
		if err != nil {
			return err
		}
		if ok {
			return errors.Wrap(sheet.ErrTableExists, name)
		}
		q := tx.Rebind(`INSERT INTO sheet_tables (name, position) SELECT ?, COALESCE(MAX(position), 0) + 1 FROM sheet_tables`)
		_, err = tx.ExecContext(ctx, q, name)
		return errors.Wrapf(err, "creating %q", name)
	})
}

func (store SheetStore) DeleteTable(ctx context.Context, name string) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, name); err != nil {
			return err
		}
		return errors.Wrapf(store.drop(ctx, tx, name), "deleting %q", name)
	})
}

func (store SheetStore) drop(ctx context.Context, tx *sqlx.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sheet_cells WHERE table_name = ?`), name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sheet_tables WHERE name = ?`), name)
	return err
}

// RenameTable swaps `from` in for `to` in a single transaction.
func (store SheetStore) RenameTable(ctx context.Context, from, to string) error {
	if from == to {
		return store.check(ctx, store.db, from)
	}
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, from); err != nil {
			return err
		}
		if err := store.drop(ctx, tx, to); err != nil {
			return errors.Wrapf(err, "replacing %q", to)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sheet_tables SET name = ? WHERE name = ?`), to, from); err != nil {
			return errors.Wrapf(err, "renaming %q to %q", from, to)
		}
		// cascaded when foreign keys are enforced
		_, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE sheet_cells SET table_name = ? WHERE table_name = ?`), to, from)
		return errors.Wrapf(err, "moving cells of %q to %q", from, to)
	})
}

func (store SheetStore) ClearTable(ctx context.Context, name string) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM sheet_cells WHERE table_name = ?`), name)
		return errors.Wrapf(err, "clearing %q", name)
	})
}

func (store SheetStore) WriteRange(ctx context.Context, name string, row, col int, values sheet.Grid) error {
	cells := make([]sheet.CellUpdate, 0, len(values)*values.Cols())
	for i, r := range values {
		for j, v := range r {
			cells = append(cells, sheet.CellUpdate{Row: row + i, Col: col + j, Value: v})
		}
	}
	return store.WriteCells(ctx, name, cells)
}

func (store SheetStore) WriteCells(ctx context.Context, name string, cells []sheet.CellUpdate) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, name); err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		upsert, err := tx.PreparexContext(ctx, tx.Rebind(upsertCellQuery))
		if err != nil {
			return errors.Wrap(err, "preparing upsert")
		}
		defer func() { _ = upsert.Close() }()
		del, err := tx.PreparexContext(ctx, tx.Rebind(deleteCellQuery))
		if err != nil {
			return errors.Wrap(err, "preparing delete")
		}
		defer func() { _ = del.Close() }()

		for _, c := range cells {
			if c.Row < 0 || c.Col < 0 {
				return errors.Errorf("invalid cell R%dC%d", c.Row+1, c.Col+1)
			}
			if c.Value == "" {
				_, err = del.ExecContext(ctx, name, c.Row, c.Col)
			} else {
				_, err = upsert.ExecContext(ctx, name, c.Row, c.Col, c.Value)
			}
			if err != nil {
				return errors.Wrapf(err, "writing %q R%dC%d", name, c.Row+1, c.Col+1)
			}
		}
		return nil
	})
}

// shiftRows moves the rows at or below `from` by `delta`. Rows go through negative indexes first
// so that no two cells share a key mid-update.
func (store SheetStore) shiftRows(ctx context.Context, tx *sqlx.Tx, name string, from, delta int) error {
	q := tx.Rebind(`UPDATE sheet_cells SET row_idx = -(row_idx + ?) - 1 WHERE table_name = ? AND row_idx >= ?`)
	if _, err := tx.ExecContext(ctx, q, delta, name, from); err != nil {
		return err
	}
	q = tx.Rebind(`UPDATE sheet_cells SET row_idx = -row_idx - 1 WHERE table_name = ? AND row_idx < 0`)
	_, err := tx.ExecContext(ctx, q, name)
	return err
}

func (store SheetStore) InsertRows(ctx context.Context, name string, at, n int) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, name); err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		return errors.Wrapf(store.shiftRows(ctx, tx, name, at, n), "inserting rows into %q", name)
	})
}

func (store SheetStore) DeleteRows(ctx context.Context, name string, at, n int) error {
	return store.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.check(ctx, tx, name); err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		q := tx.Rebind(`DELETE FROM sheet_cells WHERE table_name = ? AND row_idx >= ? AND row_idx < ?`)
		if _, err := tx.ExecContext(ctx, q, name, at, at+n); err != nil {
			return errors.Wrapf(err, "deleting rows of %q", name)
		}
		return errors.Wrapf(store.shiftRows(ctx, tx, name, at+n, -n), "deleting rows of %q", name)
	})
}
