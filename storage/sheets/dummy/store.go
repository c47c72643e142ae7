package dummysheet

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core/sheet"
)

type (
	// Store is an in-memory sheet.Store. It records write statistics and capability calls for tests.
	Store struct {
		sync.RWMutex
		tables map[string]*table
		order  []string
		stats  Stats

		bands    map[string][]sheet.Band
		frozen   map[string][2]int
		lists    map[string][]string
		failWith error
		failOn   int
	}

	table struct {
		rows sheet.Grid
	}

	// Stats counts the calls made to a Store.
	Stats struct {
		WriteCalls     int
		MaxRowsPerCall int
		RowsWritten    int
		Renames        int
	}
)

var (
	_ sheet.Store      = (*Store)(nil) // interface compliance check
	_ sheet.Styler     = (*Store)(nil)
	_ sheet.Freezer    = (*Store)(nil)
	_ sheet.ListBinder = (*Store)(nil)
)

func New() *Store {
	return &Store{
		tables: make(map[string]*table),
		bands:  make(map[string][]sheet.Band),
		frozen: make(map[string][2]int),
		lists:  make(map[string][]string),
	}
}

// Seed creates (or replaces) table `name` holding `rows`.
func (s *Store) Seed(name string, rows sheet.Grid) {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.tables[name]; !ok {
		s.order = append(s.order, name)
	}
	s.tables[name] = &table{rows: rows.Clone()}
}

// FailWriteAfter makes the n-th write call from now (1-based) fail with `err`.
func (s *Store) FailWriteAfter(n int, err error) {
	s.Lock()
	defer s.Unlock()
	s.failOn = s.stats.WriteCalls + n
	s.failWith = err
}

func (s *Store) Stats() Stats {
	s.RLock()
	defer s.RUnlock()
	return s.stats
}

func (s *Store) ResetStats() {
	s.Lock()
	defer s.Unlock()
	s.stats = Stats{}
}

// Bands returns the bands styled on `name`, in call order.
func (s *Store) Bands(name string) []sheet.Band {
	s.RLock()
	defer s.RUnlock()
	return append([]sheet.Band(nil), s.bands[name]...)
}

// Frozen returns the frozen rows and columns of `name`.
func (s *Store) Frozen(name string) (rows, cols int) {
	s.RLock()
	defer s.RUnlock()
	f := s.frozen[name]
	return f[0], f[1]
}

// List returns the drop-down options bound to cell (row, col) of `name`.
func (s *Store) List(name string, row, col int) []string {
	s.RLock()
	defer s.RUnlock()
	return s.lists[listKey(name, row, col)]
}

func (s *Store) Tables(_ context.Context) ([]string, error) {
	s.RLock()
	defer s.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) HasTable(_ context.Context, name string) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.tables[name]
	return ok, nil
}

func (s *Store) ReadTable(_ context.Context, name string) (sheet.Grid, error) {
	s.RLock()
	defer s.RUnlock()
	t, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return t.rows.Clone(), nil
}

func (s *Store) ReadCell(_ context.Context, name string, row, col int) (string, error) {
	s.RLock()
	defer s.RUnlock()
	t, err := s.get(name)
	if err != nil {
		return "", err
	}
	return t.rows.Get(row, col), nil
}

func (s *Store) CreateTable(_ context.Context, name string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.tables[name]; ok {
		return errors.Wrap(sheet.ErrTableExists, name)
	}
	s.tables[name] = &table{}
	s.order = append(s.order, name)
	return nil
}

func (s *Store) DeleteTable(_ context.Context, name string) error {
	s.Lock()
	defer s.Unlock()
	if _, err := s.get(name); err != nil {
		return err
	}
	s.drop(name)
	return nil
}

func (s *Store) RenameTable(_ context.Context, from, to string) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if _, ok := s.tables[to]; ok {
		s.drop(to)
	}
	delete(s.tables, from)
	s.tables[to] = t
	for i, n := range s.order {
		if n == from {
			s.order[i] = to
		}
	}
	s.stats.Renames++
	return nil
}

func (s *Store) ClearTable(_ context.Context, name string) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	t.rows = nil
	return nil
}

func (s *Store) WriteRange(_ context.Context, name string, row, col int, values sheet.Grid) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	if err = s.countWrite(len(values)); err != nil {
		return err
	}
	for i, r := range values {
		for j, v := range r {
			t.rows.Set(row+i, col+j, v)
		}
	}
	return nil
}

func (s *Store) WriteCells(_ context.Context, name string, cells []sheet.CellUpdate) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	rows := make(map[int]struct{}, len(cells))
	for _, c := range cells {
		rows[c.Row] = struct{}{}
	}
	if err = s.countWrite(len(rows)); err != nil {
		return err
	}
	for _, c := range cells {
		t.rows.Set(c.Row, c.Col, c.Value)
	}
	return nil
}

func (s *Store) InsertRows(_ context.Context, name string, at, n int) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	if at >= len(t.rows) || n <= 0 {
		return nil
	}
	rows := make(sheet.Grid, 0, len(t.rows)+n)
	rows = append(rows, t.rows[:at]...)
	rows = append(rows, make(sheet.Grid, n)...)
	rows = append(rows, t.rows[at:]...)
	t.rows = rows
	return nil
}

func (s *Store) DeleteRows(_ context.Context, name string, at, n int) error {
	s.Lock()
	defer s.Unlock()
	t, err := s.get(name)
	if err != nil {
		return err
	}
	if at >= len(t.rows) || n <= 0 {
		return nil
	}
	end := at + n
	if end > len(t.rows) {
		end = len(t.rows)
	}
	t.rows = append(t.rows[:at], t.rows[end:]...)
	return nil
}

func (s *Store) StyleBand(_ context.Context, name string, band sheet.Band) error {
	s.Lock()
	defer s.Unlock()
	if _, err := s.get(name); err != nil {
		return err
	}
	s.bands[name] = append(s.bands[name], band)
	return nil
}

func (s *Store) Freeze(_ context.Context, name string, rows, cols int) error {
	s.Lock()
	defer s.Unlock()
	if _, err := s.get(name); err != nil {
		return err
	}
	s.frozen[name] = [2]int{rows, cols}
	return nil
}

func (s *Store) BindList(_ context.Context, name string, row, col int, options []string) error {
	s.Lock()
	defer s.Unlock()
	if _, err := s.get(name); err != nil {
		return err
	}
	s.lists[listKey(name, row, col)] = append([]string(nil), options...)
	return nil
}

// caller must hold the lock
func (s *Store) get(name string) (*table, error) {
	if t, ok := s.tables[name]; ok {
		return t, nil
	}
	return nil, errors.Wrap(sheet.ErrTableNotFound, name)
}

// caller must hold the lock
func (s *Store) drop(name string) {
	delete(s.tables, name)
	delete(s.bands, name)
	delete(s.frozen, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// caller must hold the lock
func (s *Store) countWrite(rows int) error {
	s.stats.WriteCalls++
	if s.failWith != nil && s.stats.WriteCalls == s.failOn {
		err := s.failWith
		s.failWith = nil
		return err
	}
	if rows > s.stats.MaxRowsPerCall {
		s.stats.MaxRowsPerCall = rows
	}
	s.stats.RowsWritten += rows
	return nil
}

func listKey(name string, row, col int) string {
	return fmt.Sprintf("%s!%d:%d", name, row, col)
}
