// Package xlsxsheet stores tables as the worksheets of an .xlsx workbook.
package xlsxsheet

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/lessondesk/core/sheet"
)

// HiddenPrefix marks tables kept out of sight of the instructor (baselines, properties).
const HiddenPrefix = "_"

var bandFills = map[sheet.BandKind]string{
	sheet.BandIdentity:     "#D9E1F2",
	sheet.BandAttendance:   "#EDEDED",
	sheet.BandStage:        "#E2EFDA",
	sheet.BandSupplemental: "#FFF2CC",
}

// Store is a workbook file. Every mutating call is saved to disk, unless the Store has no path.
type Store struct {
	mu     sync.Mutex
	f      *excelize.File
	path   string
	styles map[sheet.BandKind]int
}

var (
	_ sheet.Store      = (*Store)(nil) // interface compliance check
	_ sheet.Styler     = (*Store)(nil)
	_ sheet.Freezer    = (*Store)(nil)
	_ sheet.ListBinder = (*Store)(nil)
)

// Open opens the workbook at `path`, creating it when it does not exist yet.
func Open(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if !isNotExist(err) {
			return nil, errors.Wrapf(err, "opening workbook %q", path)
		}
		f = excelize.NewFile()
		if err = f.SaveAs(path); err != nil {
			return nil, errors.Wrapf(err, "creating workbook %q", path)
		}
	}
	return &Store{f: f, path: path, styles: make(map[sheet.BandKind]int)}, nil
}

// New returns a Store over an in-memory workbook.
func New() *Store {
	return &Store{f: excelize.NewFile(), styles: make(map[sheet.BandKind]int)}
}

func (s *Store) Path() string {
	return s.path
}

// Save writes the workbook to its file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// caller must hold the lock
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	if err := s.f.SaveAs(s.path); err != nil {
		return errors.Wrapf(err, "saving workbook %q", s.path)
	}
	return nil
}

// caller must hold the lock
func (s *Store) exists(name string) bool {
	idx, err := s.f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// caller must hold the lock
func (s *Store) check(name string) error {
	if !s.exists(name) {
		return errors.Wrap(sheet.ErrTableNotFound, name)
	}
	return nil
}

func cellName(row, col int) (string, error) {
	return excelize.CoordinatesToCellName(col+1, row+1)
}

func (s *Store) Tables(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.GetSheetList(), nil
}

func (s *Store) HasTable(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists(name), nil
}

func (s *Store) ReadTable(_ context.Context, name string) (sheet.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return nil, err
	}
	rows, err := s.f.GetRows(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", name)
	}
	return sheet.Grid(rows), nil
}

func (s *Store) ReadCell(_ context.Context, name string, row, col int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return "", err
	}
	cell, err := cellName(row, col)
	if err != nil {
		return "", err
	}
	return s.f.GetCellValue(name, cell)
}

func (s *Store) CreateTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists(name) {
		return errors.Wrap(sheet.ErrTableExists, name)
	}
	if _, err := s.f.NewSheet(name); err != nil {
		return errors.Wrapf(err, "creating %q", name)
	}
	if strings.HasPrefix(name, HiddenPrefix) {
		if err := s.f.SetSheetVisible(name, false); err != nil {
			return errors.Wrapf(err, "hiding %q", name)
		}
	}
	return s.save()
}

func (s *Store) DeleteTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	if err := s.f.DeleteSheet(name); err != nil {
		return errors.Wrapf(err, "deleting %q", name)
	}
	return s.save()
}

func (s *Store) RenameTable(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(from); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if s.exists(to) {
		if err := s.f.DeleteSheet(to); err != nil {
			return errors.Wrapf(err, "replacing %q", to)
		}
	}
	if err := s.f.SetSheetName(from, to); err != nil {
		return errors.Wrapf(err, "renaming %q to %q", from, to)
	}
	return s.save()
}

func (s *Store) ClearTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	rows, err := s.f.GetRows(name)
	if err != nil {
		return errors.Wrapf(err, "reading %q", name)
	}
	for r := len(rows); r >= 1; r-- {
		if err = s.f.RemoveRow(name, r); err != nil {
			return errors.Wrapf(err, "clearing %q", name)
		}
	}
	return s.save()
}

func (s *Store) WriteRange(_ context.Context, name string, row, col int, values sheet.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	for i, r := range values {
		cell, err := cellName(row+i, col)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		if err = s.f.SetSheetRow(name, cell, &vals); err != nil {
			return errors.Wrapf(err, "writing %q row %d", name, row+i+1)
		}
	}
	return s.save()
}

func (s *Store) WriteCells(_ context.Context, name string, cells []sheet.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	for _, c := range cells {
		cell, err := cellName(c.Row, c.Col)
		if err != nil {
			return err
		}
		if err = s.f.SetCellStr(name, cell, c.Value); err != nil {
			return errors.Wrapf(err, "writing %q %s", name, cell)
		}
	}
	return s.save()
}

func (s *Store) InsertRows(_ context.Context, name string, at, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	if err := s.f.InsertRows(name, at+1, n); err != nil {
		return errors.Wrapf(err, "inserting rows into %q", name)
	}
	return s.save()
}

func (s *Store) DeleteRows(_ context.Context, name string, at, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.f.RemoveRow(name, at+1); err != nil {
			return errors.Wrapf(err, "deleting rows of %q", name)
		}
	}
	return s.save()
}

// StyleBand fills the cells of `band`; its first row (the header) is bold.
func (s *Store) StyleBand(_ context.Context, name string, band sheet.Band) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	style, err := s.bandStyle(band.Kind)
	if err != nil {
		return err
	}
	from, err := cellName(band.FromRow, band.FromCol)
	if err != nil {
		return err
	}
	to, err := cellName(band.ToRow, band.ToCol)
	if err != nil {
		return err
	}
	if err = s.f.SetCellStyle(name, from, to, style); err != nil {
		return errors.Wrapf(err, "styling %q %s:%s", name, from, to)
	}
	return s.save()
}

// caller must hold the lock
func (s *Store) bandStyle(kind sheet.BandKind) (int, error) {
	if id, ok := s.styles[kind]; ok {
		return id, nil
	}
	color, ok := bandFills[kind]
	if !ok {
		color = "#FFFFFF"
	}
	id, err := s.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Border: []excelize.Border{
			{Type: "left", Color: "#BFBFBF", Style: 1},
			{Type: "right", Color: "#BFBFBF", Style: 1},
			{Type: "top", Color: "#BFBFBF", Style: 1},
			{Type: "bottom", Color: "#BFBFBF", Style: 1},
		},
	})
	if err != nil {
		return 0, errors.Wrapf(err, "creating %s style", kind)
	}
	s.styles[kind] = id
	return id, nil
}

func (s *Store) Freeze(_ context.Context, name string, rows, cols int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	topLeft, err := cellName(rows, cols)
	if err != nil {
		return err
	}
	err = s.f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		XSplit:      cols,
		YSplit:      rows,
		TopLeftCell: topLeft,
		ActivePane:  "bottomRight",
	})
	if err != nil {
		return errors.Wrapf(err, "freezing %q", name)
	}
	return s.save()
}

// BindList attaches a drop-down list to a single cell, replacing any previous one.
func (s *Store) BindList(_ context.Context, name string, row, col int, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return err
	}
	cell, err := cellName(row, col)
	if err != nil {
		return err
	}
	if err = s.f.DeleteDataValidation(name, cell); err != nil {
		return errors.Wrapf(err, "unbinding %q %s", name, cell)
	}
	if len(options) == 0 {
		return s.save()
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = cell
	if err = dv.SetDropList(options); err != nil {
		return errors.Wrapf(err, "building list for %q %s", name, cell)
	}
	if err = s.f.AddDataValidation(name, dv); err != nil {
		return errors.Wrapf(err, "binding %q %s", name, cell)
	}
	return s.save()
}
