// Package sheet defines the tabular store the sync engine is written against:
// named tables of string cells, addressed by zero-based row and column.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	// ErrTooManyRows is returned when a single write call exceeds the store's per-call row ceiling.
	ErrTooManyRows = errors.New("too many rows in a single write")
	// ErrRateLimited is returned when the store's write-throughput ceiling was hit.
	ErrRateLimited = errors.New("write rate limit exceeded")
)

// MaxTableName is the longest table name every backend accepts: the xlsx sheet name limit.
const MaxTableName = 31

// DerivedName returns the name of a table derived from `base`: base+suffix, shortened to
// MaxTableName characters when needed: the base is cut and tagged with a hash of the whole base, so
// bases sharing a long prefix still get distinct names. The suffix is always kept.
func DerivedName(base, suffix string) string {
	name := base + suffix
	if utf8.RuneCountInString(name) <= MaxTableName {
		return name
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(base))
	tag := fmt.Sprintf("-%06x", h.Sum32()&0xffffff)

	keep := MaxTableName - utf8.RuneCountInString(suffix) - len(tag)
	runes := []rune(base)
	if keep < 0 {
		keep = 0
	}
	if keep < len(runes) {
		runes = runes[:keep]
	}
	return string(runes) + tag + suffix
}

// Store is the capability surface every backend provides.
type Store interface {
	Tables(ctx context.Context) ([]string, error)
	HasTable(ctx context.Context, name string) (bool, error)
	// ReadTable returns the full contents of a table. Rows may be ragged; use Grid.Get.
	ReadTable(ctx context.Context, name string) (Grid, error)
	ReadCell(ctx context.Context, name string, row, col int) (string, error)

	CreateTable(ctx context.Context, name string) error
	DeleteTable(ctx context.Context, name string) error
	// RenameTable renames `from` to `to`, replacing `to` if it exists.
	RenameTable(ctx context.Context, from, to string) error
	ClearTable(ctx context.Context, name string) error

	// WriteRange writes `values` with its top-left cell at (row, col).
	WriteRange(ctx context.Context, name string, row, col int, values Grid) error
	WriteCells(ctx context.Context, name string, cells []CellUpdate) error
	InsertRows(ctx context.Context, name string, at, n int) error
	DeleteRows(ctx context.Context, name string, at, n int) error
}

// CellUpdate is a single cell write.
type CellUpdate struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// Grid is a rectangular-ish block of cells, row-major.
type Grid [][]string

// NewGrid returns a rows x cols Grid of blank cells.
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]string, cols)
	}
	return g
}

func (g Grid) Rows() int { return len(g) }

// Cols returns the length of the longest row.
func (g Grid) Cols() int {
	var n int
	for _, row := range g {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// Get returns the cell at (row, col) or "" when out of range.
func (g Grid) Get(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Set writes the cell at (row, col), growing the Grid as needed.
func (g *Grid) Set(row, col int, value string) {
	for len(*g) <= row {
		*g = append(*g, nil)
	}
	r := (*g)[row]
	for len(r) <= col {
		r = append(r, "")
	}
	r[col] = value
	(*g)[row] = r
}

// Row returns a copy of the row `row`, padded to `width` cells.
func (g Grid) Row(row, width int) []string {
	out := make([]string, width)
	if row >= 0 && row < len(g) {
		copy(out, g[row])
	}
	return out
}

func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Pad returns a copy of the Grid where every row has exactly `width` cells.
func (g Grid) Pad(width int) Grid {
	out := make(Grid, len(g))
	for i := range g {
		out[i] = g.Row(i, width)
	}
	return out
}

// Trim drops trailing rows whose cells are all blank.
func (g Grid) Trim() Grid {
	n := len(g)
	for n > 0 && blankRow(g[n-1]) {
		n--
	}
	return g[:n]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Window returns the rows [from, to) of the Grid, clamped to its bounds.
func (g Grid) Window(from, to int) Grid {
	if from < 0 {
		from = 0
	}
	if to > len(g) {
		to = len(g)
	}
	if from >= to {
		return Grid{}
	}
	return g[from:to]
}
