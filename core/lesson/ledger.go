package lesson

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/lessondesk/core/sheet"
)

const (
	ledgerHeaderRow = 0
	ledgerFirstCol  = 0
	ledgerLastCol   = 1

	// RepeatHeader is the header of the ledger column right of a skill, when it has one.
	RepeatHeader = "Repeat"

	suggestionMinRatio = 0.75
)

// ledger is a read-only index over a ledger table.
type ledger struct {
	grid      sheet.Grid
	header    []string
	rows      map[IdentityKey]int
	cols      map[string]int
	ambiguous map[string]bool
	dupRows   []IdentityKey
}

func indexLedger(grid sheet.Grid, offset int) *ledger {
	width := grid.Cols()
	l := &ledger{
		grid:      grid,
		header:    grid.Row(ledgerHeaderRow, width),
		rows:      make(map[IdentityKey]int, grid.Rows()),
		cols:      make(map[string]int, width),
		ambiguous: make(map[string]bool),
	}

	for c := offset; c < width; c++ {
		h := strings.TrimSpace(l.header[c])
		if h == "" || strings.EqualFold(h, RepeatHeader) {
			continue
		}
		if _, ok := l.cols[h]; ok {
			l.ambiguous[h] = true
			continue
		}
		l.cols[h] = c
	}

	for r := ledgerHeaderRow + 1; r < grid.Rows(); r++ {
		key := NewIdentityKey(grid.Get(r, ledgerFirstCol), grid.Get(r, ledgerLastCol))
		if key.Empty() {
			continue
		}
		if _, ok := l.rows[key]; ok {
			l.dupRows = append(l.dupRows, key)
			continue
		}
		l.rows[key] = r
	}
	return l
}

func (l *ledger) row(key IdentityKey) (int, bool) {
	r, ok := l.rows[key]
	return r, ok
}

// col returns the column whose header is `header`. Headers found more than once map to no column.
func (l *ledger) col(header string) (int, bool) {
	header = strings.TrimSpace(header)
	if l.ambiguous[header] {
		return 0, false
	}
	c, ok := l.cols[header]
	return c, ok
}

// repeatCol returns the Repeat column of the skill at `primary`: the next column, if its header is blank or "Repeat".
func (l *ledger) repeatCol(primary int) (int, bool) {
	c := primary + 1
	var h string
	if c < len(l.header) {
		h = strings.TrimSpace(l.header[c])
	}
	if h == "" || strings.EqualFold(h, RepeatHeader) {
		return c, true
	}
	return 0, false
}

func (l *ledger) ambiguousHeaders() []string {
	hs := make([]string, 0, len(l.ambiguous))
	for h := range l.ambiguous {
		hs = append(hs, h)
	}
	sort.Strings(hs)
	return hs
}

// suggest returns the name of the ledger student closest to `key`, or "".
func (l *ledger) suggest(key IdentityKey) string {
	want := strings.Split(key.String(), "")
	var best IdentityKey
	var bestRatio float64
	for k := range l.rows {
		m := difflib.NewMatcher(want, strings.Split(k.String(), ""))
		if m.QuickRatio() < suggestionMinRatio {
			continue
		}
		ratio := m.Ratio()
		if ratio > bestRatio || (ratio == bestRatio && k.String() < best.String()) {
			best, bestRatio = k, ratio
		}
	}
	if bestRatio < suggestionMinRatio {
		return ""
	}
	r := l.rows[best]
	return strings.TrimSpace(strings.TrimSpace(l.grid.Get(r, ledgerFirstCol)) + " " + strings.TrimSpace(l.grid.Get(r, ledgerLastCol)))
}
