package lesson

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

// PullSummary reports a ledger -> view merge.
type PullSummary struct {
	Class     string   `json:"class"`
	Students  int      `json:"students"`
	Matched   int      `json:"matched"`
	Marks     int      `json:"marks"`
	Unmatched []string `json:"unmatched,omitempty"`
}

func (s PullSummary) String() string {
	return fmt.Sprintf("%q: %d/%d students in ledger, %d marks pulled", s.Class, s.Matched, s.Students, s.Marks)
}

// PushSummary reports a view -> ledger merge.
type PushSummary struct {
	Class          string   `json:"class"`
	Students       int      `json:"students"`
	New            int      `json:"new"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Ignored        int      `json:"ignored"`
	Conflicts      int      `json:"conflicts"`
	NotFound       []string `json:"not_found,omitempty"`
	MissingHeaders []string `json:"missing_headers,omitempty"`
}

func (s PushSummary) String() string {
	return fmt.Sprintf(
		"%q: %d students, %d new, %d updated, %d skipped, %d ignored, %d conflicts",
		s.Class, s.Students, s.New, s.Updated, s.Skipped, s.Ignored, s.Conflicts,
	)
}

type MergerOptions struct {
	ViewTable      string
	BaselineTable  string
	LedgerTable    string
	IdentityOffset int
	ConflictPolicy ConflictPolicy
}

// Merger moves marks between the working view and the ledger.
type Merger struct {
	workbook     sheet.Store
	ledgerStore  sheet.Store
	viewWriter   *sheet.BatchWriter
	ledgerWriter *sheet.BatchWriter
	opts         MergerOptions
	logger       core.Logger
}

func NewMerger(
	workbook, ledgerStore sheet.Store,
	viewWriter, ledgerWriter *sheet.BatchWriter,
	opts MergerOptions,
	logger core.Logger,
) *Merger {
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictOverwrite
	}
	return &Merger{
		workbook:     workbook,
		ledgerStore:  ledgerStore,
		viewWriter:   viewWriter,
		ledgerWriter: ledgerWriter,
		opts:         opts,
		logger:       logger,
	}
}

func (m *Merger) readLedger(ctx context.Context) (*ledger, error) {
	grid, err := m.ledgerStore.ReadTable(ctx, m.opts.LedgerTable)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return nil, missingTable(m.opts.LedgerTable)
		}
		return nil, errors.Wrapf(err, "reading %q", m.opts.LedgerTable)
	}
	led := indexLedger(grid, m.opts.IdentityOffset)
	for _, key := range led.dupRows {
		m.logger.Warn(fmt.Sprintf("ledger: %q listed more than once, using the first row", key))
	}
	for _, h := range led.ambiguousHeaders() {
		m.logger.Warn(fmt.Sprintf("ledger: header %q found more than once, its marks are not merged", h))
	}
	return led, nil
}

// cellPair links a view column to a ledger column.
type cellPair struct {
	view   int
	ledger int
}

// pairs maps a view skill column, and its End column, to the ledger.
// The End column follows the Repeat column right of the skill's ledger column; without one it is dropped.
func (m *Merger) pairs(led *ledger, sc SkillColumn, ledgerCol int) []cellPair {
	pairs := []cellPair{{view: sc.Col, ledger: ledgerCol}}
	if sc.EndCol >= 0 {
		if rc, ok := led.repeatCol(ledgerCol); ok {
			pairs = append(pairs, cellPair{view: sc.EndCol, ledger: rc})
		}
	}
	return pairs
}

// Pull copies the ledger marks of the students of `v` into the freshly rendered view.
// Students missing from the ledger keep blank marks.
func (m *Merger) Pull(ctx context.Context, v View) (PullSummary, error) {
	sum := PullSummary{Class: v.Class, Students: len(v.Students)}
	led, err := m.readLedger(ctx)
	if err != nil {
		return sum, err
	}

	base := v.Grid.Clone()
	var cells []sheet.CellUpdate
	for i, st := range v.Students {
		row := StudentRow(i)
		lr, ok := led.row(st.Key())
		if !ok {
			sum.Unmatched = append(sum.Unmatched, st.Name())
			continue
		}
		sum.Matched++

		for _, sc := range v.Layout.Skills {
			lc, ok := led.col(sc.Header)
			if !ok {
				continue
			}
			for _, p := range m.pairs(led, sc, lc) {
				val := led.grid.Get(lr, p.ledger)
				if strings.TrimSpace(val) == "" {
					continue
				}
				cells = append(cells, sheet.CellUpdate{Row: row, Col: p.view, Value: val})
				base.Set(row, p.view, val)
			}
		}
	}
	sum.Marks = len(cells)

	if _, err = m.viewWriter.WriteCells(ctx, m.opts.ViewTable, cells); err != nil {
		return sum, errors.Wrapf(err, "writing %q", m.opts.ViewTable)
	}
	if err = m.saveBaseline(ctx, base); err != nil {
		// the view is written; edits made before the next pull only lose conflict detection
		m.logger.Error("pull: saving baseline", err)
	}

	if len(sum.Unmatched) > 0 {
		m.logger.Info(fmt.Sprintf("pull: %d students not in %q yet", len(sum.Unmatched), m.opts.LedgerTable))
	}
	m.logger.Info(fmt.Sprintf("pull: %s", sum))
	return sum, nil
}

// Push writes the valid marks of the view into the ledger.
// A mark is only written when it differs from the ledger; blank view cells never clear the ledger,
// and students missing from the ledger are skipped.
func (m *Merger) Push(ctx context.Context) (PushSummary, error) {
	view, err := m.workbook.ReadTable(ctx, m.opts.ViewTable)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return PushSummary{}, missingTable(m.opts.ViewTable)
		}
		return PushSummary{}, errors.Wrapf(err, "reading %q", m.opts.ViewTable)
	}
	selector := strings.TrimSpace(view.Get(SelectorRow, SelectorCol))
	if selector == "" {
		return PushSummary{}, ErrNoClassSelected
	}
	sum := PushSummary{Class: selector}

	header := view.Row(HeaderRow, view.Cols())
	lay := ParseLayout(header)
	if lay.FirstCol < 0 || lay.LastCol < 0 {
		return sum, &MissingDependencyError{Table: m.opts.ViewTable, Column: FirstHeader}
	}

	led, err := m.readLedger(ctx)
	if err != nil {
		return sum, err
	}
	base, err := m.loadBaseline(ctx, selector, header, lay)
	if err != nil {
		return sum, err
	}

	newBase := view.Clone()
	missing := make(map[string]bool)
	seen := make(map[IdentityKey]bool)
	var writes []sheet.CellUpdate
	for r := FirstStudentRow; r < view.Rows(); r++ {
		key := NewIdentityKey(view.Get(r, lay.FirstCol), view.Get(r, lay.LastCol))
		if key.Empty() {
			continue
		}
		name := Student{First: view.Get(r, lay.FirstCol), Last: view.Get(r, lay.LastCol)}.Name()
		if seen[key] {
			m.logger.Warn(fmt.Sprintf("push: %q appears twice in the view, row %d skipped", name, r+1))
			continue
		}
		seen[key] = true

		lr, ok := led.row(key)
		if !ok {
			sum.Skipped++
			sum.NotFound = append(sum.NotFound, name)
			msg := fmt.Sprintf("push: %q not in %q, skipped", name, m.opts.LedgerTable)
			if s := led.suggest(key); s != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", s)
			}
			m.logger.Warn(msg, errors.Wrap(ErrIdentityNotFound, name))
			continue
		}
		sum.Students++

		for _, sc := range lay.Skills {
			lc, ok := led.col(sc.Header)
			if !ok {
				missing[sc.Header] = true
				continue
			}
			for _, p := range m.pairs(led, sc, lc) {
				cand := view.Get(r, p.view)
				cur := led.grid.Get(lr, p.ledger)
				newBase.Set(r, p.view, cur)
				if cand == "" || cand == cur {
					continue
				}
				if !ValidMark(cand) {
					sum.Ignored++
					continue
				}
				if was, ok := base.get(key, p.view); ok && was != cur {
					sum.Conflicts++
					m.logger.Warn(fmt.Sprintf(
						"push: %q %q changed in the ledger since it was pulled (%q -> %q), %s",
						name, header[p.view], was, cur, m.conflictAction(),
					))
					if m.opts.ConflictPolicy == ConflictReject {
						continue
					}
				}

				writes = append(writes, sheet.CellUpdate{Row: lr, Col: p.ledger, Value: cand})
				newBase.Set(r, p.view, cand)
				if strings.TrimSpace(cur) == "" {
					sum.New++
				} else {
					sum.Updated++
				}
			}
		}
	}
	for h := range missing {
		sum.MissingHeaders = append(sum.MissingHeaders, h)
	}
	sort.Strings(sum.MissingHeaders)
	if len(sum.MissingHeaders) > 0 {
		m.logger.Info(fmt.Sprintf("push: %d view columns not in %q: %s",
			len(sum.MissingHeaders), m.opts.LedgerTable, strings.Join(sum.MissingHeaders, ", ")))
	}

	if _, err = m.ledgerWriter.WriteCells(ctx, m.opts.LedgerTable, writes); err != nil {
		return sum, errors.Wrapf(err, "writing %q", m.opts.LedgerTable)
	}
	if err = m.saveBaseline(ctx, newBase); err != nil {
		// the ledger is written; the next push only loses conflict detection
		m.logger.Error("push: saving baseline", err)
	}

	m.logger.Info(fmt.Sprintf("push: %s", sum))
	return sum, nil
}

func (m *Merger) conflictAction() string {
	if m.opts.ConflictPolicy == ConflictReject {
		return "kept the ledger value"
	}
	return "overwritten"
}

// baseline is the view as last synchronized, indexed by student.
type baseline struct {
	grid sheet.Grid
	rows map[IdentityKey]int
}

func (b *baseline) get(key IdentityKey, col int) (string, bool) {
	if b == nil {
		return "", false
	}
	r, ok := b.rows[key]
	if !ok {
		return "", false
	}
	return b.grid.Get(r, col), true
}

func (m *Merger) saveBaseline(ctx context.Context, grid sheet.Grid) error {
	if _, err := m.viewWriter.Replace(ctx, m.opts.BaselineTable, grid); err != nil {
		return errors.Wrap(err, "saving baseline")
	}
	return nil
}

// loadBaseline returns the baseline of the current view, or nil when there is none for this class and layout.
func (m *Merger) loadBaseline(ctx context.Context, selector string, header []string, lay Layout) (*baseline, error) {
	grid, err := m.workbook.ReadTable(ctx, m.opts.BaselineTable)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %q", m.opts.BaselineTable)
	}
	if strings.TrimSpace(grid.Get(SelectorRow, SelectorCol)) != selector {
		return nil, nil
	}
	baseHeader := grid.Row(HeaderRow, len(header))
	for i := range header {
		if strings.TrimSpace(baseHeader[i]) != strings.TrimSpace(header[i]) {
			return nil, nil
		}
	}

	b := &baseline{grid: grid, rows: make(map[IdentityKey]int)}
	for r := FirstStudentRow; r < grid.Rows(); r++ {
		key := NewIdentityKey(grid.Get(r, lay.FirstCol), grid.Get(r, lay.LastCol))
		if _, ok := b.rows[key]; !ok && !key.Empty() {
			b.rows[key] = r
		}
	}
	return b, nil
}
