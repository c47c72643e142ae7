package lesson

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

type Deps struct {
	Settings Settings
	Workbook sheet.Store
	// Ledger holds the ledger table; nil when it lives in Workbook.
	Ledger   sheet.Store
	History  History
	Prompter core.Prompter
	Logger   core.Logger
}

// Service runs the sync operations of one workbook. Operations run one at a time, to completion.
type Service struct {
	mu    sync.Mutex
	state ViewState
	class Class

	settings       Settings
	workbook       sheet.Store
	ledgerStore    sheet.Store
	workbookWriter *sheet.BatchWriter
	ledgerWriter   *sheet.BatchWriter
	roster         *RosterLoader
	projector      *Projector
	merger         *Merger
	history        History
	prompter       core.Prompter
	logger         core.Logger
}

func NewService(deps Deps) *Service {
	settings := deps.Settings
	ledgerStore := deps.Ledger
	if ledgerStore == nil {
		ledgerStore = deps.Workbook
	}
	history := deps.History
	if history == nil {
		history = nopHistory{}
	}
	prompter := deps.Prompter
	if prompter == nil {
		prompter = core.NewStaticPrompter(false)
	}

	workbookWriter := sheet.NewBatchWriter(deps.Workbook, settings.Batch, deps.Logger)
	ledgerWriter := workbookWriter
	if ledgerStore != deps.Workbook {
		ledgerWriter = sheet.NewBatchWriter(ledgerStore, settings.Batch, deps.Logger)
	}

	return &Service{
		settings:       settings,
		workbook:       deps.Workbook,
		ledgerStore:    ledgerStore,
		workbookWriter: workbookWriter,
		ledgerWriter:   ledgerWriter,
		roster:         NewRosterLoader(deps.Workbook, settings.RosterTable, settings.MatchMode, deps.Logger),
		projector: NewProjector(
			deps.Workbook, settings.ViewTable, workbookWriter, sheet.ResolveCapabilities(deps.Workbook), deps.Logger,
		),
		merger: NewMerger(
			deps.Workbook, ledgerStore, workbookWriter, ledgerWriter,
			MergerOptions{
				ViewTable:      settings.ViewTable,
				BaselineTable:  settings.BaselineTable(),
				LedgerTable:    settings.LedgerTable,
				IdentityOffset: settings.IdentityOffset,
				ConflictPolicy: settings.ConflictPolicy,
			},
			deps.Logger,
		),
		history:  history,
		prompter: prompter,
		logger:   deps.Logger,
	}
}

func (s *Service) Settings() Settings {
	return s.settings
}

// State returns the lifecycle state of the working view.
func (s *Service) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open prepares the workbook: the view table and its class selector.
// It is safe to call on every start.
func (s *Service) Open(ctx context.Context, actor core.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	classes, err := s.classSelectors(ctx)
	if err != nil {
		if !IsMissingDependency(err) {
			return err
		}
		s.logger.Warn("open: no class list", err)
	}
	if err = s.projector.Setup(ctx, classes); err != nil {
		return err
	}
	s.record(ctx, NewHistoryEntry(HistoryOpen, "", s.settings.Session, actor))
	return nil
}

// Classes returns the distinct classes of the roster.
func (s *Service) Classes(ctx context.Context) ([]Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Classes(ctx)
}

func (s *Service) classSelectors(ctx context.Context) ([]string, error) {
	classes, err := s.roster.Classes(ctx)
	if err != nil {
		return nil, err
	}
	selectors := make([]string, len(classes))
	for i, c := range classes {
		selectors[i] = c.String()
	}
	return selectors, nil
}

// Taxonomy returns the skills of the ledger.
func (s *Service) Taxonomy(ctx context.Context) (Taxonomy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taxonomy(ctx)
}

func (s *Service) taxonomy(ctx context.Context) (Taxonomy, error) {
	grid, err := s.ledgerStore.ReadTable(ctx, s.settings.LedgerTable)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return Taxonomy{}, missingTable(s.settings.LedgerTable)
		}
		return Taxonomy{}, errors.Wrapf(err, "reading %q", s.settings.LedgerTable)
	}
	header := grid.Row(ledgerHeaderRow, grid.Cols())
	return ExtractTaxonomy(header, s.settings.IdentityOffset, s.settings.Prefixes), nil
}

// SelectClass rebuilds the working view for `selector` and pulls the students' marks from the ledger.
func (s *Service) SelectClass(ctx context.Context, selector string, actor core.Actor) (Snapshot, PullSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	class, err := ParseClass(selector)
	if err != nil {
		return Snapshot{}, PullSummary{}, err
	}
	tax, err := s.taxonomy(ctx)
	if err != nil {
		return Snapshot{}, PullSummary{}, err
	}
	students, err := s.roster.Load(ctx, class)
	if err != nil {
		return Snapshot{}, PullSummary{}, err
	}
	classes, err := s.classSelectors(ctx)
	if err != nil {
		return Snapshot{}, PullSummary{}, err
	}

	v := Project(class.String(), tax, students, s.settings.AttendanceSlots)
	if err = s.projector.Render(ctx, v, classes); err != nil {
		return Snapshot{}, PullSummary{}, errors.Wrap(err, "rendering view")
	}
	s.state = StateEmpty
	s.class = class

	sum, err := s.merger.Pull(ctx, v)
	if err != nil {
		return Snapshot{}, sum, errors.Wrap(err, "pulling marks")
	}
	s.state = StatePulled

	entry := NewHistoryEntry(HistorySelect, class.String(), s.settings.Session, actor)
	entry.Skipped = len(sum.Unmatched)
	entry.Detail = sum.String()
	s.record(ctx, entry)

	snap, err := s.snapshot(ctx)
	return snap, sum, err
}

// Snapshot is the working view as currently stored.
type Snapshot struct {
	Class  string     `json:"class"`
	Status string     `json:"status"`
	State  ViewState  `json:"state"`
	Layout Layout     `json:"layout"`
	Grid   sheet.Grid `json:"grid"`
}

// View returns the current working view.
func (s *Service) View(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(ctx)
}

func (s *Service) snapshot(ctx context.Context) (Snapshot, error) {
	grid, err := s.readView(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	lay := ParseLayout(grid.Row(HeaderRow, grid.Cols()))
	return Snapshot{
		Class:  strings.TrimSpace(grid.Get(SelectorRow, SelectorCol)),
		Status: grid.Get(StatusRow, 0),
		State:  s.state,
		Layout: lay,
		Grid:   grid.Pad(grid.Cols()),
	}, nil
}

func (s *Service) readView(ctx context.Context) (sheet.Grid, error) {
	grid, err := s.workbook.ReadTable(ctx, s.settings.ViewTable)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return nil, missingTable(s.settings.ViewTable)
		}
		return nil, errors.Wrapf(err, "reading %q", s.settings.ViewTable)
	}
	return grid, nil
}

// MarkEdit sets one mark of the working view.
type MarkEdit struct {
	First string `json:"first" validate:"required_without=Last"`
	Last  string `json:"last"`
	Skill string `json:"skill" validate:"notblank"`
	// End targets the skill's End column.
	End   bool   `json:"end"`
	Value string `json:"value" validate:"mark"`
}

// EditMarks writes `edits` into the working view. Nothing is written unless every edit is valid.
func (s *Service) EditMarks(ctx context.Context, edits []MarkEdit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grid, err := s.readView(ctx)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(grid.Get(SelectorRow, SelectorCol)) == "" {
		return 0, ErrNoClassSelected
	}
	lay := ParseLayout(grid.Row(HeaderRow, grid.Cols()))
	rows := make(map[IdentityKey]int)
	for r := FirstStudentRow; r < grid.Rows(); r++ {
		key := NewIdentityKey(grid.Get(r, lay.FirstCol), grid.Get(r, lay.LastCol))
		if _, ok := rows[key]; !ok && !key.Empty() {
			rows[key] = r
		}
	}

	var fields []core.FieldError
	cells := make([]sheet.CellUpdate, 0, len(edits))
	for i, edit := range edits {
		field := func(name string) string { return fmt.Sprintf("edits[%d].%s", i, name) }
		if edit.Value != MarkUnset && !ValidMark(edit.Value) {
			fields = append(fields, core.FieldError{Field: field("value"), Error: fmt.Sprintf("%q is not a mark", edit.Value)})
		}
		r, ok := rows[NewIdentityKey(edit.First, edit.Last)]
		if !ok {
			name := Student{First: edit.First, Last: edit.Last}.Name()
			fields = append(fields, core.FieldError{Field: field("first"), Error: fmt.Sprintf("%q is not in this class", name)})
		}
		sc, found := lay.Skill(edit.Skill)
		col := sc.Col
		if edit.End {
			col = sc.EndCol
		}
		if !found || col < 0 {
			fields = append(fields, core.FieldError{Field: field("skill"), Error: fmt.Sprintf("no %q column in the view", edit.Skill)})
			continue
		}
		if ok {
			cells = append(cells, sheet.CellUpdate{Row: r, Col: col, Value: edit.Value})
		}
	}
	if len(fields) > 0 {
		return 0, core.NewValidationError(errors.New("invalid mark edits"), fields...)
	}

	if _, err = s.workbookWriter.WriteCells(ctx, s.settings.ViewTable, cells); err != nil {
		return 0, errors.Wrapf(err, "writing %q", s.settings.ViewTable)
	}
	if len(cells) > 0 {
		s.state = StateDirty
	}
	return len(cells), nil
}

// ApplyEdit takes note of a cell edited directly in the working view.
// Only edits to student rows of a selected class make the view dirty.
func (s *Service) ApplyEdit(_ context.Context, row, col int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEmpty || row < FirstStudentRow {
		return
	}
	if value != MarkUnset && !ValidMark(value) {
		s.logger.Debug(fmt.Sprintf("view: %q at row %d, col %d is not a mark and will not be pushed", value, row+1, col+1))
	}
	s.state = StateDirty
}

// Push writes the marks of the working view into the ledger.
func (s *Service) Push(ctx context.Context, actor core.Actor) (PushSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.merger.Push(ctx)
	if err != nil {
		return sum, err
	}
	s.state = StateSynced

	entry := NewHistoryEntry(HistoryPush, sum.Class, s.settings.Session, actor)
	entry.New = sum.New
	entry.Updated = sum.Updated
	entry.Skipped = sum.Skipped
	entry.Conflicts = sum.Conflicts
	if len(sum.NotFound) > 0 {
		entry.Detail = "not in ledger: " + strings.Join(sum.NotFound, ", ")
	}
	s.record(ctx, entry)

	msg := sum.String()
	if entry.Detail != "" {
		msg += "\n" + entry.Detail
	}
	s.prompter.Alert("Push complete", msg)
	return sum, nil
}

// ImportRequest replaces a whole table with imported rows.
type ImportRequest struct {
	Table     string
	Source    sheet.Grid
	Confirmed bool
	Actor     core.Actor
}

// Import replaces the roster or the ledger with `req.Source`, once confirmed.
func (s *Service) Import(ctx context.Context, req ImportRequest) (sheet.BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := strings.TrimSpace(req.Table)
	if table == "" {
		table = s.settings.RosterTable
	}
	writer := s.workbookWriter
	store := s.workbook
	switch table {
	case s.settings.RosterTable:
	case s.settings.LedgerTable:
		writer, store = s.ledgerWriter, s.ledgerStore
	default:
		return sheet.BatchReport{}, core.NewValidationError(
			errors.Errorf("cannot import into %q", table),
			core.FieldError{Field: "table", Error: fmt.Sprintf("must be %q or %q", s.settings.RosterTable, s.settings.LedgerTable)},
		)
	}
	src := req.Source.Trim()
	if len(src) == 0 {
		return sheet.BatchReport{}, core.NewValidationError(
			errors.New("nothing to import"),
			core.FieldError{Field: "source", Error: "has no rows"},
		)
	}

	if !req.Confirmed {
		current := 0
		if grid, err := store.ReadTable(ctx, table); err == nil {
			current = len(grid.Trim())
		}
		ok, err := s.prompter.Confirm(
			fmt.Sprintf("Replace %s", table),
			fmt.Sprintf("Replace the %d rows of %q with %d imported rows?", current, table, len(src)),
		)
		if err != nil {
			return sheet.BatchReport{}, errors.Wrap(err, "asking for confirmation")
		}
		if !ok {
			return sheet.BatchReport{}, ErrNotConfirmed
		}
	}

	report, err := writer.Replace(ctx, table, src)
	if err != nil {
		return report, err
	}

	entry := NewHistoryEntry(HistoryImport, "", s.settings.Session, req.Actor)
	entry.New = report.Rows
	entry.Detail = report.String()
	s.record(ctx, entry)
	s.prompter.Alert("Import complete", report.String())
	return report, nil
}

// History returns the recorded sync operations.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	return s.history.Query(ctx, filter)
}

// record never fails an operation that already completed.
func (s *Service) record(ctx context.Context, entry HistoryEntry) {
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Error(fmt.Sprintf("history: recording %s", entry.Kind), err)
	}
}
