package lesson

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
	logsvc "github.com/trezcool/lessondesk/services/logger"
	"github.com/trezcool/lessondesk/storage/sheets/dummy"
)

const (
	rosterTable = "Roster"
	ledgerTable = "Skills Ledger"
	viewTable   = "Class View"
)

var (
	instructor = core.Actor{ID: "1", Name: "Maya"}
	prefixes   = PrefixRule{Stage: "S", Supplemental: "SAW"}
)

func testSettings() Settings {
	return Settings{
		RosterTable:     rosterTable,
		LedgerTable:     ledgerTable,
		ViewTable:       viewTable,
		PropertiesTable: "_properties",
		AttendanceSlots: 2,
		IdentityOffset:  2,
		Prefixes:        prefixes,
		MatchMode:       MatchExact,
		ConflictPolicy:  ConflictOverwrite,
		Batch:           sheet.BatchOptions{ChunkSize: 500},
		Session:         "Fall 2026",
	}
}

var (
	// Ann Lee and Bo Kim are in Level 2
	levelRoster = sheet.Grid{
		{"First", "Last", "Age", "Program"},
		{"Ann", "Lee", "7", "Level 2"},
		{"Cy", "Ng", "9", "Level 3"},
		{"Bo", "Kim", "8", "Level 2"},
	}
	// Ann has S1-Float completed
	levelLedger = sheet.Grid{
		{"First", "Last", "S1-Float", "SAW-Glide"},
		{"Ann", "Lee", "X"},
		{"Bo", "Kim"},
		{"Cy", "Ng", "/", "X"},
	}
)

func seedWorkbook() *dummysheet.Store {
	mem := dummysheet.New()
	mem.Seed(rosterTable, levelRoster)
	mem.Seed(ledgerTable, levelLedger)
	return mem
}

// Level 2 view columns, with 2 attendance slots
const (
	colFloat    = 4
	colFloatEnd = 5
	colGlide    = 6
	colGlideEnd = 7

	rowAnn = FirstStudentRow
	rowBo  = FirstStudentRow + 1
)

func testLogger(t *testing.T) core.Logger {
	return logsvc.NewZapLogger(zaptest.NewLogger(t))
}

type testPrompter struct {
	mu       sync.Mutex
	answer   bool
	confirms []string
	alerts   []string
}

func (p *testPrompter) Confirm(title, _ string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirms = append(p.confirms, title)
	return p.answer, nil
}

func (p *testPrompter) Alert(title, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, title+": "+message)
}

func (p *testPrompter) Alerts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.alerts...)
}

type memHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *memHistory) Record(_ context.Context, entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memHistory) Query(_ context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []HistoryEntry
	for i := len(h.entries) - 1; i >= 0; i-- {
		e := h.entries[i]
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func newTestService(t *testing.T, mem sheet.Store, configure ...func(*Deps)) (*Service, *testPrompter, *memHistory) {
	prompter := &testPrompter{answer: true}
	history := &memHistory{}
	deps := Deps{
		Settings: testSettings(),
		Workbook: mem,
		History:  history,
		Prompter: prompter,
		Logger:   testLogger(t),
	}
	for _, fn := range configure {
		fn(&deps)
	}
	return NewService(deps), prompter, history
}
