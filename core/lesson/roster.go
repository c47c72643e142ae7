package lesson

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/sheet"
)

const rosterHeaderRow = 0

// roster header aliases, lower case
var rosterHeaders = map[string][]string{
	"first":    {"first", "first name", "firstname"},
	"last":     {"last", "last name", "lastname", "surname"},
	"age":      {"age"},
	"guardian": {"guardian", "parent", "parent/guardian"},
	"email":    {"email", "e-mail"},
	"phone":    {"phone", "phone number", "tel"},
	"program":  {"program", "programme", "level", "class"},
	"day":      {"day"},
	"time":     {"time"},
	"notes":    {"notes", "note", "comments"},
}

type rosterColumns map[string]int

func locateRosterColumns(header []string) rosterColumns {
	cols := make(rosterColumns, len(rosterHeaders))
	for field, aliases := range rosterHeaders {
		cols[field] = -1
	loop:
		for i, h := range header {
			h = core.CleanString(h, true /* lower */)
			for _, alias := range aliases {
				if h == alias {
					cols[field] = i
					break loop
				}
			}
		}
	}
	return cols
}

func (cols rosterColumns) get(row []string, field string) string {
	i := cols[field]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// RosterLoader reads the students of a class out of the roster table.
type RosterLoader struct {
	store  sheet.Store
	table  string
	mode   MatchMode
	logger core.Logger
}

func NewRosterLoader(store sheet.Store, table string, mode MatchMode, logger core.Logger) *RosterLoader {
	if mode == "" {
		mode = MatchExact
	}
	return &RosterLoader{store: store, table: table, mode: mode, logger: logger}
}

func (l *RosterLoader) read(ctx context.Context) (sheet.Grid, rosterColumns, error) {
	grid, err := l.store.ReadTable(ctx, l.table)
	if err != nil {
		if errors.Is(err, sheet.ErrTableNotFound) {
			return nil, nil, missingTable(l.table)
		}
		return nil, nil, errors.Wrapf(err, "reading %q", l.table)
	}
	cols := locateRosterColumns(grid.Row(rosterHeaderRow, grid.Cols()))
	for _, req := range [][2]string{{"first", "First"}, {"last", "Last"}, {"program", "Program"}} {
		if cols[req[0]] < 0 {
			return nil, nil, &MissingDependencyError{Table: l.table, Column: req[1]}
		}
	}
	return grid, cols, nil
}

// Load returns the students of `class` in roster order, each at most once.
// Zero matches is not an error.
func (l *RosterLoader) Load(ctx context.Context, class Class) ([]Student, error) {
	grid, cols, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	var students []Student
	var unmatched int
	seen := make(map[IdentityKey]int)
	for r := rosterHeaderRow + 1; r < grid.Rows(); r++ {
		row := grid[r]
		st := Student{
			First:    cols.get(row, "first"),
			Last:     cols.get(row, "last"),
			Age:      cols.get(row, "age"),
			Guardian: cols.get(row, "guardian"),
			Email:    cols.get(row, "email"),
			Phone:    cols.get(row, "phone"),
			Notes:    cols.get(row, "notes"),
			Program:  cols.get(row, "program"),
			Day:      cols.get(row, "day"),
			Time:     cols.get(row, "time"),
		}
		if st.Key().Empty() {
			continue
		}
		if !l.matches(cols, st, class) {
			unmatched++
			continue
		}
		if prev, ok := seen[st.Key()]; ok {
			l.logger.Warn(fmt.Sprintf("roster: %q listed twice in %q (rows %d and %d), keeping the first", st.Name(), class, prev+1, r+1))
			continue
		}
		seen[st.Key()] = r
		students = append(students, st)
	}

	if unmatched > 0 {
		l.logger.Debug(fmt.Sprintf("roster: %d rows outside %q", unmatched, class))
	}
	return students, nil
}

func (l *RosterLoader) matches(cols rosterColumns, st Student, class Class) bool {
	program := strings.ToLower(st.Program)
	want := strings.ToLower(class.Program)
	if l.mode == MatchSubstring {
		return want != "" && strings.Contains(program, want)
	}

	// roster without Day/Time columns may hold the whole selector in Program
	if cols["day"] < 0 && cols["time"] < 0 && normalizeName(st.Program) == normalizeName(class.String()) {
		return true
	}
	if normalizeName(st.Program) != normalizeName(class.Program) {
		return false
	}
	if cols["day"] >= 0 && !strings.EqualFold(st.Day, class.Day) {
		return false
	}
	if cols["time"] >= 0 && normalizeTime(st.Time) != normalizeTime(class.Time) {
		return false
	}
	return true
}

func normalizeTime(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// Classes returns the distinct classes of the roster, in order of first appearance.
func (l *RosterLoader) Classes(ctx context.Context) ([]Class, error) {
	grid, cols, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	var classes []Class
	seen := make(map[string]bool)
	for r := rosterHeaderRow + 1; r < grid.Rows(); r++ {
		row := grid[r]
		program := cols.get(row, "program")
		if program == "" {
			continue
		}
		var class Class
		if cols["day"] < 0 && cols["time"] < 0 {
			class, _ = ParseClass(program)
		} else {
			class = Class{Program: program, Day: cols.get(row, "day"), Time: cols.get(row, "time")}
			if day, ok := core.ParseWeekday(class.Day); ok {
				class.Day = day.String()
			}
		}
		key := strings.ToLower(class.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		classes = append(classes, class)
	}
	return classes, nil
}
