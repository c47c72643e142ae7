package dummydb

import (
	"sync"

	"github.com/trezcool/lessondesk/core/lesson"
)

// DefaultHistoryRows is how many history entries a memory database keeps.
const DefaultHistoryRows = 1000

type (
	DB struct {
		history *historyTable
	}

	historyTable struct {
		sync.RWMutex
		rows    []lesson.HistoryEntry
		maxRows int
	}
)

// Open returns an empty memory database keeping the last `maxHistoryRows` history entries
// (DefaultHistoryRows when not given).
func Open(maxHistoryRows ...int) (*DB, error) {
	keep := DefaultHistoryRows
	if len(maxHistoryRows) > 0 && maxHistoryRows[0] > 0 {
		keep = maxHistoryRows[0]
	}
	db := &DB{
		history: &historyTable{maxRows: keep},
	}
	return db, nil
}

// append must be called with the lock held. The oldest entries are dropped past maxRows.
func (t *historyTable) append(entry lesson.HistoryEntry) {
	t.rows = append(t.rows, entry)
	if extra := len(t.rows) - t.maxRows; extra > 0 {
		t.rows = append(t.rows[:0:0], t.rows[extra:]...)
	}
}
