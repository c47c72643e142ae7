package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
)

type historyRepository struct {
	db *historyTable
}

var _ lesson.History = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) lesson.History {
	return &historyRepository{db: db.history}
}

func (repo *historyRepository) Record(_ context.Context, entry lesson.HistoryEntry) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.append(entry)
	return nil
}

func (repo *historyRepository) Query(_ context.Context, filter lesson.HistoryFilter) ([]lesson.HistoryEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]lesson.HistoryEntry, 0, len(repo.db.rows))
	for _, e := range repo.db.rows {
		if filter.Class != "" && !strings.EqualFold(e.Class, filter.Class) {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		entries = append(entries, e)
	}

	orderings := filter.Ordering
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareEntries(entries[i], entries[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func compareEntries(a, b lesson.HistoryEntry, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	case "kind":
		return strings.Compare(string(a.Kind), string(b.Kind))
	case "class":
		return strings.Compare(a.Class, b.Class)
	case "actor":
		return strings.Compare(a.Actor, b.Actor)
	}
	return 0
}
