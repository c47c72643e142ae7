package lesson

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/lessondesk/core"
)

type HistoryKind string

const (
	HistoryOpen   HistoryKind = "open"
	HistorySelect HistoryKind = "select"
	HistoryPush   HistoryKind = "push"
	HistoryImport HistoryKind = "import"
)

// HistoryEntry records a completed sync operation.
type HistoryEntry struct {
	ID        string      `json:"id"`
	Kind      HistoryKind `json:"kind"`
	Class     string      `json:"class,omitempty"`
	Session   string      `json:"session,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	New       int         `json:"new"`
	Updated   int         `json:"updated"`
	Skipped   int         `json:"skipped"`
	Conflicts int         `json:"conflicts"`
	Detail    string      `json:"detail,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewHistoryEntry(kind HistoryKind, class, session string, actor core.Actor) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Class:     class,
		Session:   session,
		Actor:     actorName(actor),
		CreatedAt: time.Now().UTC(),
	}
}

func actorName(actor core.Actor) string {
	switch {
	case actor.Name != "":
		return actor.Name
	case actor.Email != "":
		return actor.Email
	default:
		return actor.ID
	}
}

type HistoryFilter struct {
	Class    string
	Kind     HistoryKind
	Limit    int
	Ordering []core.DBOrdering
}

// History persists sync operations. Entries are returned newest first unless ordered otherwise.
type History interface {
	Record(ctx context.Context, entry HistoryEntry) error
	Query(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}

type nopHistory struct{}

func (nopHistory) Record(context.Context, HistoryEntry) error { return nil }

func (nopHistory) Query(context.Context, HistoryFilter) ([]HistoryEntry, error) { return nil, nil }
