package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
)

type historyRepository struct {
	exec core.DBExecutor
}

var _ lesson.History = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(exec core.DBExecutor) *historyRepository {
	return &historyRepository{exec: exec}
}

type historyRow struct {
	ID        string      `db:"id"`
	Kind      string      `db:"kind"`
	Class     null.String `db:"class_name"`
	Session   null.String `db:"session_name"`
	Actor     null.String `db:"actor"`
	New       int         `db:"new_marks"`
	Updated   int         `db:"updated"`
	Skipped   int         `db:"skipped"`
	Conflicts int         `db:"conflicts"`
	Detail    null.String `db:"detail"`
	CreatedAt time.Time   `db:"created_at"`
}

var historyOrderings = map[string]string{
	"created_at": "created_at",
	"kind":       "kind",
	"class":      "class_name",
	"actor":      "actor",
}

func (repo historyRepository) toRow(entry lesson.HistoryEntry) historyRow {
	return historyRow{
		ID:        entry.ID,
		Kind:      string(entry.Kind),
		Class:     null.NewString(entry.Class, entry.Class != ""),
		Session:   null.NewString(entry.Session, entry.Session != ""),
		Actor:     null.NewString(entry.Actor, entry.Actor != ""),
		New:       entry.New,
		Updated:   entry.Updated,
		Skipped:   entry.Skipped,
		Conflicts: entry.Conflicts,
		Detail:    null.NewString(entry.Detail, entry.Detail != ""),
		CreatedAt: entry.CreatedAt.UTC(),
	}
}

func (repo historyRepository) fromRow(row historyRow) lesson.HistoryEntry {
	return lesson.HistoryEntry{
		ID:        row.ID,
		Kind:      lesson.HistoryKind(row.Kind),
		Class:     row.Class.String,
		Session:   row.Session.String,
		Actor:     row.Actor.String,
		New:       row.New,
		Updated:   row.Updated,
		Skipped:   row.Skipped,
		Conflicts: row.Conflicts,
		Detail:    row.Detail.String,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo historyRepository) Record(ctx context.Context, entry lesson.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	q := `INSERT INTO sync_history
		(id, kind, class_name, session_name, actor, new_marks, updated, skipped, conflicts, detail, created_at)
		VALUES (:id, :kind, :class_name, :session_name, :actor, :new_marks, :updated, :skipped, :conflicts, :detail, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, repo.toRow(entry)); err != nil {
		return errors.Wrapf(err, "recording %s", entry.Kind)
	}
	return nil
}

func (repo historyRepository) Query(ctx context.Context, filter lesson.HistoryFilter) ([]lesson.HistoryEntry, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Class != "" {
		conds = append(conds, "LOWER(class_name) = LOWER(?)")
		args = append(args, filter.Class)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	q := "SELECT * FROM sync_history"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += core.OrderBy(filter.Ordering, historyOrderings, core.DBOrdering{Field: "created_at"})
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []historyRow
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	entries := make([]lesson.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, repo.fromRow(row))
	}
	return entries, nil
}
