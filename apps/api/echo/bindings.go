package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
)

const (
	orderingParam   = "ordering"
	maxHistoryLimit = 100
)

// HistoryQuery is the query string of GET /history, e.g. `?class=Level+2&kind=push&limit=10&ordering=-created_at`.
type HistoryQuery struct {
	Class string `query:"class"`
	Kind  string `query:"kind"`
	Limit int    `query:"limit"`
}

// bindHistoryFilter reads a HistoryFilter from the query string.
// The limit is capped at maxHistoryLimit; unknown ordering fields are dropped by the repository.
func bindHistoryFilter(ctx echo.Context) (lesson.HistoryFilter, error) {
	query := new(HistoryQuery)
	if err := ctx.Bind(query); err != nil {
		return lesson.HistoryFilter{}, err
	}

	limit := query.Limit
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return lesson.HistoryFilter{
		Class:    core.CleanString(query.Class),
		Kind:     lesson.HistoryKind(core.CleanString(query.Kind, true /* lower */)),
		Limit:    limit,
		Ordering: parseOrdering(ctx.QueryParams()[orderingParam]),
	}, nil
}

// parseOrdering reads comma separated fields, "-" prefixed for descending order.
// The parameter may be repeated: `?ordering=kind&ordering=-created_at`.
func parseOrdering(values []string) []core.DBOrdering {
	var orderings []core.DBOrdering
	for _, val := range values {
		for _, field := range strings.Split(val, ",") {
			field = strings.TrimSpace(field)
			descending := strings.HasPrefix(field, "-")
			field = strings.TrimPrefix(field, "-")
			if field == "" {
				continue
			}
			orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
	return orderings
}
