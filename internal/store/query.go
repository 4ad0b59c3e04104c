// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Paging defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

const dateLayout = "2006-01-02"

// ErrInvalidQuery is returned for list parameters that cannot be applied.
var ErrInvalidQuery = errors.New("invalid query")

// where accumulates SQL conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likePattern escapes LIKE wildcards in a search term.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// dateRange adds created_at bounds. EndDate is inclusive of the whole day.
func (w *where) dateRange(q types.ListQuery) error {
	if q.StartDate != "" {
		start, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			return fmt.Errorf("%w: startDate %q: %v", ErrInvalidQuery, q.StartDate, err)
		}
		w.add("created_at >= ?", start.Format(dateLayout))
	}
	if q.EndDate != "" {
		end, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			return fmt.Errorf("%w: endDate %q: %v", ErrInvalidQuery, q.EndDate, err)
		}
		w.add("created_at < ?", end.AddDate(0, 0, 1).Format(dateLayout))
	}
	return nil
}

// orderBy maps a wire sort key through an allow list. Unknown keys sort by
// creation time, newest first.
func orderBy(q types.ListQuery, columns map[string]string) string {
	col, ok := columns[q.SortKey]
	if !ok {
		return " ORDER BY created_at DESC, id"
	}
	dir := "ASC"
	if strings.EqualFold(q.SortDir, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id", col, dir)
}

// limitOffset normalizes paging. Pages are 1-based.
func limitOffset(q types.ListQuery) (limit, offset int) {
	limit = q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
