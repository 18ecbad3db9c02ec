package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// whereClause accumulates Fetch conditions and their arguments.
type whereClause struct {
	conditions []string
	args       []any
}

// equals adds "column = ?" when filter carries key. A non-string value is
// ErrInvalidFilter.
func (w *whereClause) equals(filter types.Filter, key, column string) error {
	v, ok := filter[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return types.ErrInvalidFilter
	}
	w.conditions = append(w.conditions, column+" = ?")
	w.args = append(w.args, s)
	return nil
}

// likeEscaper escapes LIKE wildcards so q matches them literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// contains adds a case-insensitive substring match over columns when filter
// carries key.
func (w *whereClause) contains(filter types.Filter, key string, columns ...string) error {
	v, ok := filter[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return types.ErrInvalidFilter
	}
	if s == "" {
		return nil
	}
	like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = "LOWER(" + c + ") LIKE ? ESCAPE '\\'"
		w.args = append(w.args, like)
	}
	w.conditions = append(w.conditions, "("+strings.Join(parts, " OR ")+")")
	return nil
}

func (w *whereClause) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// pageClause renders LIMIT and OFFSET from filter. SQLite needs a LIMIT
// before OFFSET, so an offset alone pairs with LIMIT -1.
func pageClause(filter types.Filter) (string, error) {
	limit, err := intFilter(filter, "limit")
	if err != nil {
		return "", err
	}
	offset, err := intFilter(filter, "offset")
	if err != nil {
		return "", err
	}
	var clause string
	switch {
	case limit > 0:
		clause = fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		clause = " LIMIT -1"
	}
	if offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", offset)
	}
	return clause, nil
}

func intFilter(filter types.Filter, key string) (int, error) {
	v, ok := filter[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(int)
	if !ok || n < 0 {
		return 0, types.ErrInvalidFilter
	}
	return n, nil
}

// toAny widens a typed slice for the Table.Fetch return value. The result is
// never nil.
func toAny[T any](values []T) []any {
	out := make([]any, 0, len(values))
	for i := range values {
		v := values[i]
		out = append(out, &v)
	}
	return out
}
