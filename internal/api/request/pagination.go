package request

import (
	"net/http"
	"strconv"
)

// Page size bounds for cursor-paginated listings.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Pagination carries the page limit and the opaque cursor from the query
// string. The cursor is whatever next_cursor the previous page returned.
type Pagination struct {
	Limit  int
	Cursor string
}

// ParsePagination reads limit and cursor from the request. Non-numeric or
// non-positive limits fall back to the default; anything above MaxLimit is
// clamped down to it.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()

	limit := DefaultLimit
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Pagination{Limit: limit, Cursor: q.Get("cursor")}
}
