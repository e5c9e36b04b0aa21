// Package response holds the JSON envelope helpers shared by all handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v with the standard JSON content type. Encoding
// errors are unrecoverable once the status line is out, so they are
// dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError sends the flat {"error": message} shape every handler uses
// for failures.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// PaginatedResponse is the envelope for cursor-paginated listings.
type PaginatedResponse struct {
	Items      any    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// WritePaginated wraps items in the pagination envelope.
func WritePaginated(w http.ResponseWriter, status int, items any, nextCursor string, hasMore bool) {
	WriteJSON(w, status, PaginatedResponse{Items: items, NextCursor: nextCursor, HasMore: hasMore})
}
