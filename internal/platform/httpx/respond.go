// Package httpx holds the JSON conventions shared by every handler:
// response encoding, RFC 7807 problem bodies, and the sentinel error
// mapping in errors.go.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail is the RFC 7807 body carried by every error response.
// Type stays empty until a problem-type registry exists.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with the given status. Encode failures are dropped
// since the status line is already on the wire by then.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, "application/json", status, data)
}

// Problem writes an RFC 7807 error body under the problem+json media type.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, "application/problem+json", status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON fills target from the request body. Handlers turn the error
// into a 400 problem.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func writeJSON(w http.ResponseWriter, contentType string, status int, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
