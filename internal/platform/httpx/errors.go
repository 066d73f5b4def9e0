package httpx

import (
	"errors"
	"net/http"
)

// Sentinels the service layer wraps its failures in. Handlers hand the
// wrapped error to RespondError and get the right status back.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

var problemRules = []struct {
	sentinel error
	status   int
	title    string
}{
	{ErrValidation, http.StatusBadRequest, "Validation Failed"},
	{ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{ErrForbidden, http.StatusForbidden, "Forbidden"},
	{ErrNotFound, http.StatusNotFound, "Not Found"},
	{ErrDuplicate, http.StatusConflict, "Duplicate"},
}

// RespondError translates a service error into a problem response.
// Errors that match no sentinel become an opaque 500.
func RespondError(w http.ResponseWriter, err error) {
	for _, rule := range problemRules {
		if errors.Is(err, rule.sentinel) {
			Problem(w, rule.status, rule.title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
