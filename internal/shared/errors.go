package shared

import "errors"

// Sentinels for the auth and request plumbing. Domain services wrap the
// httpx set instead.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")

	// ErrLockHeld reports that another process owns the critical section.
	ErrLockHeld = errors.New("lock held")
)
