package courierapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches APIError values for 401 and 403 responses.
var ErrUnauthorized = errors.New("dispatch session rejected")

// APIError is a non-2xx answer from the dispatch server.
type APIError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: dispatch server returned %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: dispatch server returned %d: %s", e.Operation, e.StatusCode, e.Detail)
}

// Is makes errors.Is(err, ErrUnauthorized) hold for expired sessions.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Temporary reports whether retrying the same call later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
