package tracking

import (
	"errors"
	"fmt"
)

var (
	// ErrLocationUnavailable is matched by every terminal watch failure.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrWatchActive is returned when retrying a watch that is still running.
	ErrWatchActive = errors.New("location watch is still active")
	// ErrNoWatch is returned when retrying a nil watch.
	ErrNoWatch = errors.New("no location watch")

	errStreamEnded = errors.New("location stream ended")
)

// LocationUnavailableError is the terminal error of a watch. It matches both
// ErrLocationUnavailable and the sensor's cause.
type LocationUnavailableError struct {
	Cause error
}

func (e *LocationUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrLocationUnavailable, e.Cause)
}

func (e *LocationUnavailableError) Unwrap() []error {
	return []error{ErrLocationUnavailable, e.Cause}
}
