package ports

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
)

var (
	// ErrSensorPermissionDenied means the user refused location access.
	ErrSensorPermissionDenied = errors.New("location permission denied")
	// ErrSensorUnsupported means the device has no usable location source.
	ErrSensorUnsupported = errors.New("location sensor unsupported")
	// ErrSensorTimeout means no fix arrived within WatchOptions.Timeout.
	ErrSensorTimeout = errors.New("location sensor timed out")
)

// WatchOptions tune a continuous location watch.
type WatchOptions struct {
	// HighAccuracy requests the most precise source available (GPS over network).
	HighAccuracy bool
	// MaximumAge is the oldest cached fix the sensor may hand out. Zero means
	// fresh fixes only.
	MaximumAge time.Duration
	// Timeout bounds the wait for the first fix. Zero disables it.
	Timeout time.Duration
}

// PositionStream is one live watch. Samples and Errors are closed after Close
// returns or once the sensor gives up.
type PositionStream interface {
	Samples() <-chan kernel.Position
	Errors() <-chan error
	Close() error
}

// LocationSensor opens continuous watches on the device's location source.
//
// Errors delivered on a stream that match ErrSensorPermissionDenied,
// ErrSensorUnsupported or ErrSensorTimeout are terminal; anything else is a
// transient glitch the stream recovers from.
type LocationSensor interface {
	Watch(ctx context.Context, opts WatchOptions) (PositionStream, error)
}

// IsTerminalSensorError reports whether err ends a watch for good.
func IsTerminalSensorError(err error) bool {
	return errors.Is(err, ErrSensorPermissionDenied) ||
		errors.Is(err, ErrSensorUnsupported) ||
		errors.Is(err, ErrSensorTimeout)
}
