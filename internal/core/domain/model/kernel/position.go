package kernel

import (
	"fmt"
	"math"
	"time"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrPositionIsNotConstructed is returned when a Position was not built by NewPosition.
var ErrPositionIsNotConstructed = errs.NewValueIsRequiredError(
	"position must be created via NewPosition constructor")

// Position is one courier location sample. It is ephemeral: every new sample
// replaces the previous one and samples are never merged.
//
// Heading, speed and accuracy are optional because not every fix carries them;
// their accessors report presence with a second return value.
type Position struct {
	point      GeoPoint
	heading    *float64
	speed      *float64
	accuracy   *float64
	capturedAt time.Time
	guard      guard.ConstructorGuard
}

// NewPosition creates a sample at lat/lng captured at capturedAt.
//
// Returns:
//   - Position: the validated sample without heading, speed or accuracy
//   - error: coordinate range errors, or ValueIsRequiredError for a zero capturedAt
func NewPosition(lat, lng float64, capturedAt time.Time) (Position, error) {
	point, err := NewGeoPoint(lat, lng)
	if err != nil {
		return Position{}, err
	}
	if capturedAt.IsZero() {
		return Position{}, errs.NewValueIsRequiredError("capturedAt")
	}

	return Position{
		point:      point,
		capturedAt: capturedAt,
		guard:      guard.NewConstructorGuard(),
	}, nil
}

// WithHeading returns a copy carrying heading in degrees clockwise from north, [0, 360).
func (p Position) WithHeading(heading float64) (Position, error) {
	if heading < 0 || heading >= 360 || math.IsNaN(heading) {
		return Position{}, errs.NewValueIsOutOfRangeError("heading", heading, 0, 360)
	}
	p.heading = &heading
	return p, nil
}

// WithSpeed returns a copy carrying ground speed in metres per second.
func (p Position) WithSpeed(speed float64) (Position, error) {
	if speed < 0 || math.IsNaN(speed) {
		return Position{}, errs.NewValueIsOutOfRangeError("speed", speed, 0, math.Inf(1))
	}
	p.speed = &speed
	return p, nil
}

// WithAccuracy returns a copy carrying the horizontal accuracy radius in metres.
func (p Position) WithAccuracy(accuracy float64) (Position, error) {
	if accuracy < 0 || math.IsNaN(accuracy) {
		return Position{}, errs.NewValueIsOutOfRangeError("accuracy", accuracy, 0, math.Inf(1))
	}
	p.accuracy = &accuracy
	return p, nil
}

// Validate reports whether the sample was built through NewPosition.
func (p Position) Validate() error {
	return p.guard.Validate(ErrPositionIsNotConstructed)
}

// Point returns the sample's coordinates.
func (p Position) Point() GeoPoint {
	return p.point
}

// Lat returns the latitude in degrees.
func (p Position) Lat() float64 {
	return p.point.Lat()
}

// Lng returns the longitude in degrees.
func (p Position) Lng() float64 {
	return p.point.Lng()
}

// Heading returns the heading and whether the sample carries one.
func (p Position) Heading() (float64, bool) {
	return optional(p.heading)
}

// Speed returns the speed and whether the sample carries one.
func (p Position) Speed() (float64, bool) {
	return optional(p.speed)
}

// Accuracy returns the accuracy radius and whether the sample carries one.
func (p Position) Accuracy() (float64, bool) {
	return optional(p.accuracy)
}

// CapturedAt returns when the sensor produced the fix.
func (p Position) CapturedAt() time.Time {
	return p.capturedAt
}

// String implements fmt.Stringer.
func (p Position) String() string {
	return fmt.Sprintf("Position(%f,%f @ %s)", p.point.Lat(), p.point.Lng(), p.capturedAt.Format(time.RFC3339))
}

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
