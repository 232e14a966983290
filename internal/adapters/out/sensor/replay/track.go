// Package replay plays a recorded YAML track back as a live location sensor.
// It stands in for a phone when exercising the dispatch loop without field
// work.
//
// A track file looks like:
//
//	name: kadikoy-loop
//	loop: true
//	points:
//	  - at: 0s
//	    lat: 41.0082
//	    lng: 28.9784
//	    heading: 90
//	    speed: 4.2
//	  - at: 15s
//	    lat: 41.0090
//	    lng: 28.9790
//	  - at: 20s
//	    error: permission_denied
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

// Track is a decoded recording.
type Track struct {
	Name    string  `yaml:"name"`
	Loop    bool    `yaml:"loop"`
	Speedup float64 `yaml:"speedup"`
	Points  []Point `yaml:"points"`
}

// Point is one recorded fix, or an injected sensor error when Error is set.
type Point struct {
	At       time.Duration `yaml:"at"`
	Lat      float64       `yaml:"lat"`
	Lng      float64       `yaml:"lng"`
	Heading  *float64      `yaml:"heading"`
	Speed    *float64      `yaml:"speed"`
	Accuracy *float64      `yaml:"accuracy"`
	Error    string        `yaml:"error"`
}

// LoadTrack reads and validates a track file.
func LoadTrack(path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return Track{}, fmt.Errorf("open track: %w", err)
	}
	defer f.Close()
	return ParseTrack(f)
}

// ParseTrack decodes a track from YAML.
func ParseTrack(r io.Reader) (Track, error) {
	var t Track
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Track{}, fmt.Errorf("decode track: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Track{}, err
	}
	return t, nil
}

// Validate requires at least one point and non-decreasing offsets.
func (t Track) Validate() error {
	if len(t.Points) == 0 {
		return errs.NewValueIsRequiredError("points")
	}
	if t.Speedup < 0 {
		return errs.NewValueIsInvalidErrorWithCause("speedup", fmt.Errorf("%v is negative", t.Speedup))
	}
	var problems []error
	var prev time.Duration
	for i, p := range t.Points {
		if p.At < prev {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
				fmt.Sprintf("points[%d].at", i), fmt.Errorf("%s is before %s", p.At, prev)))
		}
		prev = p.At
		if p.Error != "" {
			continue
		}
		if _, err := p.position(time.Now()); err != nil {
			problems = append(problems, fmt.Errorf("points[%d]: %w", i, err))
		}
	}
	return errors.Join(problems...)
}

// Duration is the offset of the last point.
func (t Track) Duration() time.Duration {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[len(t.Points)-1].At
}

func (p Point) position(capturedAt time.Time) (kernel.Position, error) {
	pos, err := kernel.NewPosition(p.Lat, p.Lng, capturedAt)
	if err != nil {
		return kernel.Position{}, err
	}
	if p.Heading != nil {
		if pos, err = pos.WithHeading(*p.Heading); err != nil {
			return kernel.Position{}, err
		}
	}
	if p.Speed != nil {
		if pos, err = pos.WithSpeed(*p.Speed); err != nil {
			return kernel.Position{}, err
		}
	}
	if p.Accuracy != nil {
		if pos, err = pos.WithAccuracy(*p.Accuracy); err != nil {
			return kernel.Position{}, err
		}
	}
	return pos, nil
}

func (p Point) sensorError() error {
	switch p.Error {
	case "permission_denied":
		return ports.ErrSensorPermissionDenied
	case "unsupported":
		return ports.ErrSensorUnsupported
	case "timeout":
		return ports.ErrSensorTimeout
	default:
		return fmt.Errorf("replayed sensor error: %s", p.Error)
	}
}
