package wsfeed

import (
	"encoding/json"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

type messageType string

const (
	typeWatch          messageType = "watch"
	typeLocationUpdate messageType = "location_update"
	typeError          messageType = "error"
)

// Error codes follow the browser GeolocationPositionError numbering so a
// web bridge can forward them untouched.
const (
	codePermissionDenied    = 1
	codePositionUnavailable = 2
	codeTimeout             = 3
	codeUnsupported         = 4
)

type message struct {
	Type      messageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type watchRequest struct {
	HighAccuracy bool  `json:"highAccuracy"`
	MaximumAgeMs int64 `json:"maximumAge"`
	TimeoutMs    int64 `json:"timeout"`
}

type locationUpdate struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   *float64  `json:"heading"`
	Speed     *float64  `json:"speed"`
	Accuracy  *float64  `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (u locationUpdate) toPosition() (kernel.Position, error) {
	p, err := kernel.NewPosition(u.Lat, u.Lng, u.Timestamp)
	if err != nil {
		return kernel.Position{}, err
	}
	if u.Heading != nil {
		if p, err = p.WithHeading(*u.Heading); err != nil {
			return kernel.Position{}, err
		}
	}
	if u.Speed != nil {
		if p, err = p.WithSpeed(*u.Speed); err != nil {
			return kernel.Position{}, err
		}
	}
	if u.Accuracy != nil {
		if p, err = p.WithAccuracy(*u.Accuracy); err != nil {
			return kernel.Position{}, err
		}
	}
	return p, nil
}

type sensorError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e sensorError) toError() error {
	var base error
	switch e.Code {
	case codePermissionDenied:
		base = ports.ErrSensorPermissionDenied
	case codeTimeout:
		base = ports.ErrSensorTimeout
	case codeUnsupported:
		base = ports.ErrSensorUnsupported
	case codePositionUnavailable:
		return fmt.Errorf("position unavailable: %s", e.Message)
	default:
		return fmt.Errorf("location feed error %d: %s", e.Code, e.Message)
	}
	if e.Message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, e.Message)
}
