// Package business models the pickup points the courier sees on the map.
package business

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// ErrBusinessIsNotConstructed is returned when a Business was not built by RestoreBusiness.
var ErrBusinessIsNotConstructed = errors.New("Business must be created via RestoreBusiness constructor")

// Business is a nearby venue with orders ready for pickup. The catalog replaces
// the whole list on every poll, so a Business is never mutated in place.
type Business struct {
	id              string
	name            string
	location        kernel.GeoPoint
	readyOrderCount int
	guard           guard.ConstructorGuard
}

// RestoreBusiness validates the server's fields and returns the business.
//
// Parameters:
//   - id: server identifier, required
//   - name: display name
//   - location: where orders are collected, required
//   - readyOrderCount: orders awaiting pickup, >= 0
func RestoreBusiness(id, name string, location kernel.GeoPoint, readyOrderCount int) (*Business, error) {
	var problems []error
	if strings.TrimSpace(id) == "" {
		problems = append(problems, errs.NewValueIsRequiredError("id"))
	}
	if err := location.Validate(); err != nil {
		problems = append(problems, errs.NewValueIsRequiredErrorWithCause("location", err))
	}
	if readyOrderCount < 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
			"readyOrderCount", fmt.Errorf("%d is negative", readyOrderCount)))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}

	return &Business{
		id:              id,
		name:            name,
		location:        location,
		readyOrderCount: readyOrderCount,
		guard:           guard.NewConstructorGuard(),
	}, nil
}

func (b *Business) Validate() error {
	if b == nil {
		return ErrBusinessIsNotConstructed
	}
	return b.guard.Validate(ErrBusinessIsNotConstructed)
}

func (b *Business) ID() string {
	return b.id
}

func (b *Business) Name() string {
	return b.name
}

func (b *Business) Location() kernel.GeoPoint {
	return b.location
}

func (b *Business) ReadyOrderCount() int {
	return b.readyOrderCount
}

// HasReadyOrders reports whether the business lists anything to pick up.
func (b *Business) HasReadyOrders() bool {
	return b.readyOrderCount > 0
}
