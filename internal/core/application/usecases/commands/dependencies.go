// Package commands contains the operations that change the dispatch state.
// Every command is a guarded value validated by its handler; handlers talk to
// the dispatch server through ports and commit results to the state store.
package commands

import (
	"errors"
	"time"

	"dispatch/internal/core/ports"
)

var (
	// ErrOffline is returned by operations that need the courier online.
	ErrOffline = errors.New("courier is offline")
	// ErrNoPosition is returned before the first location sample arrived.
	ErrNoPosition = errors.New("no location sample yet")
	// ErrClaimInFlight is returned when a claim for the same order is still pending.
	ErrClaimInFlight = errors.New("claim already in flight for this order")
	// ErrFetchInFlight is returned when the same resource is already being fetched.
	ErrFetchInFlight = errors.New("fetch already in flight")
)

type (
	// CatalogRefresher schedules an out-of-band catalog refresh. Implementations
	// must not block and must not run two refreshes of one resource at once.
	CatalogRefresher interface {
		RefreshCatalog()
	}

	// Clock returns the current time.
	Clock func() time.Time
)

// IsExpected reports whether err is a normal precondition failure (offline,
// no fix yet, fetch already running) rather than a fault worth logging.
func IsExpected(err error) bool {
	return errors.Is(err, ErrOffline) || errors.Is(err, ErrNoPosition) || errors.Is(err, ErrFetchInFlight)
}

type noopRefresher struct{}

func (noopRefresher) RefreshCatalog() {}

type noopToasts struct{}

func (noopToasts) Publish(ports.Toast) {}
