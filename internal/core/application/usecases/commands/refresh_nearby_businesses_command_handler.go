package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
)

// DefaultSearchRadiusMeters is the radius sent with nearby-business polls.
const DefaultSearchRadiusMeters = 5000

// RefreshNearbyBusinessesCommandHandler fetches the nearby catalog.
//
// A failed fetch keeps the previous list and raises the store's stale flag.
// With prefetch enabled the handler also loads the available orders of every
// nearby business with ready orders, so proximity alerts have pickup points to
// work with.
type RefreshNearbyBusinessesCommandHandler struct {
	store        *state.Store
	catalog      ports.CatalogClient
	orders       RefreshBusinessOrdersCommandHandler
	radiusMeters int
	prefetch     bool
	logger       *slog.Logger
}

func NewRefreshNearbyBusinessesCommandHandler(
	store *state.Store,
	catalog ports.CatalogClient,
	radiusMeters int,
	prefetch bool,
	logger *slog.Logger,
) RefreshNearbyBusinessesCommandHandler {
	if radiusMeters <= 0 {
		radiusMeters = DefaultSearchRadiusMeters
	}
	return RefreshNearbyBusinessesCommandHandler{
		store:        store,
		catalog:      catalog,
		orders:       NewRefreshBusinessOrdersCommandHandler(store, catalog),
		radiusMeters: radiusMeters,
		prefetch:     prefetch,
		logger:       logger.With("component", "catalog"),
	}
}

// Handle polls the nearby businesses. Returns ErrOffline or ErrNoPosition when
// the poll is not due, and the fetch error otherwise.
func (h RefreshNearbyBusinessesCommandHandler) Handle(ctx context.Context, cmd RefreshNearbyBusinessesCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	snap := h.store.Snapshot()
	if !snap.Online {
		return ErrOffline
	}
	if !snap.HasPosition() {
		return ErrNoPosition
	}

	seq := h.store.BeginFetch(state.ResourceBusinesses)
	list, err := h.catalog.ListNearbyBusinesses(ctx, *snap.Position, h.radiusMeters)
	if err != nil {
		h.store.FailFetch(seq, state.ResourceBusinesses)
		metrics.CatalogStale.Set(1)
		return fmt.Errorf("list nearby businesses: %w", err)
	}
	if h.store.ApplyBusinesses(seq, list) {
		h.logger.DebugContext(ctx, "nearby businesses refreshed", "count", len(list))
	}

	if !h.prefetch {
		h.syncStaleGauge()
		return nil
	}

	var problems []error
	cached := h.store.Snapshot()
	for _, b := range list {
		if b.Validate() != nil {
			continue
		}
		if !b.HasReadyOrders() {
			if len(cached.BusinessOrders[b.ID()]) > 0 {
				resource := state.BusinessOrdersResource(b.ID())
				h.store.ApplyBusinessOrders(h.store.BeginFetch(resource), b.ID(), nil)
			}
			continue
		}
		cmd, cmdErr := NewRefreshBusinessOrdersCommand(b.ID())
		if cmdErr != nil {
			continue
		}
		if err := h.orders.Handle(ctx, cmd); err != nil && !IsExpected(err) {
			problems = append(problems, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	h.syncStaleGauge()

	if len(problems) > 0 {
		h.logger.WarnContext(ctx, "order prefetch incomplete", "failed", len(problems))
	}
	return errors.Join(problems...)
}

func (h RefreshNearbyBusinessesCommandHandler) syncStaleGauge() {
	if h.store.Snapshot().CatalogStale {
		metrics.CatalogStale.Set(1)
		return
	}
	metrics.CatalogStale.Set(0)
}
