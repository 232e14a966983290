package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/model/claim"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
)

// ClaimOrderCommandHandler runs the claim race for one order at a time per order.
//
// Outcomes:
//   - success: the granted order becomes the active order in status assigned,
//     leaves every available list, the claim panel closes and a catalog
//     refresh is scheduled
//   - conflict: the order is marked claimed-by-other on the attempt, dropped
//     from every available list and an informational toast is shown; no error
//     is returned and nothing is retried
//   - error: local state is unchanged and the cause is returned
//
// A second claim for an order whose first claim is still pending returns
// ErrClaimInFlight without calling the server.
type ClaimOrderCommandHandler struct {
	store     *state.Store
	client    ports.ClaimClient
	toasts    ports.ToastPublisher
	refresher CatalogRefresher
	now       Clock
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]claim.Attempt
}

// NewClaimOrderCommandHandler wires the claim flow. refresher and toasts may be nil.
func NewClaimOrderCommandHandler(
	store *state.Store,
	client ports.ClaimClient,
	toasts ports.ToastPublisher,
	refresher CatalogRefresher,
	now Clock,
	logger *slog.Logger,
) *ClaimOrderCommandHandler {
	if toasts == nil {
		toasts = noopToasts{}
	}
	if refresher == nil {
		refresher = noopRefresher{}
	}
	if now == nil {
		now = time.Now
	}
	return &ClaimOrderCommandHandler{
		store:     store,
		client:    client,
		toasts:    toasts,
		refresher: refresher,
		now:       now,
		logger:    logger.With("component", "claim-coordinator"),
		pending:   make(map[string]claim.Attempt),
	}
}

// SetRefresher replaces the refresher; used to close the wiring cycle with the scheduler.
func (h *ClaimOrderCommandHandler) SetRefresher(r CatalogRefresher) {
	if r == nil {
		r = noopRefresher{}
	}
	h.refresher = r
}

// Handle claims cmd's order. See ClaimOrderCommandHandler for the outcomes.
func (h *ClaimOrderCommandHandler) Handle(ctx context.Context, cmd ClaimOrderCommand) (claim.Attempt, error) {
	if err := cmd.Validate(); err != nil {
		return claim.Attempt{}, err
	}
	orderID := cmd.OrderID()

	attempt, err := claim.NewAttempt(orderID, h.now())
	if err != nil {
		return claim.Attempt{}, err
	}
	if inflight, busy := h.begin(attempt); busy {
		return inflight, ErrClaimInFlight
	}
	defer h.end(orderID)

	log := h.logger.With("order_id", orderID, "attempt_id", attempt.ID().String())
	granted, err := h.client.ClaimOrder(ctx, orderID, attempt.ID())

	switch {
	case err == nil:
		active, adoptErr := h.adopt(orderID, granted)
		if adoptErr != nil {
			return h.fail(ctx, log, attempt, adoptErr)
		}
		h.store.ApplyClaimSuccess(active)
		h.refresher.RefreshCatalog()
		metrics.ClaimAttempts.WithLabelValues(claim.Success.String()).Inc()
		log.InfoContext(ctx, "order claimed")
		h.toasts.Publish(ports.Toast{
			ID:      attempt.ID().String(),
			Level:   ports.ToastSuccess,
			Title:   "Order claimed",
			Message: fmt.Sprintf("Order %s is yours. Head to the pickup.", displayCode(active)),
			At:      h.now(),
		})
		return attempt.Succeed(active)

	case errors.Is(err, ports.ErrClaimConflict):
		lost := h.store.ApplyClaimConflict(orderID)
		metrics.ClaimAttempts.WithLabelValues(claim.Conflict.String()).Inc()
		log.InfoContext(ctx, "order claimed by another courier")

		detail := "Another courier claimed this order first."
		var conflict *ports.ClaimConflictError
		if errors.As(err, &conflict) && conflict.Detail != "" {
			detail = conflict.Detail
		}
		h.toasts.Publish(ports.Toast{
			ID:      attempt.ID().String(),
			Level:   ports.ToastInfo,
			Title:   "Order taken",
			Message: detail,
			At:      h.now(),
		})
		return attempt.Lose(detail, lost)

	default:
		return h.fail(ctx, log, attempt, err)
	}
}

// Pending returns the ids of orders with a claim in flight, sorted.
func (h *ClaimOrderCommandHandler) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *ClaimOrderCommandHandler) begin(a claim.Attempt) (claim.Attempt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if inflight, ok := h.pending[a.OrderID()]; ok {
		return inflight, true
	}
	h.pending[a.OrderID()] = a
	return a, false
}

func (h *ClaimOrderCommandHandler) end(orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, orderID)
}

// adopt turns the server's answer into the local active order. A 200 without
// a body falls back to the cached copy of the order.
func (h *ClaimOrderCommandHandler) adopt(orderID string, granted *order.Order) (*order.Order, error) {
	if granted.Validate() != nil {
		cached, ok := h.store.Snapshot().FindOrder(orderID)
		if !ok {
			return nil, fmt.Errorf("claim of %s succeeded without an order body and the order is not cached", orderID)
		}
		granted = cached
	}

	active := granted.Clone()
	if err := active.MarkAssigned(); err != nil && !active.Status().IsHeldByCourier() {
		return nil, fmt.Errorf("claimed order %s is %s: %w", orderID, active.Status(), err)
	}
	return active, nil
}

func (h *ClaimOrderCommandHandler) fail(
	ctx context.Context, log *slog.Logger, attempt claim.Attempt, cause error,
) (claim.Attempt, error) {
	metrics.ClaimAttempts.WithLabelValues(claim.Failed.String()).Inc()
	log.WarnContext(ctx, "claim failed", "error", cause)

	failed, err := attempt.Fail(cause)
	if err != nil {
		return attempt, err
	}
	return failed, fmt.Errorf("claim order %s: %w", attempt.OrderID(), cause)
}

func displayCode(o *order.Order) string {
	if o.Code() != "" {
		return o.Code()
	}
	return "#" + o.ID()
}
