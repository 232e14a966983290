package commands

import (
	"context"
	"fmt"
	"log/slog"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// AdvanceOrderCommandHandler drives the active order through accept, pickup,
// on_way and delivered.
//
// The transition is checked locally before the server is called. Re-applying
// the current status succeeds without a network call, matching the server's
// idempotent-by-status endpoints. Once the order is delivered the catalog is
// refreshed so the courier sees new work.
type AdvanceOrderCommandHandler struct {
	store     *state.Store
	client    ports.OrderLifecycleClient
	refresher CatalogRefresher
	logger    *slog.Logger
}

func NewAdvanceOrderCommandHandler(
	store *state.Store,
	client ports.OrderLifecycleClient,
	refresher CatalogRefresher,
	logger *slog.Logger,
) *AdvanceOrderCommandHandler {
	if refresher == nil {
		refresher = noopRefresher{}
	}
	return &AdvanceOrderCommandHandler{
		store:     store,
		client:    client,
		refresher: refresher,
		logger:    logger.With("component", "order-lifecycle"),
	}
}

// SetRefresher replaces the refresher; used to close the wiring cycle with the scheduler.
func (h *AdvanceOrderCommandHandler) SetRefresher(r CatalogRefresher) {
	if r == nil {
		r = noopRefresher{}
	}
	h.refresher = r
}

// Handle returns the updated active order.
func (h *AdvanceOrderCommandHandler) Handle(ctx context.Context, cmd AdvanceOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	active := h.store.Snapshot().ActiveOrder
	if active == nil || active.ID() != cmd.OrderID() {
		return nil, errs.NewObjectNotFoundError("active order", cmd.OrderID())
	}
	if active.Status() == cmd.Target() {
		return active, nil
	}

	apply := h.transition(cmd)
	if err := apply(active.Clone()); err != nil {
		return nil, err
	}

	if err := h.call(ctx, cmd); err != nil {
		return nil, fmt.Errorf("%s order %s: %w", cmd.Action(), cmd.OrderID(), err)
	}

	updated, err := h.store.UpdateActiveOrder(cmd.OrderID(), apply)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "order advanced", "order_id", cmd.OrderID(), "status", updated.Status().String())

	if updated.Status().IsFinal() {
		h.refresher.RefreshCatalog()
	}
	return updated, nil
}

func (h *AdvanceOrderCommandHandler) transition(cmd AdvanceOrderCommand) func(*order.Order) error {
	switch cmd.Action() {
	case ActionAccept:
		return (*order.Order).Accept
	case ActionConfirmPickup:
		return (*order.Order).ConfirmPickup
	default:
		target := cmd.Target()
		return func(o *order.Order) error { return o.UpdateStatus(target) }
	}
}

func (h *AdvanceOrderCommandHandler) call(ctx context.Context, cmd AdvanceOrderCommand) error {
	switch cmd.Action() {
	case ActionAccept:
		return h.client.AcceptOrder(ctx, cmd.OrderID())
	case ActionConfirmPickup:
		return h.client.ConfirmPickup(ctx, cmd.OrderID())
	default:
		return h.client.UpdateOrderStatus(ctx, cmd.OrderID(), cmd.Target())
	}
}
