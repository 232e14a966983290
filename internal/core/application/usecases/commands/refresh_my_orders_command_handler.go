package commands

import (
	"context"
	"fmt"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/ports"
)

// RefreshMyOrdersCommandHandler restores or clears the active order from the
// server's list of orders held by this courier. Runs at start-up and on every
// poll while online, so an order cancelled or delivered upstream disappears.
type RefreshMyOrdersCommandHandler struct {
	store   *state.Store
	catalog ports.CatalogClient
}

func NewRefreshMyOrdersCommandHandler(store *state.Store, catalog ports.CatalogClient) RefreshMyOrdersCommandHandler {
	return RefreshMyOrdersCommandHandler{store: store, catalog: catalog}
}

func (h RefreshMyOrdersCommandHandler) Handle(ctx context.Context, cmd RefreshMyOrdersCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	seq := h.store.BeginFetch(state.ResourceMyOrders)
	list, err := h.catalog.ListMyOrders(ctx)
	if err != nil {
		h.store.FailFetch(seq, state.ResourceMyOrders)
		return fmt.Errorf("list my orders: %w", err)
	}
	h.store.ApplyMyOrders(seq, list)
	return nil
}
