package commands

import (
	"context"
	"fmt"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/ports"
)

// RefreshBusinessOrdersCommandHandler fetches one business's available orders.
// Only one fetch per business runs at a time, whoever asks for it; a refresh
// that finds one running returns ErrFetchInFlight without calling the server.
type RefreshBusinessOrdersCommandHandler struct {
	store   *state.Store
	catalog ports.CatalogClient
}

func NewRefreshBusinessOrdersCommandHandler(store *state.Store, catalog ports.CatalogClient) RefreshBusinessOrdersCommandHandler {
	return RefreshBusinessOrdersCommandHandler{store: store, catalog: catalog}
}

func (h RefreshBusinessOrdersCommandHandler) Handle(ctx context.Context, cmd RefreshBusinessOrdersCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	resource := state.BusinessOrdersResource(cmd.BusinessID())
	seq, done, ok := h.store.TryBeginFetch(resource)
	if !ok {
		return ErrFetchInFlight
	}
	defer done()
	list, err := h.catalog.ListAvailableOrders(ctx, cmd.BusinessID())
	if err != nil {
		h.store.FailFetch(seq, resource)
		return fmt.Errorf("list available orders of business %s: %w", cmd.BusinessID(), err)
	}
	h.store.ApplyBusinessOrders(seq, cmd.BusinessID(), list)
	return nil
}
