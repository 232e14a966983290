package commands

import (
	"context"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/ports"
)

// SelectBusinessCommandHandler marks a business as selected and fetches its
// available orders right away. The scheduler keeps re-polling them while the
// panel stays open.
type SelectBusinessCommandHandler struct {
	store  *state.Store
	orders RefreshBusinessOrdersCommandHandler
}

func NewSelectBusinessCommandHandler(store *state.Store, catalog ports.CatalogClient) SelectBusinessCommandHandler {
	return SelectBusinessCommandHandler{
		store:  store,
		orders: NewRefreshBusinessOrdersCommandHandler(store, catalog),
	}
}

// Handle selects the business even when the fetch fails; the cached list, if
// any, stays visible with the stale flag raised.
func (h SelectBusinessCommandHandler) Handle(ctx context.Context, cmd SelectBusinessCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	h.store.SelectBusiness(cmd.BusinessID())

	refresh, err := NewRefreshBusinessOrdersCommand(cmd.BusinessID())
	if err != nil {
		return err
	}
	return h.orders.Handle(ctx, refresh)
}
