package queries

import (
	"context"

	"dispatch/internal/core/application/state"
)

// PendingClaims lists the orders with a claim in flight.
type PendingClaims interface {
	Pending() []string
}

// GetStateQueryHandler builds the UI read model from a store snapshot.
type GetStateQueryHandler struct {
	store   *state.Store
	pending PendingClaims
}

// NewGetStateQueryHandler creates the handler; pending may be nil.
func NewGetStateQueryHandler(store *state.Store, pending PendingClaims) GetStateQueryHandler {
	return GetStateQueryHandler{store: store, pending: pending}
}

func (h GetStateQueryHandler) Handle(_ context.Context, query GetStateQuery) (GetStateQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetStateQueryResponse{}, err
	}

	snap := h.store.Snapshot()
	here := snap.Position

	resp := GetStateQueryResponse{
		Version:            snap.Version,
		Online:             snap.Online,
		Position:           newPositionView(here),
		CatalogStale:       snap.CatalogStale,
		Businesses:         make([]BusinessView, 0, len(snap.Businesses)),
		SelectedBusinessID: snap.SelectedBusinessID,
		SelectedOrders:     newOrderViews(snap.SelectedOrders(), here),
		MyOrders:           newOrderViews(snap.MyOrders, here),
		PendingClaims:      []string{},
	}
	if snap.LocationErr != nil {
		resp.LocationError = snap.LocationErr.Error()
	}
	for _, b := range snap.Businesses {
		resp.Businesses = append(resp.Businesses, newBusinessView(b, here))
	}
	if snap.DetailOrderID != "" {
		if o, ok := snap.FindOrder(snap.DetailOrderID); ok {
			v := NewOrderView(o, here)
			resp.DetailOrder = &v
		}
	}
	if snap.ActiveOrder != nil {
		v := NewOrderView(snap.ActiveOrder, here)
		resp.ActiveOrder = &v
	}
	if h.pending != nil {
		resp.PendingClaims = append(resp.PendingClaims, h.pending.Pending()...)
	}
	return resp, nil
}
