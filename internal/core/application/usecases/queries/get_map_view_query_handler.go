package queries

import (
	"context"
	"sync"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/services"
)

// mapChanges are the store changes that can alter the map.
const mapChanges = state.ChangeOnline | state.ChangePosition | state.ChangeCatalog |
	state.ChangeSelection | state.ChangeClaim | state.ChangeReset

// GetMapViewQueryHandler renders map frames from the dispatch state.
type GetMapViewQueryHandler struct {
	store     *state.Store
	presenter services.MapPresenter
}

func NewGetMapViewQueryHandler(store *state.Store) GetMapViewQueryHandler {
	return GetMapViewQueryHandler{store: store, presenter: services.NewMapPresenter()}
}

func (h GetMapViewQueryHandler) Handle(_ context.Context, query GetMapViewQuery) (GetMapViewQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return GetMapViewQueryResponse{}, err
	}
	return h.render(h.store.Snapshot()), nil
}

// Subscribe calls onView with a fresh frame after every change that affects
// the map. A frame older than one already delivered is dropped, so onView
// never goes back in time. The returned func stops the subscription.
func (h GetMapViewQueryHandler) Subscribe(onView func(GetMapViewQueryResponse)) (cancel func()) {
	var (
		mu   sync.Mutex
		last uint64
	)
	return h.store.Subscribe(func(snap state.Snapshot, change state.Change) {
		if !change.Has(mapChanges) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if snap.Version <= last {
			return
		}
		last = snap.Version
		onView(h.render(snap))
	})
}

func (h GetMapViewQueryHandler) render(snap state.Snapshot) GetMapViewQueryResponse {
	return GetMapViewQueryResponse{
		Version: snap.Version,
		MapView: h.presenter.Render(services.MapInput{
			Position:           snap.Position,
			Businesses:         snap.Businesses,
			SelectedBusinessID: snap.SelectedBusinessID,
			SelectedOrders:     snap.SelectedOrders(),
			ActiveOrder:        snap.ActiveOrder,
		}),
	}
}
