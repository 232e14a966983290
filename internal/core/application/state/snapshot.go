package state

import (
	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// Snapshot is an immutable copy of the dispatch state. Slices and maps in a
// snapshot are never written after it is handed out; orders inside them are
// replaced, not mutated.
type Snapshot struct {
	Version uint64

	Online      bool
	Position    *kernel.Position
	LocationErr error

	Businesses     []*business.Business
	BusinessOrders map[string][]*order.Order
	CatalogStale   bool

	SelectedBusinessID string
	DetailOrderID      string

	ActiveOrder *order.Order
	MyOrders    []*order.Order
}

// HasPosition reports whether a location sample exists.
func (s Snapshot) HasPosition() bool {
	return s.Position != nil
}

// SelectedOrders returns the cached available orders of the selected business.
func (s Snapshot) SelectedOrders() []*order.Order {
	if s.SelectedBusinessID == "" {
		return nil
	}
	return s.BusinessOrders[s.SelectedBusinessID]
}

// AvailableOrders flattens every cached available list, in business order.
func (s Snapshot) AvailableOrders() []*order.Order {
	var out []*order.Order
	seen := make(map[string]struct{})
	add := func(bizID string) {
		if _, ok := seen[bizID]; ok {
			return
		}
		seen[bizID] = struct{}{}
		out = append(out, s.BusinessOrders[bizID]...)
	}
	for _, b := range s.Businesses {
		add(b.ID())
	}
	// the selected business may have dropped out of the nearby list
	if s.SelectedBusinessID != "" {
		add(s.SelectedBusinessID)
	}
	return out
}

// Business looks up a nearby business by id.
func (s Snapshot) Business(id string) (*business.Business, bool) {
	for _, b := range s.Businesses {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// FindOrder looks an order up in the active order, the courier's orders and
// every available list.
func (s Snapshot) FindOrder(id string) (*order.Order, bool) {
	if s.ActiveOrder != nil && s.ActiveOrder.ID() == id {
		return s.ActiveOrder, true
	}
	for _, o := range s.MyOrders {
		if o.ID() == id {
			return o, true
		}
	}
	for _, list := range s.BusinessOrders {
		for _, o := range list {
			if o.ID() == id {
				return o, true
			}
		}
	}
	return nil, false
}
