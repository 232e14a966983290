package services

import (
	"cmp"
	"math"
	"slices"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"

	"github.com/shopspring/decimal"
)

// DefaultProximityRadiusKm is the pickup distance at which an order counts as close.
const DefaultProximityRadiusKm = 1.0

// ProximityResult is what a proximity burst reports.
type ProximityResult struct {
	// Orders within the radius, nearest first.
	Orders []*order.Order
	// Total is the summed grand total of Orders.
	Total decimal.Decimal
	// NearestKm is the pickup distance of Orders[0], +Inf when Orders is empty.
	NearestKm float64
}

// Count returns the number of close orders.
func (r ProximityResult) Count() int {
	return len(r.Orders)
}

// IsEmpty reports whether no order is close.
func (r ProximityResult) IsEmpty() bool {
	return len(r.Orders) == 0
}

// ProximityEvaluator selects the cached orders a courier is close enough to pick up.
//
// Business rules:
//   - Only claimable orders are considered
//   - An order is close when DistanceKm(position, pickup) <= radius
//   - Orders listed twice (e.g. prefetched and selected) count once
//
// Example usage:
//
//	evaluator := services.NewProximityEvaluator(services.DefaultProximityRadiusKm)
//	res := evaluator.Evaluate(position, cachedOrders)
//	if !res.IsEmpty() {
//	    notify(res.Count(), res.Total)
//	}
type ProximityEvaluator struct {
	radiusKm float64
}

// NewProximityEvaluator returns an evaluator for radiusKm. A non-positive radius
// falls back to DefaultProximityRadiusKm.
func NewProximityEvaluator(radiusKm float64) ProximityEvaluator {
	if radiusKm <= 0 || math.IsNaN(radiusKm) {
		radiusKm = DefaultProximityRadiusKm
	}
	return ProximityEvaluator{radiusKm: radiusKm}
}

// RadiusKm returns the configured radius.
func (e ProximityEvaluator) RadiusKm() float64 {
	return e.radiusKm
}

// Evaluate returns the orders whose pickup lies within the radius of position.
//
// Parameters:
//   - position: the courier's current fix, must be constructed
//   - orders: cached orders, nil and unconstructed entries are skipped
//
// Returns:
//   - ProximityResult: close orders sorted nearest first with their grand total
func (e ProximityEvaluator) Evaluate(position kernel.Position, orders []*order.Order) ProximityResult {
	res := ProximityResult{Total: decimal.Zero, NearestKm: math.Inf(1)}
	if position.Validate() != nil {
		return res
	}

	type candidate struct {
		o  *order.Order
		km float64
	}
	var near []candidate
	seen := make(map[string]struct{}, len(orders))
	here := position.Point()

	for _, o := range orders {
		if o.Validate() != nil || !o.Status().IsClaimable() {
			continue
		}
		if _, dup := seen[o.ID()]; dup {
			continue
		}
		seen[o.ID()] = struct{}{}

		km := kernel.DistanceKm(here, o.PickupLocation())
		if km > e.radiusKm {
			continue
		}

		near = append(near, candidate{o: o, km: km})
	}

	slices.SortStableFunc(near, func(a, b candidate) int { return cmp.Compare(a.km, b.km) })
	for _, c := range near {
		res.Orders = append(res.Orders, c.o)
		res.Total = res.Total.Add(c.o.GrandTotal())
	}
	if len(near) > 0 {
		res.NearestKm = near[0].km
	}
	return res
}
