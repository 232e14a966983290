package services

import (
	"strconv"
	"strings"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
)

// MarkerKind tells the map shell how to draw a marker.
type MarkerKind string

const (
	MarkerCourier  MarkerKind = "courier"
	MarkerBusiness MarkerKind = "business"
	MarkerPickup   MarkerKind = "pickup"
	MarkerDropoff  MarkerKind = "dropoff"
)

// TargetKind is what tapping a marker opens.
type TargetKind string

const (
	TargetNone     TargetKind = ""
	TargetBusiness TargetKind = "business"
	TargetOrder    TargetKind = "order"
)

// RouteLeg names the destination of the active route.
type RouteLeg string

const (
	LegToPickup   RouteLeg = "to_pickup"
	LegToDelivery RouteLeg = "to_delivery"
)

// MarkerTarget is the typed action bound to a marker.
type MarkerTarget struct {
	Kind TargetKind `json:"kind,omitempty"`
	ID   string     `json:"id,omitempty"`
}

// Marker is one point drawn on the map.
type Marker struct {
	ID     string       `json:"id"`
	Kind   MarkerKind   `json:"kind"`
	Lat    float64      `json:"lat"`
	Lng    float64      `json:"lng"`
	Label  string       `json:"label,omitempty"`
	Badge  int          `json:"badge,omitempty"`
	Active bool         `json:"active,omitempty"`
	Target MarkerTarget `json:"target"`
}

// Route is the straight two-point line from the courier to the next stop.
type Route struct {
	Leg        RouteLeg      `json:"leg"`
	OrderID    string        `json:"orderId"`
	Points     [2][2]float64 `json:"points"`
	DistanceKm float64       `json:"distanceKm"`
}

// MapView is everything the map shell needs for one frame.
type MapView struct {
	Markers []Marker `json:"markers"`
	Route   *Route   `json:"route,omitempty"`
}

// Resolve returns the target of the marker with markerID.
func (v MapView) Resolve(markerID string) (MarkerTarget, bool) {
	for _, m := range v.Markers {
		if m.ID == markerID {
			return m.Target, m.Target.Kind != TargetNone
		}
	}
	return MarkerTarget{}, false
}

// MapInput is the slice of dispatch state the map depends on.
type MapInput struct {
	Position           *kernel.Position
	Businesses         []*business.Business
	SelectedBusinessID string
	SelectedOrders     []*order.Order
	ActiveOrder        *order.Order
}

// MapPresenter renders map frames. It holds no state; equal inputs give equal views.
type MapPresenter struct{}

func NewMapPresenter() MapPresenter {
	return MapPresenter{}
}

// Render builds the markers and the active route for in.
//
// Marker order is stable: courier, businesses in input order, selected-business
// pickups, then the active order's pickup and drop-off.
//
// Route rules:
//   - needs both a position and an active order held by this courier
//   - before pickup is confirmed the route ends at the pickup point
//   - after pickup (picked_up, on_way) it ends at the delivery point, when known
func (MapPresenter) Render(in MapInput) MapView {
	view := MapView{Markers: []Marker{}}

	if in.Position != nil && in.Position.Validate() == nil {
		view.Markers = append(view.Markers, Marker{
			ID:   "courier",
			Kind: MarkerCourier,
			Lat:  in.Position.Lat(),
			Lng:  in.Position.Lng(),
		})
	}

	for _, b := range in.Businesses {
		if b.Validate() != nil {
			continue
		}
		view.Markers = append(view.Markers, Marker{
			ID:     BusinessMarkerID(b.ID()),
			Kind:   MarkerBusiness,
			Lat:    b.Location().Lat(),
			Lng:    b.Location().Lng(),
			Label:  b.Name(),
			Badge:  b.ReadyOrderCount(),
			Active: b.ID() == in.SelectedBusinessID,
			Target: MarkerTarget{Kind: TargetBusiness, ID: b.ID()},
		})
	}

	active := in.ActiveOrder
	if active.Validate() != nil {
		active = nil
	}

	if in.SelectedBusinessID != "" {
		for _, o := range in.SelectedOrders {
			if o.Validate() != nil || (active != nil && o.ID() == active.ID()) {
				continue
			}
			view.Markers = append(view.Markers, pickupMarker(o, false))
		}
	}

	if active == nil {
		return view
	}

	view.Markers = append(view.Markers, pickupMarker(active, true))
	delivery, hasDelivery := active.DeliveryLocation()
	if hasDelivery {
		view.Markers = append(view.Markers, Marker{
			ID:     DropoffMarkerID(active.ID()),
			Kind:   MarkerDropoff,
			Lat:    delivery.Lat(),
			Lng:    delivery.Lng(),
			Label:  orderLabel(active),
			Active: true,
			Target: MarkerTarget{Kind: TargetOrder, ID: active.ID()},
		})
	}

	if in.Position == nil || in.Position.Validate() != nil || !active.Status().IsHeldByCourier() {
		return view
	}

	leg, dest := LegToPickup, active.PickupLocation()
	if active.Status().IsPickupConfirmed() {
		if !hasDelivery {
			return view
		}
		leg, dest = LegToDelivery, delivery
	}
	here := in.Position.Point()
	view.Route = &Route{
		Leg:        leg,
		OrderID:    active.ID(),
		Points:     [2][2]float64{{here.Lat(), here.Lng()}, {dest.Lat(), dest.Lng()}},
		DistanceKm: kernel.DistanceKm(here, dest),
	}
	return view
}

// BusinessMarkerID returns the marker id used for business id.
func BusinessMarkerID(id string) string {
	return "business:" + id
}

// PickupMarkerID returns the marker id of an order's pickup point.
func PickupMarkerID(orderID string) string {
	return "pickup:" + orderID
}

// DropoffMarkerID returns the marker id of an order's delivery point.
func DropoffMarkerID(orderID string) string {
	return "dropoff:" + orderID
}

func pickupMarker(o *order.Order, active bool) Marker {
	return Marker{
		ID:     PickupMarkerID(o.ID()),
		Kind:   MarkerPickup,
		Lat:    o.PickupLocation().Lat(),
		Lng:    o.PickupLocation().Lng(),
		Label:  orderLabel(o),
		Active: active,
		Target: MarkerTarget{Kind: TargetOrder, ID: o.ID()},
	}
}

func orderLabel(o *order.Order) string {
	var b strings.Builder
	if o.Code() != "" {
		b.WriteString(o.Code())
	} else {
		b.WriteString("#" + o.ID())
	}
	b.WriteString(" · ")
	b.WriteString(o.GrandTotal().StringFixed(2))
	if o.ItemsCount() > 0 {
		b.WriteString(" · ")
		b.WriteString(strconv.Itoa(o.ItemsCount()))
		b.WriteString(" items")
	}
	return b.String()
}
