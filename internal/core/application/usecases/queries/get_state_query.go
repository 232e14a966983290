package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

var (
	ErrGetStateQueryIsNotConstructed = errors.New(
		"GetStateQuery must be created via NewGetStateQuery constructor",
	)
)

// GetStateQuery returns the read model the UI shell renders its panels from.
type GetStateQuery struct {
	guard guard.ConstructorGuard
}

func NewGetStateQuery() GetStateQuery {
	return GetStateQuery{guard: guard.NewConstructorGuard()}
}

// Validate ensures the query was created through the constructor.
func (q GetStateQuery) Validate() error {
	return q.guard.Validate(ErrGetStateQueryIsNotConstructed)
}

// GetStateQueryResponse is the whole dispatch state in wire form.
type GetStateQueryResponse struct {
	Version            uint64         `json:"version"`
	Online             bool           `json:"online"`
	Position           *PositionView  `json:"position,omitempty"`
	LocationError      string         `json:"locationError,omitempty"`
	CatalogStale       bool           `json:"catalogStale"`
	Businesses         []BusinessView `json:"businesses"`
	SelectedBusinessID string         `json:"selectedBusinessId,omitempty"`
	SelectedOrders     []OrderView    `json:"selectedOrders"`
	DetailOrder        *OrderView     `json:"detailOrder,omitempty"`
	ActiveOrder        *OrderView     `json:"activeOrder,omitempty"`
	MyOrders           []OrderView    `json:"myOrders"`
	PendingClaims      []string       `json:"pendingClaims"`
}

type PositionView struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Heading    *float64  `json:"heading,omitempty"`
	Speed      *float64  `json:"speed,omitempty"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

type BusinessView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ReadyOrderCount int     `json:"readyOrderCount"`
	DistanceKm      float64 `json:"distanceKm,omitempty"`
}

type OrderView struct {
	ID            string          `json:"id"`
	Code          string          `json:"code,omitempty"`
	BusinessID    string          `json:"businessId"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customerName,omitempty"`
	CustomerPhone string          `json:"customerPhone,omitempty"`
	Pickup        [2]float64      `json:"pickup"`
	Delivery      *[2]float64     `json:"delivery,omitempty"`
	ItemsCount    int             `json:"itemsCount"`
	Items         []ItemView      `json:"items,omitempty"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	DistanceKm    float64         `json:"distanceKm,omitempty"`
}

type ItemView struct {
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

func newPositionView(p *kernel.Position) *PositionView {
	if p == nil || p.Validate() != nil {
		return nil
	}
	v := &PositionView{Lat: p.Lat(), Lng: p.Lng(), CapturedAt: p.CapturedAt()}
	if h, ok := p.Heading(); ok {
		v.Heading = &h
	}
	if s, ok := p.Speed(); ok {
		v.Speed = &s
	}
	if a, ok := p.Accuracy(); ok {
		v.Accuracy = &a
	}
	return v
}

// newBusinessView converts b; here may be nil when no position is known.
func newBusinessView(b *business.Business, here *kernel.Position) BusinessView {
	return BusinessView{
		ID:              b.ID(),
		Name:            b.Name(),
		Lat:             b.Location().Lat(),
		Lng:             b.Location().Lng(),
		ReadyOrderCount: b.ReadyOrderCount(),
		DistanceKm:      distanceFrom(here, b.Location()),
	}
}

// NewOrderView renders o for the UI. here may be nil, in which case DistanceKm is 0.
func NewOrderView(o *order.Order, here *kernel.Position) OrderView {
	v := OrderView{
		ID:            o.ID(),
		Code:          o.Code(),
		BusinessID:    o.BusinessID(),
		Status:        o.Status().String(),
		CustomerName:  o.CustomerName(),
		CustomerPhone: o.CustomerPhone(),
		Pickup:        [2]float64{o.PickupLocation().Lat(), o.PickupLocation().Lng()},
		ItemsCount:    o.ItemsCount(),
		TotalAmount:   o.TotalAmount(),
		DeliveryFee:   o.DeliveryFee(),
		GrandTotal:    o.GrandTotal(),
		PaymentMethod: o.PaymentMethod(),
		Notes:         o.Notes(),
		DistanceKm:    distanceFrom(here, o.PickupLocation()),
	}
	if d, ok := o.DeliveryLocation(); ok {
		v.Delivery = &[2]float64{d.Lat(), d.Lng()}
	}
	for _, it := range o.Items() {
		v.Items = append(v.Items, ItemView{Name: it.Name(), Qty: it.Qty(), Price: it.Price()})
	}
	return v
}

func newOrderViews(list []*order.Order, here *kernel.Position) []OrderView {
	views := make([]OrderView, 0, len(list))
	for _, o := range list {
		views = append(views, NewOrderView(o, here))
	}
	return views
}

func distanceFrom(here *kernel.Position, p kernel.GeoPoint) float64 {
	if here == nil || here.Validate() != nil {
		return 0
	}
	return kernel.DistanceKm(here.Point(), p)
}
