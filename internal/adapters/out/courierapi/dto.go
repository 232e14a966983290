package courierapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// flexID accepts identifiers sent either as JSON strings or as numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id %s is neither a string nor a number", data)
	}
	*id = flexID(n.String())
	return nil
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p *pointDTO) toGeoPoint(field string) (kernel.GeoPoint, error) {
	if p == nil {
		return kernel.GeoPoint{}, errs.NewValueIsRequiredError(field)
	}
	return kernel.NewGeoPoint(p.Lat, p.Lng)
}

type businessDTO struct {
	ID              flexID    `json:"id"`
	Name            string    `json:"name"`
	Location        *pointDTO `json:"location"`
	Lat             *float64  `json:"lat"`
	Lng             *float64  `json:"lng"`
	ReadyOrderCount int       `json:"readyOrderCount"`
}

func (d businessDTO) toDomain() (*business.Business, error) {
	loc := d.Location
	if loc == nil && d.Lat != nil && d.Lng != nil {
		loc = &pointDTO{Lat: *d.Lat, Lng: *d.Lng}
	}
	point, err := loc.toGeoPoint("location")
	if err != nil {
		return nil, fmt.Errorf("business %s: %w", d.ID, err)
	}
	return business.RestoreBusiness(string(d.ID), d.Name, point, d.ReadyOrderCount)
}

type itemDTO struct {
	Name  string          `json:"name"`
	Qty   int             `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

type orderDTO struct {
	ID               flexID          `json:"id"`
	Code             string          `json:"code"`
	BusinessID       flexID          `json:"businessId"`
	CustomerName     string          `json:"customerName"`
	CustomerPhone    string          `json:"customerPhone"`
	PickupLocation   *pointDTO       `json:"pickupLocation"`
	DeliveryLocation *pointDTO       `json:"deliveryLocation"`
	ItemsCount       int             `json:"itemsCount"`
	Items            []itemDTO       `json:"items"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	GrandTotal       decimal.Decimal `json:"grandTotal"`
	PaymentMethod    string          `json:"paymentMethod"`
	Notes            string          `json:"notes"`
	Status           string          `json:"status"`
}

func (d orderDTO) toDomain() (*order.Order, error) {
	var problems []error

	pickup, err := d.PickupLocation.toGeoPoint("pickupLocation")
	if err != nil {
		problems = append(problems, err)
	}
	var delivery kernel.GeoPoint
	if d.DeliveryLocation != nil {
		if delivery, err = d.DeliveryLocation.toGeoPoint("deliveryLocation"); err != nil {
			problems = append(problems, err)
		}
	}
	status, err := order.ParseStatus(d.Status)
	if err != nil {
		problems = append(problems, err)
	}
	items := make([]order.Item, 0, len(d.Items))
	for _, it := range d.Items {
		item, err := order.NewItem(it.Name, it.Qty, it.Price)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		items = append(items, item)
	}
	if err := errors.Join(problems...); err != nil {
		return nil, fmt.Errorf("order %s: %w", d.ID, err)
	}

	o, err := order.RestoreOrder(order.Details{
		ID:               string(d.ID),
		Code:             d.Code,
		BusinessID:       string(d.BusinessID),
		CustomerName:     d.CustomerName,
		CustomerPhone:    d.CustomerPhone,
		PickupLocation:   pickup,
		DeliveryLocation: delivery,
		ItemsCount:       d.ItemsCount,
		Items:            items,
		TotalAmount:      d.TotalAmount,
		DeliveryFee:      d.DeliveryFee,
		GrandTotal:       d.GrandTotal,
		PaymentMethod:    d.PaymentMethod,
		Notes:            d.Notes,
		Status:           status,
	})
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", d.ID, err)
	}
	return o, nil
}

// claimResponseDTO accepts both {"order": {...}} and a bare order body.
type claimResponseDTO struct {
	Order *orderDTO `json:"order"`
	orderDTO
}

func (r claimResponseDTO) granted() *orderDTO {
	if r.Order != nil {
		return r.Order
	}
	if r.ID != "" {
		return &r.orderDTO
	}
	return nil
}

type locationDTO struct {
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Heading  *float64  `json:"heading,omitempty"`
	Speed    *float64  `json:"speed,omitempty"`
	Accuracy *float64  `json:"accuracy,omitempty"`
	TS       time.Time `json:"ts"`
}

func newLocationDTO(p kernel.Position) locationDTO {
	dto := locationDTO{Lat: p.Lat(), Lng: p.Lng(), TS: p.CapturedAt().UTC()}
	if v, ok := p.Heading(); ok {
		dto.Heading = &v
	}
	if v, ok := p.Speed(); ok {
		dto.Speed = &v
	}
	if v, ok := p.Accuracy(); ok {
		dto.Accuracy = &v
	}
	return dto
}

type statusDTO struct {
	Status string `json:"status"`
}

type errorDTO struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorDTO) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}
