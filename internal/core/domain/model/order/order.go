package order

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// RestoreOrder. This ensures every cached order passed validation.
	ErrOrderIsNotConstructed = errors.New("Order must be created via RestoreOrder constructor")
)

// Details carries the server's view of an order into RestoreOrder.
type Details struct {
	ID               string
	Code             string
	BusinessID       string
	CustomerName     string
	CustomerPhone    string
	PickupLocation   kernel.GeoPoint
	DeliveryLocation kernel.GeoPoint // zero value when the server omits it
	ItemsCount       int
	Items            []Item
	TotalAmount      decimal.Decimal
	DeliveryFee      decimal.Decimal
	GrandTotal       decimal.Decimal
	PaymentMethod    string
	Notes            string
	Status           Status
}

// Order is the client's read-through copy of a server-owned order.
//
// Order follows these invariants:
//   - Must have a non-empty identifier and business identifier
//   - Must have a valid pickup location; the delivery location is optional
//   - Money amounts are never negative
//   - Status changes follow the Status state machine
//   - Can only be created through RestoreOrder
//
// Orders live inside the dispatch state store. Whoever changes one works on a
// Clone so snapshots already handed out never change underneath their readers.
type Order struct {
	id               string
	code             string
	businessID       string
	customerName     string
	customerPhone    string
	pickupLocation   kernel.GeoPoint
	deliveryLocation kernel.GeoPoint
	itemsCount       int
	items            []Item
	totalAmount      decimal.Decimal
	deliveryFee      decimal.Decimal
	grandTotal       decimal.Decimal
	paymentMethod    string
	notes            string
	status           Status

	guard guard.ConstructorGuard
}

// RestoreOrder validates d and builds an Order from it.
//
// Derived values:
//   - ItemsCount of 0 is replaced by the summed quantity of Items
//   - GrandTotal of 0 is replaced by TotalAmount + DeliveryFee
//
// Returns:
//   - *Order: the restored order if all validations pass
//   - error: every validation failure joined together
//
// Example:
//
//	o, err := order.RestoreOrder(order.Details{
//	    ID:             "1042",
//	    BusinessID:     "7",
//	    PickupLocation: kernel.MustGeoPoint(41.0090, 28.9790),
//	    GrandTotal:     decimal.RequireFromString("245.50"),
//	    Status:         order.Available,
//	})
func RestoreOrder(d Details) (*Order, error) {
	o := &Order{
		code:          d.Code,
		customerName:  d.CustomerName,
		customerPhone: d.CustomerPhone,
		paymentMethod: d.PaymentMethod,
		notes:         d.Notes,
		guard:         guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		o.setID(d.ID),
		o.setBusinessID(d.BusinessID),
		o.setLocations(d.PickupLocation, d.DeliveryLocation),
		o.setItems(d.Items, d.ItemsCount),
		o.setMoney(d.TotalAmount, d.DeliveryFee, d.GrandTotal),
		o.setStatus(d.Status),
	); err != nil {
		return nil, err
	}

	return o, nil
}

// Validate ensures the Order instance was properly constructed through RestoreOrder.
func (o *Order) Validate() error {
	if o == nil {
		return ErrOrderIsNotConstructed
	}

	return o.guard.Validate(ErrOrderIsNotConstructed)
}

// Clone returns an independent copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.items = append([]Item(nil), o.items...)
	return &c
}

// IsEqual compares orders by identifier.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id == other.id
}

// ID returns the server identifier.
func (o *Order) ID() string {
	return o.id
}

// Code returns the short human-readable order code.
func (o *Order) Code() string {
	return o.code
}

// BusinessID returns the identifier of the business preparing the order.
func (o *Order) BusinessID() string {
	return o.businessID
}

// CustomerName returns the recipient's name.
func (o *Order) CustomerName() string {
	return o.customerName
}

// CustomerPhone returns the recipient's phone number.
func (o *Order) CustomerPhone() string {
	return o.customerPhone
}

// PickupLocation returns where the order is collected.
func (o *Order) PickupLocation() kernel.GeoPoint {
	return o.pickupLocation
}

// DeliveryLocation returns the drop-off point and whether the server provided one.
func (o *Order) DeliveryLocation() (kernel.GeoPoint, bool) {
	return o.deliveryLocation, !o.deliveryLocation.IsZero()
}

// ItemsCount returns the number of items in the order.
func (o *Order) ItemsCount() int {
	return o.itemsCount
}

// Items returns a copy of the order lines.
func (o *Order) Items() []Item {
	return append([]Item(nil), o.items...)
}

// TotalAmount returns the goods total.
func (o *Order) TotalAmount() decimal.Decimal {
	return o.totalAmount
}

// DeliveryFee returns the delivery fee.
func (o *Order) DeliveryFee() decimal.Decimal {
	return o.deliveryFee
}

// GrandTotal returns the amount the customer pays.
func (o *Order) GrandTotal() decimal.Decimal {
	return o.grandTotal
}

// PaymentMethod returns the server's payment method label (cash, card, ...).
func (o *Order) PaymentMethod() string {
	return o.paymentMethod
}

// Notes returns free-text instructions for the courier.
func (o *Order) Notes() string {
	return o.notes
}

// Status returns the current lifecycle status.
func (o *Order) Status() Status {
	return o.status
}

// MarkAssigned records a successful claim: the order now belongs to this courier.
func (o *Order) MarkAssigned() error {
	return o.moveTo(Assigned)
}

// MarkClaimedByOther records a lost claim race.
//
// Only claimable orders can be lost; an order this courier already holds is
// never downgraded by a late conflict response.
func (o *Order) MarkClaimedByOther() error {
	if o.status != Available && o.status != ClaimedByOther {
		return errs.NewValueIsInvalidErrorWithCause(
			"status",
			fmt.Errorf("%s order cannot be lost to another courier", o.status),
		)
	}
	return o.moveTo(ClaimedByOther)
}

// Accept confirms a claimed-by-me order.
func (o *Order) Accept() error {
	if o.status == Available {
		return errs.NewValueIsInvalidErrorWithCause("status", errors.New("available order must be claimed before accept"))
	}
	return o.moveTo(Assigned)
}

// ConfirmPickup records that the courier collected the order.
func (o *Order) ConfirmPickup() error {
	return o.moveTo(PickedUp)
}

// UpdateStatus applies a lifecycle status reported by or sent to the server.
// Re-applying the current status is a no-op.
func (o *Order) UpdateStatus(target Status) error {
	return o.moveTo(target)
}

func (o *Order) moveTo(target Status) error {
	next, err := o.status.TransitionTo(target)
	if err != nil {
		return err
	}
	o.status = next
	return nil
}

func (o *Order) setID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.NewValueIsRequiredError("id")
	}
	o.id = id
	return nil
}

func (o *Order) setBusinessID(businessID string) error {
	if strings.TrimSpace(businessID) == "" {
		return errs.NewValueIsRequiredError("businessID")
	}
	o.businessID = businessID
	return nil
}

func (o *Order) setLocations(pickup, delivery kernel.GeoPoint) error {
	if err := pickup.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("pickupLocation", err)
	}
	o.pickupLocation = pickup
	o.deliveryLocation = delivery
	return nil
}

func (o *Order) setItems(items []Item, itemsCount int) error {
	if itemsCount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("itemsCount", fmt.Errorf("%d is negative", itemsCount))
	}
	o.items = append([]Item(nil), items...)
	if itemsCount == 0 {
		for _, it := range items {
			itemsCount += it.Qty()
		}
	}
	o.itemsCount = itemsCount
	return nil
}

func (o *Order) setMoney(total, fee, grand decimal.Decimal) error {
	var problems []error
	for name, amount := range map[string]decimal.Decimal{
		"totalAmount": total,
		"deliveryFee": fee,
		"grandTotal":  grand,
	} {
		if amount.IsNegative() {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(name, fmt.Errorf("%s is negative", amount)))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	if grand.IsZero() {
		grand = total.Add(fee)
	}
	o.totalAmount = total
	o.deliveryFee = fee
	o.grandTotal = grand
	return nil
}

func (o *Order) setStatus(status Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	o.status = status
	return nil
}
