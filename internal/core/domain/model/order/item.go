package order

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Item is one order line.
type Item struct {
	name  string
	qty   int
	price decimal.Decimal
}

// NewItem validates an order line. Quantity must be positive and price non-negative.
func NewItem(name string, qty int, price decimal.Decimal) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, errs.NewValueIsRequiredError("item name")
	}
	if qty <= 0 {
		return Item{}, errs.NewValueIsInvalidErrorWithCause("item qty", fmt.Errorf("%d is not greater than 0", qty))
	}
	if price.IsNegative() {
		return Item{}, errs.NewValueIsInvalidErrorWithCause("item price", fmt.Errorf("%s is negative", price))
	}
	return Item{name: name, qty: qty, price: price}, nil
}

// Name returns the product name.
func (i Item) Name() string {
	return i.name
}

// Qty returns the ordered quantity.
func (i Item) Qty() int {
	return i.qty
}

// Price returns the unit price.
func (i Item) Price() decimal.Decimal {
	return i.price
}

// Subtotal returns price × qty.
func (i Item) Subtotal() decimal.Decimal {
	return i.price.Mul(decimal.NewFromInt(int64(i.qty)))
}
