package commands

import (
	"errors"
	"fmt"
	"strings"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrAdvanceOrderCommandIsNotConstructed = errors.New(
	"AdvanceOrderCommand must be created via one of the NewAccept/NewConfirmPickup/NewUpdateOrderStatus constructors",
)

// OrderAction is the lifecycle step an AdvanceOrderCommand performs.
type OrderAction int

const (
	ActionAccept OrderAction = iota + 1
	ActionConfirmPickup
	ActionUpdateStatus
)

func (a OrderAction) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionConfirmPickup:
		return "pickup"
	case ActionUpdateStatus:
		return "status"
	}
	return "unknown"
}

// AdvanceOrderCommand moves the active order one step along its lifecycle.
//
// Example:
//
//	cmd, _ := NewConfirmPickupCommand("1042")
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return err
//	}
type AdvanceOrderCommand struct {
	orderID string
	action  OrderAction
	target  order.Status
	guard   guard.ConstructorGuard
}

// NewAcceptOrderCommand confirms a claimed-by-me order.
func NewAcceptOrderCommand(orderID string) (AdvanceOrderCommand, error) {
	return newAdvanceOrderCommand(orderID, ActionAccept, order.Assigned)
}

// NewConfirmPickupCommand records that the courier collected the order.
func NewConfirmPickupCommand(orderID string) (AdvanceOrderCommand, error) {
	return newAdvanceOrderCommand(orderID, ActionConfirmPickup, order.PickedUp)
}

// NewUpdateOrderStatusCommand reports on_way or delivered.
func NewUpdateOrderStatusCommand(orderID string, target order.Status) (AdvanceOrderCommand, error) {
	if target != order.OnWay && target != order.Delivered {
		return AdvanceOrderCommand{}, errs.NewValueIsInvalidErrorWithCause(
			"status", fmt.Errorf("%s cannot be set by the courier", target))
	}
	return newAdvanceOrderCommand(orderID, ActionUpdateStatus, target)
}

func newAdvanceOrderCommand(orderID string, action OrderAction, target order.Status) (AdvanceOrderCommand, error) {
	if strings.TrimSpace(orderID) == "" {
		return AdvanceOrderCommand{}, errs.NewValueIsRequiredError("orderID")
	}
	return AdvanceOrderCommand{
		orderID: orderID,
		action:  action,
		target:  target,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c AdvanceOrderCommand) Validate() error {
	return c.guard.Validate(ErrAdvanceOrderCommandIsNotConstructed)
}

func (c AdvanceOrderCommand) OrderID() string {
	return c.orderID
}

func (c AdvanceOrderCommand) Action() OrderAction {
	return c.action
}

// Target returns the status the order ends up in.
func (c AdvanceOrderCommand) Target() order.Status {
	return c.target
}
