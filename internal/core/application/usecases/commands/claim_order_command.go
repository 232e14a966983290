package commands

import (
	"errors"
	"strings"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrClaimOrderCommandIsNotConstructed = errors.New(
	"ClaimOrderCommand must be created via NewClaimOrderCommand constructor",
)

// ClaimOrderCommand asks the server to grant one ready order to this courier.
//
// Example:
//
//	cmd, err := NewClaimOrderCommand("1042")
//	if err != nil {
//	    return err
//	}
//	attempt, err := handler.Handle(ctx, cmd)
//	switch attempt.Outcome() {
//	case claim.Success:  // order is now active
//	case claim.Conflict: // another courier won, err is nil
//	case claim.Failed:   // err holds the cause, offer a retry
//	}
type ClaimOrderCommand struct {
	orderID string
	guard   guard.ConstructorGuard
}

// NewClaimOrderCommand validates orderID and returns the command.
func NewClaimOrderCommand(orderID string) (ClaimOrderCommand, error) {
	if strings.TrimSpace(orderID) == "" {
		return ClaimOrderCommand{}, errs.NewValueIsRequiredError("orderID")
	}
	return ClaimOrderCommand{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

// Validate ensures the command was created through the constructor.
func (c ClaimOrderCommand) Validate() error {
	return c.guard.Validate(ErrClaimOrderCommandIsNotConstructed)
}

// OrderID returns the order to claim.
func (c ClaimOrderCommand) OrderID() string {
	return c.orderID
}
