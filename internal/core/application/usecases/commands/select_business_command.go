package commands

import (
	"errors"
	"strings"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrSelectBusinessCommandIsNotConstructed = errors.New(
	"SelectBusinessCommand must be created via NewSelectBusinessCommand constructor",
)

// SelectBusinessCommand opens the claim panel of a business and loads its orders.
type SelectBusinessCommand struct {
	businessID string
	guard      guard.ConstructorGuard
}

func NewSelectBusinessCommand(businessID string) (SelectBusinessCommand, error) {
	if strings.TrimSpace(businessID) == "" {
		return SelectBusinessCommand{}, errs.NewValueIsRequiredError("businessID")
	}
	return SelectBusinessCommand{businessID: businessID, guard: guard.NewConstructorGuard()}, nil
}

func (c SelectBusinessCommand) Validate() error {
	return c.guard.Validate(ErrSelectBusinessCommandIsNotConstructed)
}

func (c SelectBusinessCommand) BusinessID() string {
	return c.businessID
}
