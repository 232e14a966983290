package commands

import (
	"errors"
	"strings"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrRefreshBusinessOrdersCommandIsNotConstructed = errors.New(
	"RefreshBusinessOrdersCommand must be created via NewRefreshBusinessOrdersCommand constructor",
)

// RefreshBusinessOrdersCommand loads the available orders of one business.
type RefreshBusinessOrdersCommand struct {
	businessID string
	guard      guard.ConstructorGuard
}

func NewRefreshBusinessOrdersCommand(businessID string) (RefreshBusinessOrdersCommand, error) {
	if strings.TrimSpace(businessID) == "" {
		return RefreshBusinessOrdersCommand{}, errs.NewValueIsRequiredError("businessID")
	}
	return RefreshBusinessOrdersCommand{businessID: businessID, guard: guard.NewConstructorGuard()}, nil
}

func (c RefreshBusinessOrdersCommand) Validate() error {
	return c.guard.Validate(ErrRefreshBusinessOrdersCommandIsNotConstructed)
}

func (c RefreshBusinessOrdersCommand) BusinessID() string {
	return c.businessID
}
