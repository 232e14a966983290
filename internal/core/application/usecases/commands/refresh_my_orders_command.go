package commands

import (
	"errors"

	"dispatch/internal/pkg/guard"
)

var ErrRefreshMyOrdersCommandIsNotConstructed = errors.New(
	"RefreshMyOrdersCommand must be created via NewRefreshMyOrdersCommand constructor",
)

// RefreshMyOrdersCommand reconciles the courier's held orders with the server.
type RefreshMyOrdersCommand struct {
	guard guard.ConstructorGuard
}

func NewRefreshMyOrdersCommand() RefreshMyOrdersCommand {
	return RefreshMyOrdersCommand{guard: guard.NewConstructorGuard()}
}

func (c RefreshMyOrdersCommand) Validate() error {
	return c.guard.Validate(ErrRefreshMyOrdersCommandIsNotConstructed)
}
