package commands

import (
	"errors"

	"dispatch/internal/pkg/guard"
)

var ErrRefreshNearbyBusinessesCommandIsNotConstructed = errors.New(
	"RefreshNearbyBusinessesCommand must be created via NewRefreshNearbyBusinessesCommand constructor",
)

// RefreshNearbyBusinessesCommand polls the businesses around the courier's
// current position. It carries no parameters: position and radius come from
// the state store and the handler's configuration.
type RefreshNearbyBusinessesCommand struct {
	guard guard.ConstructorGuard
}

func NewRefreshNearbyBusinessesCommand() RefreshNearbyBusinessesCommand {
	return RefreshNearbyBusinessesCommand{guard: guard.NewConstructorGuard()}
}

func (c RefreshNearbyBusinessesCommand) Validate() error {
	return c.guard.Validate(ErrRefreshNearbyBusinessesCommandIsNotConstructed)
}
