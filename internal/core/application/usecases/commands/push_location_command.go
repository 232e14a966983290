package commands

import (
	"errors"

	"dispatch/internal/pkg/guard"
)

var ErrPushLocationCommandIsNotConstructed = errors.New(
	"PushLocationCommand must be created via NewPushLocationCommand constructor",
)

// PushLocationCommand re-sends the latest known position to the server. The
// scheduler issues it periodically so the server keeps a fresh fix even while
// the courier stands still and the sensor stays quiet.
type PushLocationCommand struct {
	guard guard.ConstructorGuard
}

func NewPushLocationCommand() PushLocationCommand {
	return PushLocationCommand{guard: guard.NewConstructorGuard()}
}

func (c PushLocationCommand) Validate() error {
	return c.guard.Validate(ErrPushLocationCommandIsNotConstructed)
}
