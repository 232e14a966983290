package commands

import (
	"context"
	"fmt"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
)

type PushLocationCommandHandler struct {
	store     *state.Store
	publisher ports.LocationPublisher
}

func NewPushLocationCommandHandler(store *state.Store, publisher ports.LocationPublisher) PushLocationCommandHandler {
	return PushLocationCommandHandler{store: store, publisher: publisher}
}

// Handle uploads the stored position. Returns ErrOffline or ErrNoPosition when
// there is nothing to send.
func (h PushLocationCommandHandler) Handle(ctx context.Context, cmd PushLocationCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	snap := h.store.Snapshot()
	if !snap.Online {
		return ErrOffline
	}
	if !snap.HasPosition() {
		return ErrNoPosition
	}

	if err := h.publisher.PushLocation(ctx, *snap.Position); err != nil {
		metrics.LocationPushes.WithLabelValues("error").Inc()
		return fmt.Errorf("push location: %w", err)
	}
	metrics.LocationPushes.WithLabelValues("ok").Inc()
	return nil
}
