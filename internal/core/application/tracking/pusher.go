package tracking

import (
	"context"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
)

// pusher uploads positions in the background. Only the newest pending
// position is kept, so a slow server never builds a backlog.
type pusher struct {
	publisher ports.LocationPublisher
	timeout   time.Duration
	pending   chan kernel.Position
	logger    *slog.Logger
}

func newPusher(publisher ports.LocationPublisher, timeout time.Duration, logger *slog.Logger) *pusher {
	return &pusher{
		publisher: publisher,
		timeout:   timeout,
		pending:   make(chan kernel.Position, 1),
		logger:    logger,
	}
}

// push replaces any pending position with p. It never blocks.
func (p *pusher) push(pos kernel.Position) {
	for {
		select {
		case p.pending <- pos:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

func (p *pusher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pos := <-p.pending:
			p.upload(ctx, pos)
		}
	}
}

func (p *pusher) upload(ctx context.Context, pos kernel.Position) {
	if p.publisher == nil {
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.publisher.PushLocation(reqCtx, pos); err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.LocationPushes.WithLabelValues("error").Inc()
		p.logger.WarnContext(ctx, "location push failed", "error", err)
		return
	}
	metrics.LocationPushes.WithLabelValues("ok").Inc()
}
