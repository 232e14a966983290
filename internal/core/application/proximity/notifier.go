// Package proximity watches the dispatch state and raises a notification
// burst when the courier comes close to ready orders.
package proximity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/services"

	"github.com/shopspring/decimal"
)

// Firer delivers one burst.
type Firer interface {
	Fire(ctx context.Context, count int, total decimal.Decimal)
}

// Notifier evaluates every position and catalog change against the cached
// available orders.
//
// Rules:
//   - needs a position and at least one cached available order
//   - orders are close when their pickup lies within the evaluator's radius
//   - a burst fires only when the cooldown gate allows it, so at most one burst
//     per cooldown window reaches the courier however many changes arrive
//
// Bursts are delivered on their own goroutine so a slow channel never holds up
// the goroutine that changed the store.
type Notifier struct {
	evaluator services.ProximityEvaluator
	gate      *services.CooldownGate
	firer     Firer
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotifier(
	evaluator services.ProximityEvaluator,
	gate *services.CooldownGate,
	firer Firer,
	now func() time.Time,
	logger *slog.Logger,
) *Notifier {
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		evaluator: evaluator,
		gate:      gate,
		firer:     firer,
		now:       now,
		logger:    logger.With("component", "proximity-notifier"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Attach subscribes the notifier to store and returns the unsubscribe func.
func (n *Notifier) Attach(store *state.Store) (cancel func()) {
	return store.Subscribe(func(snap state.Snapshot, change state.Change) {
		if change.Has(state.ChangePosition | state.ChangeCatalog) {
			n.Evaluate(snap)
		}
	})
}

// Evaluate checks snap and fires a burst when one is due. It reports whether
// a burst was started.
func (n *Notifier) Evaluate(snap state.Snapshot) bool {
	if n.ctx.Err() != nil || !snap.Online || !snap.HasPosition() {
		return false
	}
	cached := snap.AvailableOrders()
	if len(cached) == 0 {
		return false
	}

	res := n.evaluator.Evaluate(*snap.Position, cached)
	if res.IsEmpty() {
		return false
	}
	if !n.gate.TryFire(n.now()) {
		return false
	}

	n.logger.Info("orders nearby",
		"count", res.Count(),
		"total", res.Total.StringFixed(2),
		"nearest_km", res.NearestKm,
	)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx.Err() != nil {
		return false
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.firer.Fire(n.ctx, res.Count(), res.Total)
	}()
	return true
}

// Wait blocks until every started burst finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Reset forgets the last burst so the next close order fires immediately.
func (n *Notifier) Reset() {
	n.gate.Reset()
}

// Close cancels bursts in flight, waits for them and resets the cooldown.
// A closed notifier never fires again.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.cancel()
	n.mu.Unlock()
	n.wg.Wait()
	n.gate.Reset()
}
