// Package toast fans in-app toasts out to every connected UI stream.
package toast

import (
	"log/slog"
	"sync"

	"dispatch/internal/core/ports"
)

const (
	subscriberBuffer = 8
	// HistorySize is how many recent toasts a new subscriber can replay.
	HistorySize = 20
)

var _ ports.ToastPublisher = (*Broker)(nil)

// Broker delivers each toast to all subscribers without blocking the
// publisher; a subscriber whose buffer is full misses the toast.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan ports.Toast]struct{}
	recent []ports.Toast
	closed bool
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		subs:   map[chan ports.Toast]struct{}{},
		logger: logger.With("component", "toast"),
	}
}

// Subscribe returns a channel receiving every toast published from now on.
// The channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan ports.Toast {
	ch := make(chan ports.Toast, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *Broker) Unsubscribe(ch chan ports.Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Broker) Publish(t ports.Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.recent = append(b.recent, t)
	if len(b.recent) > HistorySize {
		b.recent = append([]ports.Toast(nil), b.recent[len(b.recent)-HistorySize:]...)
	}
	for ch := range b.subs {
		select {
		case ch <- t:
		default:
			b.logger.Debug("toast dropped for slow subscriber", "toastID", t.ID)
		}
	}
}

// Recent returns up to HistorySize of the latest toasts, oldest first.
func (b *Broker) Recent() []ports.Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ports.Toast(nil), b.recent...)
}

// Close ends every subscription. Later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
