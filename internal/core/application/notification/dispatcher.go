// Package notification delivers proximity bursts over every enabled channel:
// the system alert, the audible tone and the in-app toast.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"

	"github.com/shopspring/decimal"
)

const (
	ChannelSystem = "system"
	ChannelTone   = "tone"
	ChannelToast  = "toast"
)

// DefaultChannelTimeout bounds one channel delivery.
const DefaultChannelTimeout = 10 * time.Second

var errPermissionDenied = errors.New("notification permission not granted")

// Preferences are the courier's notification switches.
type Preferences struct {
	Push  bool `json:"push"`
	Sound bool `json:"sound"`
}

// Dispatcher fans one proximity burst out to the notification channels.
//
// Channel rules:
//   - system alert only when permission is granted and Push is on
//   - tone only when Sound is on
//   - toast always
//
// Channels are independent: an error or a panic in one is logged and the
// others still run.
type Dispatcher struct {
	alerter ports.SystemAlerter
	tone    ports.TonePlayer
	toasts  ports.ToastPublisher
	now     func() time.Time
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	prefs Preferences
}

// NewDispatcher wires the channels. alerter and tone may be nil when the
// channel is not configured.
func NewDispatcher(
	alerter ports.SystemAlerter,
	tone ports.TonePlayer,
	toasts ports.ToastPublisher,
	prefs Preferences,
	now func() time.Time,
	logger *slog.Logger,
) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		alerter: alerter,
		tone:    tone,
		toasts:  toasts,
		now:     now,
		timeout: DefaultChannelTimeout,
		prefs:   prefs,
		logger:  logger.With("component", "notification-dispatcher"),
	}
}

func (d *Dispatcher) Preferences() Preferences {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prefs
}

func (d *Dispatcher) SetPreferences(p Preferences) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prefs = p
}

// Fire notifies the courier that count ready orders worth total are close.
// Channels run concurrently; Fire returns once every channel finished.
func (d *Dispatcher) Fire(ctx context.Context, count int, total decimal.Decimal) {
	if count <= 0 {
		return
	}
	prefs := d.Preferences()
	title := "Orders nearby"
	body := Summary(count, total)

	var wg sync.WaitGroup
	run := func(channel string, send func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deliver(ctx, channel, send)
		}()
	}

	if d.toasts != nil {
		run(ChannelToast, func(context.Context) error {
			d.toasts.Publish(ports.Toast{
				ID:      kernel.NewUUID().String(),
				Level:   ports.ToastInfo,
				Title:   title,
				Message: body,
				At:      d.now(),
			})
			return nil
		})
	}
	if d.alerter != nil && prefs.Push {
		run(ChannelSystem, func(ctx context.Context) error {
			if !d.alerter.PermissionGranted() {
				return errPermissionDenied
			}
			return d.alerter.Send(ctx, title, body)
		})
	}
	if d.tone != nil && prefs.Sound {
		run(ChannelTone, d.tone.Play)
	}
	wg.Wait()
}

// Summary renders the burst text, e.g. "3 orders nearby worth 245.50".
func Summary(count int, total decimal.Decimal) string {
	noun := "orders"
	if count == 1 {
		noun = "order"
	}
	return fmt.Sprintf("%d %s nearby worth %s", count, noun, total.StringFixed(2))
}

func (d *Dispatcher) deliver(ctx context.Context, channel string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.Notifications.WithLabelValues(channel, "error").Inc()
			d.logger.ErrorContext(ctx, "notification channel panicked", "channel", channel, "panic", r)
		}
	}()

	switch err := send(ctx); {
	case errors.Is(err, errPermissionDenied):
		metrics.Notifications.WithLabelValues(channel, "skipped").Inc()
		d.logger.DebugContext(ctx, "notification permission not granted", "channel", channel)
	case err != nil:
		metrics.Notifications.WithLabelValues(channel, "error").Inc()
		d.logger.WarnContext(ctx, "notification channel failed", "channel", channel, "error", err)
	default:
		metrics.Notifications.WithLabelValues(channel, "ok").Inc()
	}
}
