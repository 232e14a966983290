package tracking

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
	"dispatch/internal/metrics"
)

const (
	// DefaultFirstFixTimeout bounds the wait for the first sample of a watch.
	DefaultFirstFixTimeout = 30 * time.Second
	// DefaultPushTimeout bounds one location upload.
	DefaultPushTimeout = 10 * time.Second
)

// SampleFunc receives every accepted position.
type SampleFunc func(p kernel.Position)

// ErrorFunc receives the terminal *LocationUnavailableError of a watch.
type ErrorFunc func(err error)

// Option configures a Tracker.
type Option func(*Tracker)

// WithFirstFixTimeout overrides DefaultFirstFixTimeout. Zero disables the timeout.
func WithFirstFixTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.firstFix = d }
}

// WithPushTimeout overrides DefaultPushTimeout.
func WithPushTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.pushTimeout = d
		}
	}
}

// WithClock injects the clock used to reject cached fixes.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// Tracker turns a LocationSensor into a stream of fresh positions and
// forwards each one to the server.
//
// A watch delivers samples until it is stopped or the sensor fails for good
// (permission denied, unsupported, no first fix in time). A failed watch is
// never restarted on its own; call Retry.
type Tracker struct {
	sensor      ports.LocationSensor
	publisher   ports.LocationPublisher
	firstFix    time.Duration
	pushTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewTracker(sensor ports.LocationSensor, publisher ports.LocationPublisher, logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		sensor:      sensor,
		publisher:   publisher,
		firstFix:    DefaultFirstFixTimeout,
		pushTimeout: DefaultPushTimeout,
		now:         time.Now,
		logger:      logger.With("component", "geo-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start opens a continuous high-accuracy watch. Callbacks run on the watch's
// own goroutine, one at a time. onSample must not call Stop on its own watch.
func (t *Tracker) Start(onSample SampleFunc, onError ErrorFunc) *Watch {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watch{
		tracker:   t,
		onSample:  onSample,
		onError:   onError,
		startedAt: t.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go w.run(ctx)
	t.logger.Info("location watch started")
	return w
}

// Stop ends w. It is idempotent and safe on a nil watch; once it returns no
// callback of w runs again.
func (t *Tracker) Stop(w *Watch) {
	w.Stop()
}

// Retry restarts a watch that failed or was stopped, reusing its callbacks.
func (t *Tracker) Retry(w *Watch) (*Watch, error) {
	if w == nil {
		return nil, ErrNoWatch
	}
	if !w.Terminated() && !w.Stopped() {
		return w, ErrWatchActive
	}
	w.Stop()
	return t.Start(w.onSample, w.onError), nil
}

func (t *Tracker) watchOptions() ports.WatchOptions {
	return ports.WatchOptions{
		HighAccuracy: true,
		MaximumAge:   0,
		Timeout:      t.firstFix,
	}
}

// Watch is the handle of one running location watch.
type Watch struct {
	tracker   *Tracker
	onSample  SampleFunc
	onError   ErrorFunc
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	stopped    atomic.Bool
	terminated atomic.Bool
	// cbMu serializes callbacks with Stop
	cbMu sync.Mutex
}

// Stop ends the watch and waits for its goroutine to exit.
func (w *Watch) Stop() {
	if w == nil {
		return
	}
	if w.stopped.CompareAndSwap(false, true) {
		w.cancel()
		w.tracker.logger.Info("location watch stopped")
	}
	// a callback in flight finishes before Stop returns
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	<-w.done
}

// Stopped reports whether Stop was called.
func (w *Watch) Stopped() bool {
	return w != nil && w.stopped.Load()
}

// Terminated reports whether the sensor gave up on this watch.
func (w *Watch) Terminated() bool {
	return w != nil && w.terminated.Load()
}

// Done is closed once the watch goroutine exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) run(ctx context.Context) {
	defer close(w.done)
	t := w.tracker
	opts := t.watchOptions()

	stream, err := t.sensor.Watch(ctx, opts)
	if err != nil {
		if ctx.Err() == nil {
			w.fail(err)
		}
		return
	}
	defer func() {
		if err := stream.Close(); err != nil {
			t.logger.Warn("closing location stream", "error", err)
		}
	}()

	push := newPusher(t.publisher, t.pushTimeout, t.logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		push.run(ctx)
	}()
	defer wg.Wait()

	var firstFix <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		firstFix = timer.C
	}

	samples, errs := stream.Samples(), stream.Errors()
	for {
		select {
		case <-ctx.Done():
			return

		case <-firstFix:
			w.fail(ports.ErrSensorTimeout)
			return

		case p, ok := <-samples:
			if !ok {
				if ctx.Err() == nil {
					w.fail(errStreamEnded)
				}
				return
			}
			if !w.isFresh(p, opts.MaximumAge) {
				metrics.LocationSamples.WithLabelValues("cached").Inc()
				continue
			}
			firstFix = nil
			metrics.LocationSamples.WithLabelValues("accepted").Inc()
			if !w.deliver(p) {
				return
			}
			push.push(p)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if ports.IsTerminalSensorError(err) {
				w.fail(err)
				return
			}
			t.logger.WarnContext(ctx, "transient location error", "error", err)
		}
	}
}

// isFresh rejects fixes captured before the watch started, less maxAge.
func (w *Watch) isFresh(p kernel.Position, maxAge time.Duration) bool {
	return !p.CapturedAt().Before(w.startedAt.Add(-maxAge))
}

func (w *Watch) deliver(p kernel.Position) bool {
	if w.stopped.Load() {
		return false
	}
	if !w.cbMu.TryLock() {
		// Stop holds the lock and is waiting for us to exit
		return false
	}
	defer w.cbMu.Unlock()
	if w.stopped.Load() {
		return false
	}
	if w.onSample != nil {
		w.onSample(p)
	}
	return true
}

func (w *Watch) fail(cause error) {
	w.terminated.Store(true)
	err := &LocationUnavailableError{Cause: cause}
	w.tracker.logger.Warn("location watch failed", "error", err)

	if w.stopped.Load() || !w.cbMu.TryLock() {
		return
	}
	defer w.cbMu.Unlock()
	if w.stopped.Load() || w.onError == nil {
		return
	}
	w.onError(err)
}
