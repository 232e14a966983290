// Package session ties the location watch, the scheduler and the proximity
// notifier to the courier's online status.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"dispatch/internal/core/application/proximity"
	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/tracking"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"
)

// ErrSessionClosed is returned by every operation after Close.
var ErrSessionClosed = errors.New("session is closed")

// Scheduler is the part of the job manager the session drives.
type Scheduler interface {
	RefreshCatalog()
	StopAll()
}

// Session is the courier's live dispatch session.
//
// Going online starts a location watch; the first sample of the watch triggers
// a catalog refresh so the courier does not wait for the next poll. Going
// offline stops the watch and discards the position. Close tears everything
// down and clears the state.
type Session struct {
	store     *state.Store
	tracker   *tracking.Tracker
	scheduler Scheduler
	selectBiz commands.SelectBusinessCommandHandler
	mapView   queries.GetMapViewQueryHandler
	notifier  *proximity.Notifier
	logger    *slog.Logger

	mu       sync.Mutex
	watch    *tracking.Watch
	closed   bool
	detach   func()
	awaiting atomic.Bool
}

func NewSession(
	store *state.Store,
	tracker *tracking.Tracker,
	scheduler Scheduler,
	selectBiz commands.SelectBusinessCommandHandler,
	mapView queries.GetMapViewQueryHandler,
	notifier *proximity.Notifier,
	logger *slog.Logger,
) *Session {
	return &Session{
		store:     store,
		tracker:   tracker,
		scheduler: scheduler,
		selectBiz: selectBiz,
		mapView:   mapView,
		notifier:  notifier,
		logger:    logger.With("component", "session"),
		detach:    notifier.Attach(store),
	}
}

// GoOnline marks the courier available and starts the location watch.
// Calling it while online is a no-op.
func (s *Session) GoOnline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.store.Snapshot().Online && s.watch != nil && !s.watch.Stopped() {
		return nil
	}

	s.store.SetOnline(true)
	s.awaiting.Store(true)
	s.watch = s.tracker.Start(s.onSample, s.onError)
	s.scheduler.RefreshCatalog()
	s.logger.InfoContext(ctx, "courier online")
	return nil
}

// GoOffline stops the location watch and marks the courier unavailable.
func (s *Session) GoOffline(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.tracker.Stop(s.watch)
	s.watch = nil
	s.store.SetOnline(false)
	s.logger.InfoContext(ctx, "courier offline")
	return nil
}

// RetryLocation restarts a failed location watch. It returns
// tracking.ErrWatchActive while the watch is healthy.
func (s *Session) RetryLocation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.store.Snapshot().Online {
		return commands.ErrOffline
	}

	w, err := s.tracker.Retry(s.watch)
	if errors.Is(err, tracking.ErrNoWatch) {
		w, err = s.tracker.Start(s.onSample, s.onError), nil
	}
	if err != nil {
		return err
	}
	s.watch = w
	s.awaiting.Store(true)
	s.store.SetLocationError(nil)
	s.logger.InfoContext(ctx, "location watch restarted")
	return nil
}

// SelectBusiness opens the claim panel of businessID and loads its orders.
func (s *Session) SelectBusiness(ctx context.Context, businessID string) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	cmd, err := commands.NewSelectBusinessCommand(businessID)
	if err != nil {
		return err
	}
	return s.selectBiz.Handle(ctx, cmd)
}

// ClearSelection closes the claim and order detail panels.
func (s *Session) ClearSelection() {
	s.store.ShowOrderDetail("")
	s.store.ClearSelection()
}

// TapMarker performs the action bound to a map marker: a business marker opens
// its claim panel, an order marker opens the order detail panel.
func (s *Session) TapMarker(ctx context.Context, markerID string) (services.MarkerTarget, error) {
	if s.isClosed() {
		return services.MarkerTarget{}, ErrSessionClosed
	}
	view, err := s.mapView.Handle(ctx, queries.NewGetMapViewQuery())
	if err != nil {
		return services.MarkerTarget{}, err
	}
	target, ok := view.Resolve(markerID)
	if !ok {
		return services.MarkerTarget{}, errs.NewObjectNotFoundError("marker", markerID)
	}

	switch target.Kind {
	case services.TargetBusiness:
		return target, s.SelectBusiness(ctx, target.ID)
	case services.TargetOrder:
		s.store.ShowOrderDetail(target.ID)
	}
	return target, nil
}

// Close stops the watch and the scheduler, detaches every listener, resets
// the notification cooldown and clears the state. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	watch := s.watch
	s.watch = nil
	s.mu.Unlock()

	s.tracker.Stop(watch)
	s.scheduler.StopAll()
	s.detach()
	s.store.UnsubscribeAll()
	s.notifier.Close()
	s.store.Reset()
	s.logger.Info("session closed")
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) onSample(p kernel.Position) {
	if !s.store.SetPosition(p) {
		return
	}
	if s.awaiting.CompareAndSwap(true, false) {
		s.logger.Info("first location fix", "lat", p.Lat(), "lng", p.Lng())
		s.scheduler.RefreshCatalog()
	}
}

func (s *Session) onError(err error) {
	s.logger.Warn("location unavailable", "error", err)
	s.store.SetLocationError(err)
}
