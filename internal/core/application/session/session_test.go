package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/core/application/proximity"
	"dispatch/internal/core/application/session"
	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/tracking"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type fakeStream struct {
	samples chan kernel.Position
	errs    chan error
	closed  atomic.Bool
}

func (s *fakeStream) Samples() <-chan kernel.Position { return s.samples }
func (s *fakeStream) Errors() <-chan error            { return s.errs }
func (s *fakeStream) Close() error                    { s.closed.Store(true); return nil }

type fakeSensor struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeSensor) Watch(context.Context, ports.WatchOptions) (ports.PositionStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{samples: make(chan kernel.Position, 8), errs: make(chan error, 2)}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeSensor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *fakeSensor) last() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

type noopPublisher struct{}

func (noopPublisher) PushLocation(context.Context, kernel.Position) error { return nil }

type fakeScheduler struct {
	refreshes atomic.Int32
	stopped   atomic.Bool
}

func (f *fakeScheduler) RefreshCatalog() { f.refreshes.Add(1) }
func (f *fakeScheduler) StopAll()        { f.stopped.Store(true) }

type fakeCatalog struct {
	fetched atomic.Int32
}

func (f *fakeCatalog) ListNearbyBusinesses(context.Context, kernel.Position, int) ([]*business.Business, error) {
	return nil, nil
}

func (f *fakeCatalog) ListAvailableOrders(context.Context, string) ([]*order.Order, error) {
	f.fetched.Add(1)
	return nil, nil
}

func (f *fakeCatalog) ListMyOrders(context.Context) ([]*order.Order, error) {
	return nil, nil
}

type nopFirer struct{}

func (nopFirer) Fire(context.Context, int, decimal.Decimal) {}

type SessionTestSuite struct {
	suite.Suite
	store     *state.Store
	sensor    *fakeSensor
	scheduler *fakeScheduler
	catalog   *fakeCatalog
	session   *session.Session
}

func (s *SessionTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = state.NewStore()
	s.sensor = &fakeSensor{}
	s.scheduler = &fakeScheduler{}
	s.catalog = &fakeCatalog{}
	s.session = session.NewSession(
		s.store,
		tracking.NewTracker(s.sensor, noopPublisher{}, logger, tracking.WithFirstFixTimeout(0)),
		s.scheduler,
		commands.NewSelectBusinessCommandHandler(s.store, s.catalog),
		queries.NewGetMapViewQueryHandler(s.store),
		proximity.NewNotifier(services.NewProximityEvaluator(0), services.NewCooldownGate(0), nopFirer{}, nil, logger),
		logger,
	)
}

func (s *SessionTestSuite) TearDownTest() {
	s.session.Close()
}

func (s *SessionTestSuite) sample(lat, lng float64) kernel.Position {
	p, err := kernel.NewPosition(lat, lng, time.Now())
	s.Require().NoError(err)
	return p
}

func (s *SessionTestSuite) waitForPosition() {
	s.Require().Eventually(func() bool { return s.store.Snapshot().HasPosition() }, time.Second, 5*time.Millisecond)
}

func (s *SessionTestSuite) TestGoOnlineStartsWatchAndFirstFixRefreshes() {
	ctx := s.T().Context()
	s.Require().NoError(s.session.GoOnline(ctx))

	s.True(s.store.Snapshot().Online)
	s.Equal(1, s.sensor.count())
	s.EqualValues(1, s.scheduler.refreshes.Load())

	s.sensor.last().samples <- s.sample(41.0082, 28.9784)
	s.waitForPosition()
	s.Require().Eventually(func() bool { return s.scheduler.refreshes.Load() == 2 }, time.Second, 5*time.Millisecond)

	s.sensor.last().samples <- s.sample(41.0083, 28.9785)
	s.Require().Eventually(func() bool {
		return s.store.Snapshot().Position.Lat() == 41.0083
	}, time.Second, 5*time.Millisecond)
	s.EqualValues(2, s.scheduler.refreshes.Load(), "only the first fix refreshes")

	s.Require().NoError(s.session.GoOnline(ctx))
	s.Equal(1, s.sensor.count(), "already online")
}

func (s *SessionTestSuite) TestGoOfflineStopsWatchAndClearsPosition() {
	ctx := s.T().Context()
	s.Require().NoError(s.session.GoOnline(ctx))
	stream := s.sensor.last()
	stream.samples <- s.sample(41.0082, 28.9784)
	s.waitForPosition()

	s.Require().NoError(s.session.GoOffline(ctx))

	snap := s.store.Snapshot()
	s.False(snap.Online)
	s.False(snap.HasPosition())
	s.True(stream.closed.Load())
}

func (s *SessionTestSuite) TestLocationFailureAndRetry() {
	ctx := s.T().Context()
	s.ErrorIs(s.session.RetryLocation(ctx), commands.ErrOffline)

	s.Require().NoError(s.session.GoOnline(ctx))
	s.ErrorIs(s.session.RetryLocation(ctx), tracking.ErrWatchActive)

	s.sensor.last().errs <- ports.ErrSensorPermissionDenied
	s.Require().Eventually(func() bool { return s.store.Snapshot().LocationErr != nil }, time.Second, 5*time.Millisecond)
	s.ErrorIs(s.store.Snapshot().LocationErr, tracking.ErrLocationUnavailable)
	s.ErrorIs(s.store.Snapshot().LocationErr, ports.ErrSensorPermissionDenied)

	s.Require().NoError(s.session.RetryLocation(ctx))
	s.Equal(2, s.sensor.count())
	s.NoError(s.store.Snapshot().LocationErr)

	s.sensor.last().samples <- s.sample(41.0082, 28.9784)
	s.waitForPosition()
}

func (s *SessionTestSuite) TestTapMarker() {
	ctx := s.T().Context()
	biz, err := business.RestoreBusiness("7", "Kebab House", kernel.MustGeoPoint(41.0090, 28.9790), 1)
	s.Require().NoError(err)
	s.Require().True(s.store.ApplyBusinesses(s.store.BeginFetch(state.ResourceBusinesses), []*business.Business{biz}))

	target, err := s.session.TapMarker(ctx, services.BusinessMarkerID("7"))
	s.Require().NoError(err)
	s.Equal(services.TargetBusiness, target.Kind)
	s.Equal("7", s.store.Snapshot().SelectedBusinessID)
	s.EqualValues(1, s.catalog.fetched.Load())

	active, err := order.RestoreOrder(order.Details{
		ID: "1042", BusinessID: "7", PickupLocation: kernel.MustGeoPoint(41.0090, 28.9790), Status: order.Assigned,
	})
	s.Require().NoError(err)
	s.store.ApplyClaimSuccess(active)

	target, err = s.session.TapMarker(ctx, services.PickupMarkerID("1042"))
	s.Require().NoError(err)
	s.Equal(services.MarkerTarget{Kind: services.TargetOrder, ID: "1042"}, target)
	s.Equal("1042", s.store.Snapshot().DetailOrderID)

	_, err = s.session.TapMarker(ctx, "business:unknown")
	s.ErrorIs(err, errs.ErrObjectNotFound)

	s.session.ClearSelection()
	s.Empty(s.store.Snapshot().DetailOrderID)
	s.Empty(s.store.Snapshot().SelectedBusinessID)
}

func (s *SessionTestSuite) TestCloseTearsDown() {
	ctx := s.T().Context()
	s.Require().NoError(s.session.GoOnline(ctx))
	stream := s.sensor.last()
	stream.samples <- s.sample(41.0082, 28.9784)
	s.waitForPosition()

	s.session.Close()
	s.session.Close()

	s.True(stream.closed.Load())
	s.True(s.scheduler.stopped.Load())
	snap := s.store.Snapshot()
	s.False(snap.Online)
	s.False(snap.HasPosition())
	s.ErrorIs(s.session.GoOnline(ctx), session.ErrSessionClosed)
	s.ErrorIs(s.session.SelectBusiness(ctx, "7"), session.ErrSessionClosed)
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
