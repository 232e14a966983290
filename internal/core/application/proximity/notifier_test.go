package proximity_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dispatch/internal/core/application/proximity"
	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type burst struct {
	count int
	total decimal.Decimal
}

type recordingFirer struct {
	mu     sync.Mutex
	bursts []burst
}

func (f *recordingFirer) Fire(_ context.Context, count int, total decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bursts = append(f.bursts, burst{count: count, total: total})
}

func (f *recordingFirer) all() []burst {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]burst(nil), f.bursts...)
}

type NotifierTestSuite struct {
	suite.Suite
	now      time.Time
	store    *state.Store
	firer    *recordingFirer
	notifier *proximity.Notifier
	detach   func()
}

func (s *NotifierTestSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.store = state.NewStore()
	s.firer = &recordingFirer{}
	s.notifier = proximity.NewNotifier(
		services.NewProximityEvaluator(services.DefaultProximityRadiusKm),
		services.NewCooldownGate(services.DefaultNotificationCooldown),
		s.firer,
		func() time.Time { return s.now },
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.detach = s.notifier.Attach(s.store)
}

func (s *NotifierTestSuite) TearDownTest() {
	s.detach()
	s.notifier.Close()
}

func (s *NotifierTestSuite) moveTo(lat, lng float64) {
	p, err := kernel.NewPosition(lat, lng, s.now)
	s.Require().NoError(err)
	s.Require().True(s.store.SetPosition(p))
	s.notifier.Wait()
}

func (s *NotifierTestSuite) seedOrders(orders ...*order.Order) {
	b, err := business.RestoreBusiness("7", "Kebab House", kernel.MustGeoPoint(41.0090, 28.9790), len(orders))
	s.Require().NoError(err)
	s.Require().True(s.store.ApplyBusinesses(s.store.BeginFetch(state.ResourceBusinesses), []*business.Business{b}))
	s.Require().True(s.store.ApplyBusinessOrders(s.store.BeginFetch(state.BusinessOrdersResource("7")), "7", orders))
	s.notifier.Wait()
}

func (s *NotifierTestSuite) newOrder(id string, lat, lng float64, total string) *order.Order {
	o, err := order.RestoreOrder(order.Details{
		ID:             id,
		BusinessID:     "7",
		PickupLocation: kernel.MustGeoPoint(lat, lng),
		GrandTotal:     decimal.RequireFromString(total),
		Status:         order.Available,
	})
	s.Require().NoError(err)
	return o
}

func (s *NotifierTestSuite) TestOneBurstWithinCooldown() {
	s.store.SetOnline(true)
	s.seedOrders(s.newOrder("1042", 41.0090, 28.9790, "120.50"))

	s.moveTo(41.0082, 28.9784)
	s.now = s.now.Add(10 * time.Second)
	s.moveTo(41.0083, 28.9785)
	s.now = s.now.Add(4 * time.Minute)
	s.moveTo(41.0084, 28.9786)

	bursts := s.firer.all()
	s.Require().Len(bursts, 1)
	s.Equal(1, bursts[0].count)
	s.True(decimal.RequireFromString("120.50").Equal(bursts[0].total))
}

func (s *NotifierTestSuite) TestBurstsSixMinutesApartBothFire() {
	s.store.SetOnline(true)
	s.seedOrders(s.newOrder("1042", 41.0090, 28.9790, "120.50"))

	s.moveTo(41.0082, 28.9784)
	s.now = s.now.Add(6 * time.Minute)
	s.moveTo(41.0082, 28.9784)

	s.Len(s.firer.all(), 2)
}

func (s *NotifierTestSuite) TestSumsCloseOrdersOnly() {
	s.store.SetOnline(true)
	s.seedOrders(
		s.newOrder("near-1", 41.0090, 28.9790, "100.00"),
		s.newOrder("near-2", 41.0085, 28.9780, "45.50"),
		s.newOrder("far", 41.1000, 29.1000, "999.00"),
	)

	s.moveTo(41.0082, 28.9784)

	bursts := s.firer.all()
	s.Require().Len(bursts, 1)
	s.Equal(2, bursts[0].count)
	s.Equal("145.50", bursts[0].total.StringFixed(2))
}

func (s *NotifierTestSuite) TestCatalogChangeAlsoEvaluates() {
	s.store.SetOnline(true)
	s.moveTo(41.0082, 28.9784)
	s.Empty(s.firer.all(), "no cached orders yet")

	s.seedOrders(s.newOrder("1042", 41.0090, 28.9790, "120.50"))

	s.Len(s.firer.all(), 1)
}

func (s *NotifierTestSuite) TestNothingCloseNoBurst() {
	s.store.SetOnline(true)
	s.seedOrders(s.newOrder("far", 41.1000, 29.1000, "10.00"))

	s.moveTo(41.0082, 28.9784)

	s.Empty(s.firer.all())
	s.False(s.notifier.Evaluate(s.store.Snapshot()))
}

func (s *NotifierTestSuite) TestResetReopensGate() {
	s.store.SetOnline(true)
	s.seedOrders(s.newOrder("1042", 41.0090, 28.9790, "120.50"))
	s.moveTo(41.0082, 28.9784)

	s.notifier.Reset()
	s.moveTo(41.0082, 28.9784)

	s.Len(s.firer.all(), 2)
}

func TestNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(NotifierTestSuite))
}

func TestNotifier_ClosedNeverFires(t *testing.T) {
	firer := &recordingFirer{}
	n := proximity.NewNotifier(
		services.NewProximityEvaluator(0),
		services.NewCooldownGate(0),
		firer,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	store := state.NewStore()
	store.SetOnline(true)
	p, err := kernel.NewPosition(41.0082, 28.9784, time.Now())
	require.NoError(t, err)
	store.SetPosition(p)
	o, err := order.RestoreOrder(order.Details{
		ID: "1", BusinessID: "7", PickupLocation: kernel.MustGeoPoint(41.0090, 28.9790), Status: order.Available,
	})
	require.NoError(t, err)
	require.True(t, store.ApplyBusinessOrders(store.BeginFetch(state.BusinessOrdersResource("7")), "7", []*order.Order{o}))
	store.SelectBusiness("7")

	n.Close()

	assert.False(t, n.Evaluate(store.Snapshot()))
	assert.Empty(t, firer.all())
}
