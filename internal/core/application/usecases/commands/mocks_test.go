package commands_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogClient struct{ mock.Mock }

func (m *MockCatalogClient) ListNearbyBusinesses(
	ctx context.Context, position kernel.Position, radiusMeters int,
) ([]*business.Business, error) {
	args := m.Called(ctx, position, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*business.Business), args.Error(1)
}

func (m *MockCatalogClient) ListAvailableOrders(ctx context.Context, businessID string) ([]*order.Order, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockCatalogClient) ListMyOrders(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockClaimClient struct{ mock.Mock }

func (m *MockClaimClient) ClaimOrder(ctx context.Context, orderID string, requestID kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, orderID, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockLifecycleClient struct{ mock.Mock }

func (m *MockLifecycleClient) AcceptOrder(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockLifecycleClient) ConfirmPickup(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockLifecycleClient) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	return m.Called(ctx, orderID, status).Error(0)
}

type MockLocationPublisher struct{ mock.Mock }

func (m *MockLocationPublisher) PushLocation(ctx context.Context, position kernel.Position) error {
	return m.Called(ctx, position).Error(0)
}

type MockRefresher struct{ mock.Mock }

func (m *MockRefresher) RefreshCatalog() {
	m.Called()
}

type toastSink struct {
	mu     sync.Mutex
	toasts []ports.Toast
}

func (s *toastSink) Publish(t ports.Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toasts = append(s.toasts, t)
}

func (s *toastSink) all() []ports.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Toast(nil), s.toasts...)
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPosition(t *testing.T) kernel.Position {
	t.Helper()
	p, err := kernel.NewPosition(41.0082, 28.9784, testNow)
	require.NoError(t, err)
	return p
}

func onlineStore(t *testing.T) *state.Store {
	t.Helper()
	s := state.NewStore()
	s.SetOnline(true)
	require.True(t, s.SetPosition(testPosition(t)))
	return s
}

func testBusiness(t *testing.T, id string, ready int) *business.Business {
	t.Helper()
	b, err := business.RestoreBusiness(id, "biz "+id, kernel.MustGeoPoint(41.0090, 28.9790), ready)
	require.NoError(t, err)
	return b
}

func testOrder(t *testing.T, id, bizID string, status order.Status) *order.Order {
	t.Helper()
	o, err := order.RestoreOrder(order.Details{
		ID:               id,
		Code:             "C-" + id,
		BusinessID:       bizID,
		PickupLocation:   kernel.MustGeoPoint(41.0090, 28.9790),
		DeliveryLocation: kernel.MustGeoPoint(41.0200, 28.9900),
		GrandTotal:       decimal.RequireFromString("120.50"),
		Status:           status,
	})
	require.NoError(t, err)
	return o
}

// seedCatalog loads businesses and their available orders into store.
func seedCatalog(t *testing.T, store *state.Store, orders map[string][]*order.Order) {
	t.Helper()
	var list []*business.Business
	for bizID, available := range orders {
		list = append(list, testBusiness(t, bizID, len(available)))
	}
	require.True(t, store.ApplyBusinesses(store.BeginFetch(state.ResourceBusinesses), list))
	for bizID, available := range orders {
		seq := store.BeginFetch(state.BusinessOrdersResource(bizID))
		require.True(t, store.ApplyBusinessOrders(seq, bizID, available))
	}
}
