package http_test

import (
	"context"

	"dispatch/internal/core/application/notification"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/claim"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/services"

	"github.com/stretchr/testify/mock"
)

type MockSession struct{ mock.Mock }

func (m *MockSession) GoOnline(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) GoOffline(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) RetryLocation(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) SelectBusiness(ctx context.Context, businessID string) error {
	return m.Called(ctx, businessID).Error(0)
}

func (m *MockSession) ClearSelection() {
	m.Called()
}

func (m *MockSession) TapMarker(ctx context.Context, markerID string) (services.MarkerTarget, error) {
	args := m.Called(ctx, markerID)
	return args.Get(0).(services.MarkerTarget), args.Error(1)
}

type MockClaimHandler struct{ mock.Mock }

func (m *MockClaimHandler) Handle(ctx context.Context, cmd commands.ClaimOrderCommand) (claim.Attempt, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(claim.Attempt), args.Error(1)
}

type MockAdvanceHandler struct{ mock.Mock }

func (m *MockAdvanceHandler) Handle(ctx context.Context, cmd commands.AdvanceOrderCommand) (*order.Order, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockStateHandler struct{ mock.Mock }

func (m *MockStateHandler) Handle(ctx context.Context, q queries.GetStateQuery) (queries.GetStateQueryResponse, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(queries.GetStateQueryResponse), args.Error(1)
}

type MockMapHandler struct{ mock.Mock }

func (m *MockMapHandler) Handle(ctx context.Context, q queries.GetMapViewQuery) (queries.GetMapViewQueryResponse, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(queries.GetMapViewQueryResponse), args.Error(1)
}

type prefsStub struct {
	prefs notification.Preferences
}

func (p *prefsStub) Preferences() notification.Preferences     { return p.prefs }
func (p *prefsStub) SetPreferences(n notification.Preferences) { p.prefs = n }
