package jobs_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/business"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/jobs"

	"github.com/stretchr/testify/require"
)

// fakeAPI counts calls per operation. A non-nil gate blocks nearby calls until closed.
type fakeAPI struct {
	nearby    atomic.Int32
	available atomic.Int32
	mine      atomic.Int32
	pushes    atomic.Int32

	mu         sync.Mutex
	businessID []string

	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeAPI) ListNearbyBusinesses(ctx context.Context, _ kernel.Position, _ int) ([]*business.Business, error) {
	f.nearby.Add(1)
	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (f *fakeAPI) ListAvailableOrders(_ context.Context, businessID string) ([]*order.Order, error) {
	f.available.Add(1)
	f.mu.Lock()
	f.businessID = append(f.businessID, businessID)
	f.mu.Unlock()
	return nil, nil
}

func (f *fakeAPI) ListMyOrders(context.Context) ([]*order.Order, error) {
	f.mine.Add(1)
	return nil, nil
}

func (f *fakeAPI) PushLocation(context.Context, kernel.Position) error {
	f.pushes.Add(1)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJobManager(t *testing.T, store *state.Store, api *fakeAPI, intervals jobs.Intervals) *jobs.JobManager {
	t.Helper()
	logger := discardLogger()
	jm := jobs.NewJobManager(store, jobs.Handlers{
		NearbyBusinesses: commands.NewRefreshNearbyBusinessesCommandHandler(store, api, 0, false, logger),
		BusinessOrders:   commands.NewRefreshBusinessOrdersCommandHandler(store, api),
		MyOrders:         commands.NewRefreshMyOrdersCommandHandler(store, api),
		PushLocation:     commands.NewPushLocationCommandHandler(store, api),
	}, intervals, logger)
	require.NoError(t, jm.StartAll())
	t.Cleanup(jm.StopAll)
	return jm
}

func setPosition(t *testing.T, store *state.Store) {
	t.Helper()
	p, err := kernel.NewPosition(41.0082, 28.9784, time.Now())
	require.NoError(t, err)
	require.True(t, store.SetPosition(p))
}
