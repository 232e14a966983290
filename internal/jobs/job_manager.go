package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/usecases/commands"
)

// Task names.
const (
	TaskNearbyBusinesses = "nearby-businesses"
	TaskSelectedOrders   = "selected-business-orders"
	TaskMyOrders         = "my-orders"
	TaskLocationRefresh  = "location-refresh"
)

const (
	DefaultPollInterval            = 30 * time.Second
	DefaultLocationRefreshInterval = 180 * time.Second
)

// Intervals configures the refresh cadence. Zero values fall back to the defaults.
type Intervals struct {
	Poll            time.Duration
	LocationRefresh time.Duration
}

// Handlers are the commands the scheduled tasks run.
type Handlers struct {
	NearbyBusinesses commands.RefreshNearbyBusinessesCommandHandler
	BusinessOrders   commands.RefreshBusinessOrdersCommandHandler
	MyOrders         commands.RefreshMyOrdersCommandHandler
	PushLocation     commands.PushLocationCommandHandler
}

// JobManager owns the dispatch refresh tasks:
//
//   - nearby businesses, every poll interval while online with a position
//   - orders of the selected business, every poll interval while a business is selected
//   - the courier's own orders, every poll interval while online
//   - a forced location upload, every location refresh interval while online with a position
//
// It also implements commands.CatalogRefresher for out-of-band refreshes after
// a claim or a delivery.
type JobManager struct {
	scheduler *Scheduler
	tasks     []Task
	added     atomic.Bool
	logger    *slog.Logger
}

func NewJobManager(store *state.Store, handlers Handlers, intervals Intervals, logger *slog.Logger) *JobManager {
	if intervals.Poll <= 0 {
		intervals.Poll = DefaultPollInterval
	}
	if intervals.LocationRefresh <= 0 {
		intervals.LocationRefresh = DefaultLocationRefreshInterval
	}

	return &JobManager{
		scheduler: NewScheduler(store, logger),
		tasks: []Task{
			{
				Name:  TaskNearbyBusinesses,
				Every: intervals.Poll,
				Gate:  onlineWithPosition,
				Run: func(ctx context.Context) error {
					return handlers.NearbyBusinesses.Handle(ctx, commands.NewRefreshNearbyBusinessesCommand())
				},
			},
			{
				Name:  TaskSelectedOrders,
				Every: intervals.Poll,
				Gate:  func(snap state.Snapshot) bool { return snap.Online && snap.SelectedBusinessID != "" },
				Run: func(ctx context.Context) error {
					cmd, err := commands.NewRefreshBusinessOrdersCommand(store.Snapshot().SelectedBusinessID)
					if err != nil {
						// selection closed between gate and run
						return nil
					}
					return handlers.BusinessOrders.Handle(ctx, cmd)
				},
			},
			{
				Name:  TaskMyOrders,
				Every: intervals.Poll,
				Gate:  func(snap state.Snapshot) bool { return snap.Online },
				Run: func(ctx context.Context) error {
					return handlers.MyOrders.Handle(ctx, commands.NewRefreshMyOrdersCommand())
				},
			},
			{
				Name:  TaskLocationRefresh,
				Every: intervals.LocationRefresh,
				Gate:  onlineWithPosition,
				Run: func(ctx context.Context) error {
					return handlers.PushLocation.Handle(ctx, commands.NewPushLocationCommand())
				},
			},
		},
		logger: logger.With("component", "job_manager"),
	}
}

// StartAll registers the tasks on first use and starts ticking.
func (jm *JobManager) StartAll() error {
	if !jm.added.Load() {
		for _, t := range jm.tasks {
			if err := jm.scheduler.Add(t); err != nil {
				return fmt.Errorf("failed to add %s task: %w", t.Name, err)
			}
		}
		jm.added.Store(true)
	}
	jm.scheduler.Start()
	return nil
}

// StopAll stops ticking and waits for runs in flight.
func (jm *JobManager) StopAll() {
	jm.scheduler.Stop()
}

// RefreshCatalog triggers the catalog and my-orders tasks now. Gates and the
// in-flight rule still apply.
func (jm *JobManager) RefreshCatalog() {
	jm.Trigger(TaskNearbyBusinesses)
	jm.Trigger(TaskSelectedOrders)
	jm.Trigger(TaskMyOrders)
}

// Trigger runs one task now without waiting for it.
func (jm *JobManager) Trigger(name string) {
	if !jm.added.Load() {
		jm.logger.Debug("trigger before start ignored", "task", name)
		return
	}
	jm.scheduler.Trigger(name)
}

// RunNow runs one task on the calling goroutine; see Scheduler.RunNow.
func (jm *JobManager) RunNow(ctx context.Context, name string) error {
	if !jm.added.Load() {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return jm.scheduler.RunNow(ctx, name)
}

func onlineWithPosition(snap state.Snapshot) bool {
	return snap.Online && snap.HasPosition()
}
