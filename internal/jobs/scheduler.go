package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/metrics"

	"github.com/robfig/cron/v3"
)

var (
	// ErrTaskBusy is returned when the task is already running.
	ErrTaskBusy = errors.New("task already running")
	// ErrTaskGated is returned when the task's gate is closed.
	ErrTaskGated = errors.New("task gate closed")
	// ErrUnknownTask is returned for a task name that was never added.
	ErrUnknownTask = errors.New("unknown task")
)

// Task is one periodic refresh.
type Task struct {
	Name string
	// Every is the interval between ticks, rounded down to whole seconds by cron.
	Every time.Duration
	// Gate decides from the current state whether a run is due. Nil means always.
	Gate func(snap state.Snapshot) bool
	Run  func(ctx context.Context) error
}

type task struct {
	Task
	inflight atomic.Bool
}

// Scheduler owns every interval refresh of the client. All tasks share one
// cron instance; a task never runs twice at once, whether a tick or a manual
// trigger started it.
type Scheduler struct {
	store  *state.Store
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	tasks   map[string]*task
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func NewScheduler(store *state.Store, logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:  store,
		cron:   cron.New(cron.WithLogger(cronLogger{logger: logger})),
		logger: logger,
		tasks:  make(map[string]*task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers t. Tasks can be added before or after Start.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if t.Every < time.Second {
		return fmt.Errorf("task %s: interval %s is shorter than one second", t.Name, t.Every)
	}
	if t.Run == nil {
		return fmt.Errorf("task %s: run func is required", t.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[t.Name]; dup {
		return fmt.Errorf("task %s already added", t.Name)
	}
	tk := &task{Task: t}
	s.tasks[t.Name] = tk
	s.cron.Schedule(cron.Every(t.Every), cron.FuncJob(func() {
		_ = s.execute(s.baseContext(), tk)
	}))
	return nil
}

// Start begins ticking. A stopped scheduler can be started again.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
}

// Stop halts ticking, cancels runs in flight and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.running = false
	s.cancel()
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger runs the named task now without waiting for it.
func (s *Scheduler) Trigger(name string) {
	tk, ok := s.lookup(name)
	if !ok {
		s.logger.Warn("trigger of unknown task", "task", name)
		return
	}
	s.mu.Lock()
	ctx := s.ctx
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		_ = s.execute(ctx, tk)
	}()
}

// RunNow runs the named task on the calling goroutine. It returns ErrTaskGated
// or ErrTaskBusy when the run was skipped, and the task's error otherwise.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	tk, ok := s.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.baseContext(), cancel)
	defer stop()
	return s.execute(ctx, tk)
}

func (s *Scheduler) lookup(name string) (*task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk, ok := s.tasks[name]
	return tk, ok
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, tk *task) (err error) {
	if tk.Gate != nil && !tk.Gate(s.store.Snapshot()) {
		metrics.TaskRuns.WithLabelValues(tk.Name, "skipped").Inc()
		return ErrTaskGated
	}
	if !tk.inflight.CompareAndSwap(false, true) {
		metrics.TaskRuns.WithLabelValues(tk.Name, "skipped").Inc()
		return ErrTaskBusy
	}
	defer tk.inflight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", tk.Name, r)
			metrics.TaskRuns.WithLabelValues(tk.Name, "error").Inc()
			s.logger.ErrorContext(ctx, "task panicked", "task", tk.Name, "panic", r)
		}
	}()

	err = tk.Run(ctx)
	switch {
	case err == nil:
		metrics.TaskRuns.WithLabelValues(tk.Name, "ok").Inc()
	case commands.IsExpected(err) || ctx.Err() != nil:
		metrics.TaskRuns.WithLabelValues(tk.Name, "skipped").Inc()
		s.logger.DebugContext(ctx, "task skipped", "task", tk.Name, "reason", err)
	default:
		metrics.TaskRuns.WithLabelValues(tk.Name, "error").Inc()
		s.logger.WarnContext(ctx, "task failed", "task", tk.Name, "error", err)
	}
	return err
}
