package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"
)

var _ ports.LocationSensor = (*Sensor)(nil)

// Sensor replays one Track for every watch. Fixes are stamped with the wall
// clock at emission so they always pass freshness checks.
type Sensor struct {
	track  Track
	now    func() time.Time
	logger *slog.Logger
}

// NewSensor validates track and returns a sensor playing it.
func NewSensor(track Track, logger *slog.Logger) (*Sensor, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}
	if track.Speedup == 0 {
		track.Speedup = 1
	}
	return &Sensor{track: track, now: time.Now, logger: logger.With("component", "replay", "track", track.Name)}, nil
}

func (s *Sensor) Watch(ctx context.Context, _ ports.WatchOptions) (ports.PositionStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	st := &stream{
		samples: make(chan kernel.Position),
		errs:    make(chan error),
		cancel:  cancel,
	}
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		defer close(st.errs)
		defer close(st.samples)
		s.play(ctx, st)
	}()
	return st, nil
}

func (s *Sensor) play(ctx context.Context, st *stream) {
	loop := s.track.Loop && s.track.Duration() > 0
	for lap := 0; ; lap++ {
		start := s.now()
		for _, p := range s.track.Points {
			wait := time.Duration(float64(p.At)/s.track.Speedup) - s.now().Sub(start)
			if !sleep(ctx, wait) {
				return
			}
			if p.Error != "" {
				if !st.send(ctx, nil, p.sensorError()) {
					return
				}
				continue
			}
			pos, err := p.position(s.now())
			if err != nil {
				s.logger.Warn("skipping invalid track point", "error", err)
				continue
			}
			if !st.send(ctx, &pos, nil) {
				return
			}
		}
		if !loop {
			s.logger.Debug("track finished", "laps", lap+1)
			<-ctx.Done()
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type stream struct {
	samples chan kernel.Position
	errs    chan error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (s *stream) Samples() <-chan kernel.Position { return s.samples }
func (s *stream) Errors() <-chan error            { return s.errs }

func (s *stream) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *stream) send(ctx context.Context, pos *kernel.Position, err error) bool {
	if pos != nil {
		select {
		case s.samples <- *pos:
			return true
		case <-ctx.Done():
			return false
		}
	}
	select {
	case s.errs <- err:
		return true
	case <-ctx.Done():
		return false
	}
}
