package swrcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs a sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

// Sweepable is anything that can evict its hard-expired entries.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically sweeps hard-expired entries out of one or more caches.
//
// Reads already evict lazily; the sweeper only reclaims memory for keys nobody reads
// any more.
type Sweeper struct {
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	mu       sync.Mutex
	started  bool
}

// NewSweeper parses schedule (standard cron or "@every <duration>") and returns a stopped
// sweeper. An empty schedule uses DefaultSweepSchedule.
//
// Example: sweep a cache every 30 seconds
//
//	c := swrcache.New[string]()
//	sw, _ := swrcache.NewSweeper("@every 30s", slog.Default())
//	_ = sw.Add("strings", c)
//	sw.Start()
//	defer sw.Stop(context.Background())
func NewSweeper(schedule string, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger.With(slog.String("component", "swrcache.sweeper"), slog.String("schedule", schedule)),
	}, nil
}

// Add schedules target under name.
func (s *Sweeper) Add(name string, target Sweepable) error {
	if target == nil {
		return fmt.Errorf("sweep target %q is nil", name)
	}
	_, err := s.cron.AddFunc(s.schedule, func() {
		removed := target.Sweep()
		if removed > 0 {
			s.logger.Debug("swept expired entries", slog.String("target", name), slog.Int("removed", removed))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", name, err)
	}
	return nil
}

// Start begins running scheduled sweeps in the background. Calling it twice is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
