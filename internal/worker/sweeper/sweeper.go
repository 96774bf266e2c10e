// Package sweeper periodically drops availability index entries whose
// records can no longer be live. Reads already ignore expired records, so
// this only keeps the index from growing.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/nikhil/staffhub/internal/logger"
)

// Pruner removes index entries last updated at or before cutoff.
type Pruner interface {
	PruneIndex(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	pruner   Pruner
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time

	sched gocron.Scheduler
}

func New(pruner Pruner, ttl, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		pruner:   pruner,
		ttl:      ttl,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run performs a single sweep.
func (s *Sweeper) Run(ctx context.Context) error {
	start := s.now()
	removed, err := s.pruner.PruneIndex(ctx, start.Add(-s.ttl))
	if err != nil {
		s.log.Error("Availability sweep failed", "error", err)
		return fmt.Errorf("sweep availability index: %w", err)
	}
	s.log.Info("Availability sweep completed", "removed", removed, "duration", time.Since(start))
	return nil
}

// Start schedules Run every interval, beginning immediately. Overlapping
// runs are skipped.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()
			_ = s.Run(ctx)
		}),
		gocron.WithName("availability-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule availability sweep: %w", err)
	}

	s.sched = sched
	sched.Start()
	s.log.Info("Availability sweeper started", "interval", s.interval)
	return nil
}

// Stop waits for a running sweep and stops the schedule.
func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
