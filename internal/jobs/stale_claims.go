package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/angelmondragon/tradeinz-backend/internal/orders"
	"github.com/angelmondragon/tradeinz-backend/pkg/config"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/metrics"
)

// StaleClaimWatcher reports orders stuck in pending_acceptance past the
// configured age. It only observes: there is no automatic timeout that
// returns an order to the pool, so the gauge and log line are the signal
// for operators to chase the partner.
type StaleClaimWatcher struct {
	repo    orders.Repository
	metrics *metrics.MatchingMetrics
	logg    *logger.Logger
	age     time.Duration

	now func() time.Time
}

func NewStaleClaimWatcher(
	repo orders.Repository,
	matchingMetrics *metrics.MatchingMetrics,
	logg *logger.Logger,
	age time.Duration,
) (*StaleClaimWatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if age <= 0 {
		return nil, fmt.Errorf("stale claim age must be positive")
	}
	return &StaleClaimWatcher{
		repo:    repo,
		metrics: matchingMetrics,
		logg:    logg,
		age:     age,
		now:     time.Now,
	}, nil
}

// Run executes one sweep.
func (w *StaleClaimWatcher) Run(ctx context.Context) error {
	cutoff := w.now().Add(-w.age)
	count, err := w.repo.CountStalePending(ctx, cutoff)
	if err != nil {
		w.logg.Error(ctx, "stale claim sweep failed", err)
		return err
	}

	w.metrics.SetStalePending(int(count))

	logCtx := w.logg.WithFields(ctx, map[string]any{
		"stale_count": count,
		"cutoff":      cutoff,
	})
	if count > 0 {
		w.logg.Warn(logCtx, "orders stuck in pending_acceptance")
	} else {
		w.logg.Info(logCtx, "stale claim sweep clean")
	}
	return nil
}

// Scheduler owns the background cron loop.
type Scheduler struct {
	cron *cron.Cron
	logg *logger.Logger
}

// NewScheduler registers the stale-claim sweep on the configured cron
// expression and returns the scheduler unstarted.
func NewScheduler(cfg config.JobsConfig, watcher *StaleClaimWatcher, logg *logger.Logger) (*Scheduler, error) {
	if watcher == nil {
		return nil, fmt.Errorf("watcher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.StaleClaimSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = watcher.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("registering stale claim sweep: %w", err)
	}

	return &Scheduler{cron: c, logg: logg}, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logg.Info(ctx, "job scheduler started")
}

// Stop halts scheduling and waits for any running sweep to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logg.Info(ctx, "job scheduler stopped")
}
