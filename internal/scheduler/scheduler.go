package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Refresher republishes the local datasets to the record store.
type Refresher interface {
	PublishNZ(ctx context.Context) error
	BuildMerged(ctx context.Context) error
}

// Scheduler periodically republishes the datasets so the record store
// tables stay populated between user requests.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. An interval of zero disables it.
func New(interval time.Duration, refresher Refresher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		timeout:   60 * time.Second,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: refresh interval not set; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("scheduler: refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Refresh publishes the New Zealand dataset and rebuilds the merged table.
func (s *Scheduler) Refresh(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("scheduler: running dataset refresh")

	if err := s.refresher.PublishNZ(ctx); err != nil {
		return fmt.Errorf("publish NZ data: %w", err)
	}
	if err := s.refresher.BuildMerged(ctx); err != nil {
		return fmt.Errorf("build merged data: %w", err)
	}

	s.logger.Info("scheduler: completed dataset refresh", zap.Duration("took", time.Since(start)))
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
