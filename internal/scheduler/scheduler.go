package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes stored reports older than maxAge.
type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler manages background maintenance tasks.
type Scheduler struct {
	Cron   *cron.Cron
	pruner Pruner
	logger *slog.Logger
	ctx    context.Context
}

func NewScheduler(ctx context.Context, pruner Pruner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		pruner: pruner,
		logger: logger,
		ctx:    ctx,
	}
}

// RegisterRetention schedules report pruning. A zero maxAge registers nothing.
func (s *Scheduler) RegisterRetention(spec string, maxAge time.Duration) error {
	if maxAge <= 0 {
		s.logger.Info("report retention disabled")
		return nil
	}
	if _, err := s.Cron.AddFunc(spec, func() { s.RunRetention(maxAge) }); err != nil {
		return fmt.Errorf("register retention task: %w", err)
	}
	s.logger.Info("report retention scheduled", "spec", spec, "max_age", maxAge)
	return nil
}

// RunRetention prunes once.
func (s *Scheduler) RunRetention(maxAge time.Duration) {
	removed, err := s.pruner.Prune(s.ctx, maxAge)
	if err != nil {
		s.logger.Error("report retention failed", "removed", removed, "error", err)
		return
	}
	s.logger.Info("report retention finished", "removed", removed)
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
