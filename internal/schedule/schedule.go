// Package schedule runs the daily evaluation jobs in watch mode.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/pws-alert-service/internal/config"
)

// Evaluator is the subset of the runner the scheduler drives.
type Evaluator interface {
	RunAll(ctx context.Context, dryRun bool) error
	RunShoulderFreeze(ctx context.Context, dryRun bool) error
}

// Scheduler runs the full rule pass once a day at the configured check time
// and the shoulder-freeze pass at the afternoon check time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	evaluator Evaluator
	cfg       *config.Config
	logger    *slog.Logger
}

// New creates a Scheduler using the local timezone, so CHECK_TIME means wall
// clock time where the station lives.
func New(evaluator Evaluator, cfg *config.Config, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		evaluator: evaluator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers both daily jobs and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Day().At(s.cfg.CheckTime).Do(func() {
		s.runJob("daily_checks", s.evaluator.RunAll)
	})
	if err != nil {
		return err
	}

	_, err = s.scheduler.Every(1).Day().At(s.cfg.ShoulderCheckTime).Do(func() {
		s.runJob("shoulder_freeze_check", s.evaluator.RunShoulderFreeze)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		"check_time", s.cfg.CheckTime, "shoulder_check_time", s.cfg.ShoulderCheckTime)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) runJob(name string, run func(context.Context, bool) error) {
	s.logger.Info("scheduled job starting", "job", name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, false); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return
	}
	s.logger.Info("scheduled job completed", "job", name)
}
