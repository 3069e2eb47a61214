package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/SpaciousAbhi/Web-ig-auto/config"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/logger"
	"github.com/SpaciousAbhi/Web-ig-auto/internal/usecase"
)

// Scheduler manages cron jobs for the application
type Scheduler struct {
	cron   *cron.Cron
	config *config.Config
	engine *usecase.Engine
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new cron scheduler
func NewScheduler(cfg *config.Config, engine *usecase.Engine) *Scheduler {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	// Create cron with seconds support
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:   c,
		config: cfg,
		engine: engine,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the cron scheduler
func (s *Scheduler) Start() error {
	schedule := normalizeSchedule(s.config.CronSchedule)
	jobID, err := s.cron.AddFunc(schedule, s.syncJob)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	logger.Info().Printf("Scheduled synchronization job with ID: %d, schedule: %s", jobID, schedule)

	s.cron.Start()
	logger.Info().Println("Cron scheduler started")

	return nil
}

// Stop stops the cron scheduler gracefully
func (s *Scheduler) Stop() {
	logger.Info().Println("Stopping cron scheduler...")
	s.cancel()
	s.cron.Stop()
	logger.Info().Println("Cron scheduler stopped")
}

// syncJob runs one sweep over every enabled task. Publishing is
// deliberately slow because of pacing delays, so the timeout is wide.
func (s *Scheduler) syncJob() {
	logger.Info().Println("Starting synchronization sweep...")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Hour)
	defer cancel()

	results := s.engine.RunAllEnabled(ctx)

	var uploaded, failed int
	for _, result := range results {
		if result == nil {
			continue
		}
		uploaded += result.Uploaded
		if !result.Success {
			failed++
		}
	}

	duration := time.Since(startTime)
	logger.Info().Printf("Synchronization sweep completed in %v: %d task(s), %d uploaded, %d failed", duration, len(results), uploaded, failed)
}

// normalizeSchedule ensures cron expressions are compatible with cron.WithSeconds
func normalizeSchedule(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) == 5 {
		return "0 " + expr
	}
	return expr
}
