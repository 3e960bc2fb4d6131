package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs drift sweeps on a cron schedule (e.g., nightly at 3 AM).
type Scheduler struct {
	auditor *Auditor
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new drift sweep scheduler.
func NewScheduler(auditor *Auditor) *Scheduler {
	return &Scheduler{
		auditor: auditor,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled sweeps based on the configured cron expression.
// If the schedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.auditor.config.Schedule
	if schedule == "" {
		s.logger.Info("drift sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule drift sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("drift sweep scheduler started",
		"schedule", schedule,
		"lookback", s.auditor.config.Lookback,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one sweep cycle.
func (s *Scheduler) runSweep(ctx context.Context) {
	s.logger.Info("starting scheduled drift sweep")

	summary, err := s.auditor.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled drift sweep failed",
			"error", err,
		)
		return
	}

	if summary.Drifted > 0 {
		s.logger.Warn("scheduled drift sweep found drifted traces",
			"drifted", summary.Drifted,
			"changed_decisions", summary.ChangedDecisions,
		)
	} else {
		s.logger.Debug("scheduled drift sweep found no drift")
	}
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("drift sweep scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when unscheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
