// Package scheduler triggers consolidation cycles on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/consolidate"
)

// Runner is the consolidation surface the scheduler drives.
type Runner interface {
	Run(ctx context.Context) (*consolidate.Result, error)
}

// Config holds configuration for the scheduler.
type Config struct {
	// Schedule is a standard five-field cron expression,
	// e.g. "0 3 * * *" for 03:00 daily.
	Schedule string

	// Runner executes one consolidation cycle per firing.
	Runner Runner

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Scheduler owns the cron loop. Overlap is handled by the engine's own
// single-flight guard; a firing that lands mid-cycle is logged and skipped.
type Scheduler struct {
	config Config
	logger *zap.Logger
	cron   *rcron.Cron
}

// New creates a scheduler. The schedule expression is validated eagerly so
// a bad configuration fails at startup rather than at first firing.
func New(c Config) (*Scheduler, error) {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Schedule == "" {
		return nil, errors.New("scheduler: empty schedule")
	}
	if _, err := rcron.ParseStandard(c.Schedule); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", c.Schedule, err)
	}

	return &Scheduler{
		config: c,
		logger: c.Logger,
		cron:   rcron.New(),
	}, nil
}

// Start registers the job and runs the cron loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.fire(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduler: register job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("consolidation scheduler started",
		zap.String("schedule", s.config.Schedule),
	)

	<-ctx.Done()

	// Wait for any in-flight firing before returning.
	<-s.cron.Stop().Done()
	s.logger.Info("consolidation scheduler stopped")

	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	result, err := s.config.Runner.Run(ctx)
	switch {
	case errors.Is(err, consolidate.ErrAlreadyRunning):
		s.logger.Warn("scheduled consolidation skipped, cycle already in flight")
	case err != nil:
		s.logger.Error("scheduled consolidation failed", zap.Error(err))
	case result.Empty:
		s.logger.Debug("scheduled consolidation found nothing to consolidate")
	default:
		s.logger.Info("scheduled consolidation complete",
			zap.String("long_term_id", result.LongTermID),
			zap.Int64("consolidated", result.Consolidated),
		)
	}
}
