// Package scheduler triggers scrape runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teamignite/pricewatch/internal/logger"
)

// stopTimeout bounds how long Stop waits for an in-flight run.
const stopTimeout = 30 * time.Second

// RunFunc executes one scrape run. Overlap protection lives in the run lock,
// not here: a tick that fires while a run is active comes back as a locked
// outcome and is skipped.
type RunFunc func(ctx context.Context)

// Service runs RunFunc on a cron schedule until stopped.
type Service struct {
	spec string
	run  RunFunc
	cron *cron.Cron
	log  logger.Interface
}

// NewService creates a scheduler for the given cron spec. The spec uses the
// standard 5-field format (minute hour day month weekday) or descriptors
// like "@every 6h".
func NewService(spec string, run RunFunc, log logger.Interface) *Service {
	return &Service{
		spec: spec,
		run:  run,
		cron: cron.New(),
		log:  log,
	}
}

// Start validates the schedule and begins triggering runs. The given context
// bounds every triggered run.
func (s *Service) Start(ctx context.Context) error {
	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}

	if _, err := s.cron.AddFunc(s.spec, func() {
		s.log.Info("schedule triggered", "spec", s.spec)
		s.run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule run: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		"spec", s.spec,
		"next_run", schedule.Next(time.Now()).Format(time.RFC3339),
	)
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish, up to
// stopTimeout.
func (s *Service) Stop() error {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("scheduler did not stop within %s", stopTimeout)
	}
}
