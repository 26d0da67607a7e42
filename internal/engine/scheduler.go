package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the engine periodically. A run that is still going when the
// next one is due makes the next one skip.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	cron     *cron.Cron

	mu        sync.Mutex
	isRunning bool
	executing bool
	ctx       context.Context
}

// NewScheduler creates a scheduler running e every interval.
func NewScheduler(e *Engine, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   e,
		interval: interval,
		cron:     cron.New(),
	}
}

// Spec returns the cron expression of the job.
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("@every %s", s.interval)
}

// Start schedules the job. It stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid interval %s", s.interval)
	}

	if _, err := s.cron.AddFunc(s.Spec(), func() { s.RunNow() }); err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	s.ctx = ctx
	s.cron.Start()
	s.isRunning = true

	s.engine.log.Info().Str("schedule", s.Spec()).Msg("scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running job and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.engine.log.Info().Msg("scheduler stopped")
}

// RunNow executes the engine unless a run is already in progress. It
// reports whether it ran.
func (s *Scheduler) RunNow() bool {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		s.engine.log.Warn().Msg("previous run still in progress, skipping")
		return false
	}
	s.executing = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.engine.Execute(ctx); err != nil {
		s.engine.log.Error().Err(err).Msg("scheduled run failed")
	}
	return true
}
