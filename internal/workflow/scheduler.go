package workflow

import (
	"context"
	"errors"
	"time"

	"jobradar/internal/config"
	"jobradar/internal/logging"
)

// Scheduler re-runs the most recently submitted workflow on a fixed
// interval. It never runs before the first explicit submission, since a
// run needs profiles to work with.
type Scheduler struct {
	executor *Executor
	interval time.Duration
	logger   logging.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler over the executor.
func NewScheduler(cfg *config.Config, executor *Executor, logger logging.Logger) *Scheduler {
	return &Scheduler{
		executor: executor,
		interval: cfg.Workflow.RunInterval,
		logger:   logger.WithField("component", "scheduler"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduling loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
	s.logger.Info("Scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
}

// Stop halts the loop and waits for it to exit. An in-flight run is not
// interrupted; it finishes on its own context.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	profiles, sites := s.executor.LastSubmission()
	if len(profiles) == 0 {
		s.logger.Debug("No submission to re-run yet, skipping tick")
		return
	}

	report, err := s.executor.RunWorkflow(ctx, profiles, sites)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("Previous run still in progress, skipping tick")
		return
	}
	if err != nil {
		s.logger.Error("Scheduled run failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	s.logger.Info("Scheduled run finished", map[string]interface{}{
		"execution_id":      report.ExecutionID,
		"matches_persisted": report.MatchesPersisted,
	})
}
