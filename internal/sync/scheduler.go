package sync

import (
	"context"
	"time"

	"github.com/codebyjaini/beezify/internal/pkg/logger"
)

// Scheduler triggers full sync runs on a fixed interval. Production deploys
// can instead POST /api/sync from an external scheduler; both paths share
// the orchestrator and nothing prevents them from overlapping.
type Scheduler struct {
	orchestrator *Orchestrator
	interval     time.Duration
	runOnStart   bool
}

// NewScheduler creates a scheduler around an orchestrator.
func NewScheduler(o *Orchestrator, interval time.Duration, runOnStart bool) *Scheduler {
	return &Scheduler{orchestrator: o, interval: interval, runOnStart: runOnStart}
}

// Start begins the scheduling loop and blocks until the context is done.
// Intended to run in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("sync scheduler started", "interval", s.interval.String(), "run_on_start", s.runOnStart)

	if s.runOnStart {
		s.orchestrator.Run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.orchestrator.Run(ctx)
		}
	}
}
