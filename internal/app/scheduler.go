package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Pruner deletes stored runs older than a retention window.
type Pruner interface {
	DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler runs a crawl every interval and, when a pruner is set, applies the
// retention policy once a day.
type Scheduler struct {
	runner    *Runner
	interval  time.Duration
	pruner    Pruner
	retention time.Duration
}

func NewScheduler(runner *Runner, interval time.Duration, pruner Pruner, retention time.Duration) *Scheduler {
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		pruner:    pruner,
		retention: retention,
	}
}

// Start launches the loops; they stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runCrawls(ctx)
	if s.pruner != nil && s.retention > 0 {
		go s.runRetentionPolicy(ctx)
	}
}

func (s *Scheduler) runCrawls(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.crawl(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.crawl(ctx)
		}
	}
}

func (s *Scheduler) crawl(ctx context.Context) {
	rep, err := s.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Info("scheduled crawl skipped, previous run still active")
	case err != nil && rep.RunID == uuid.Nil:
		slog.Error("scheduled crawl failed", "error", err)
	case err != nil:
		slog.Warn("scheduled crawl finished with sink errors", "runID", rep.RunID, "error", err)
	default:
		slog.Info("scheduled crawl finished", "summary", rep.Summary())
	}
}

func (s *Scheduler) runRetentionPolicy(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	s.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	count, err := s.pruner.DeleteOldRuns(ctx, s.retention)
	if err != nil {
		slog.Error("retention policy: failed to delete old runs", "error", err)
		return
	}
	slog.Info("retention policy: deleted old runs", "count", count)
}
