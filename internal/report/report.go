package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/observability"
	"github.com/google/uuid"
)

// Report is the frozen outcome of one crawl, handed to every sink.
type Report struct {
	RunID               uuid.UUID                   `json:"run_id"`
	StartedAt           time.Time                   `json:"started_at"`
	FinishedAt          time.Time                   `json:"finished_at"`
	DomainsAttempted    int                         `json:"domains_attempted"`
	DomainsValid        int                         `json:"domains_valid"`
	TotalCandidatesSeen int                         `json:"total_candidates_seen"`
	DuplicatesSkipped   int                         `json:"duplicates_skipped"`
	Accepted            []core.QualifiedJob         `json:"accepted"`
	StopReason          core.StopReason             `json:"stop_reason"`
	Domains             []core.DomainRecord         `json:"domains"`
	DryRun              bool                        `json:"dry_run"`
	Stats               observability.StatsSnapshot `json:"stats"`
}

func Build(res core.Result, dryRun bool, stats *observability.Stats) Report {
	accepted := res.Accepted
	if accepted == nil {
		accepted = []core.QualifiedJob{}
	}
	return Report{
		RunID:               uuid.New(),
		StartedAt:           res.StartedAt,
		FinishedAt:          res.FinishedAt,
		DomainsAttempted:    res.DomainsAttempted,
		DomainsValid:        res.DomainsValid,
		TotalCandidatesSeen: res.TotalCandidatesSeen,
		DuplicatesSkipped:   res.DuplicatesSkipped,
		Accepted:            accepted,
		StopReason:          res.StopReason,
		Domains:             res.Domains,
		DryRun:              dryRun,
		Stats:               stats.Snapshot(),
	}
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is the one-line form printed by the CLI and logged by LogNotifier.
func (r Report) Summary() string {
	return fmt.Sprintf("run %s: %s, %d accepted, %d/%d domains valid, %d candidates, %d duplicates in %s",
		r.RunID, r.StopReason, len(r.Accepted), r.DomainsValid, r.DomainsAttempted,
		r.TotalCandidatesSeen, r.DuplicatesSkipped, r.Duration().Round(time.Second))
}

// Sink is a downstream writer or notifier. Sinks have side effects and are skipped
// on dry runs.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r Report) error
}

type Reporter struct {
	sinks []Sink
}

func NewReporter(sinks ...Sink) *Reporter {
	var out []Sink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Reporter{sinks: out}
}

// Deliver hands r to every sink unless r.DryRun. A failing sink does not stop the
// others; all failures are joined into the returned error.
func (rp *Reporter) Deliver(ctx context.Context, r Report) error {
	if r.DryRun {
		slog.Info("dry run, skipping sinks", "runID", r.RunID, "sinks", len(rp.sinks))
		return nil
	}
	var errs []error
	for _, s := range rp.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			slog.Error("report sink failed", "sink", s.Name(), "runID", r.RunID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.Debug("report delivered", "sink", s.Name(), "runID", r.RunID)
	}
	return errors.Join(errs...)
}

// ErrNoReport is returned by readers when no run has completed yet.
var ErrNoReport = errors.New("no report available")
