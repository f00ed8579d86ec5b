package core

import (
	"net/url"
	"strings"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

type StopReason string

const (
	StopTargetReached    StopReason = "targetReached"
	StopTimeoutReached   StopReason = "timeoutReached"
	StopDomainsExhausted StopReason = "domainsExhausted"
	StopCanceled         StopReason = "canceled"
)

type State struct {
	Stopped bool
	Reason  StopReason
}

type RunState struct {
	TargetCount         int            `json:"target_count"`
	Deadline            time.Time      `json:"deadline"`
	Accepted            []QualifiedJob `json:"accepted"`
	DomainsAttempted    int            `json:"domains_attempted"`
	DomainsValid        int            `json:"domains_valid"`
	TotalCandidatesSeen int            `json:"total_candidates_seen"`
	DuplicatesSkipped   int            `json:"duplicates_skipped"`
	StopReason          StopReason     `json:"stop_reason,omitempty"`
}

// Accumulator owns the RunState of one crawl and decides when it stops.
// It is not synchronised: exactly one goroutine may call it.
type Accumulator struct {
	run       RunState
	state     State
	remaining int
	seen      map[string]struct{}
	now       func() time.Time
}

// NewAccumulator starts RUNNING unless the deadline has already passed or there is
// nothing to crawl.
func NewAccumulator(targetCount int, deadline time.Time, domains int, now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	a := &Accumulator{
		run: RunState{
			TargetCount: targetCount,
			Deadline:    deadline,
			Accepted:    []QualifiedJob{},
		},
		remaining: domains,
		seen:      make(map[string]struct{}),
		now:       now,
	}
	switch {
	case !a.now().Before(deadline):
		a.stop(StopTimeoutReached)
	case domains <= 0:
		a.stop(StopDomainsExhausted)
	}
	return a
}

// RecordDomainOutcome merges one domain's jobs and re-evaluates the stop conditions in
// order: target, deadline, exhaustion. It is a no-op once stopped.
func (a *Accumulator) RecordDomainOutcome(out DomainOutcome) State {
	if a.state.Stopped {
		return a.state
	}

	for _, job := range out.Jobs {
		if len(a.run.Accepted) >= a.run.TargetCount {
			break
		}
		key, titleKey := a.dedupKeys(job)
		if _, dup := a.seen[key]; dup {
			a.run.DuplicatesSkipped++
			continue
		}
		a.seen[key] = struct{}{}
		a.seen[titleKey] = struct{}{}
		a.run.Accepted = append(a.run.Accepted, job)
	}

	a.run.DomainsAttempted++
	if out.Valid {
		a.run.DomainsValid++
	}
	a.run.TotalCandidatesSeen += out.CandidatesSeen
	a.remaining--

	switch {
	case len(a.run.Accepted) >= a.run.TargetCount:
		a.stop(StopTargetReached)
	case !a.now().Before(a.run.Deadline):
		a.stop(StopTimeoutReached)
	case a.remaining <= 0:
		a.stop(StopDomainsExhausted)
	}
	return a.state
}

func (a *Accumulator) CheckDeadline() State {
	if !a.state.Stopped && !a.now().Before(a.run.Deadline) {
		a.stop(StopTimeoutReached)
	}
	return a.state
}

// Cancel stops the run because the caller gave up on it.
func (a *Accumulator) Cancel() State {
	if !a.state.Stopped {
		a.stop(StopCanceled)
	}
	return a.state
}

func (a *Accumulator) State() State {
	return a.state
}

// Snapshot returns a copy of the run state; callers may keep it after the run.
func (a *Accumulator) Snapshot() RunState {
	out := a.run
	out.Accepted = append([]QualifiedJob(nil), a.run.Accepted...)
	if out.Accepted == nil {
		out.Accepted = []QualifiedJob{}
	}
	return out
}

func (a *Accumulator) stop(reason StopReason) {
	a.state = State{Stopped: true, Reason: reason}
	a.run.StopReason = reason
}

// dedupKeys returns the key a job is deduplicated under and its title+domain key.
// The normalized link is the key; a link whose key is already taken only because its
// fragment was stripped (page#job-2 after page#job-1) falls back to title+domain, as
// does a link that does not normalize at all.
func (a *Accumulator) dedupKeys(job QualifiedJob) (string, string) {
	titleKey := "title:" + strings.Join(strings.Fields(strings.ToLower(job.Title)), " ") +
		"@" + urlutil.NormalizeDomain(job.SourceDomain)
	lk, ok := urlutil.DedupKey(job.Link)
	if !ok {
		return titleKey, titleKey
	}
	linkKey := "link:" + lk
	if _, taken := a.seen[linkKey]; taken && hasFragment(job.Link) {
		return titleKey, titleKey
	}
	return linkKey, titleKey
}

func hasFragment(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Fragment != ""
}
