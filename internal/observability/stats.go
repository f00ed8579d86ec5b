package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

type StatsSnapshot struct {
	PagesFetched      uint64            `json:"pages_fetched"`
	CandidatesSeen    uint64            `json:"candidates_seen"`
	JobsAccepted      uint64            `json:"jobs_accepted"`
	ErrorsTotal       uint64            `json:"errors_total"`
	DomainSecondsAvg  float64           `json:"domain_seconds_avg"`
	PageDecisions     map[string]uint64 `json:"page_decisions,omitempty"`
	RejectedByGate    map[string]uint64 `json:"rejected_by_gate,omitempty"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

// Stats holds the counters of one crawl run. A nil *Stats is valid and records nothing.
type Stats struct {
	pagesFetched   uint64
	candidatesSeen uint64
	jobsAccepted   uint64
	errorsTotal    uint64

	domainCount uint64
	domainNanos uint64

	mu                sync.Mutex
	pageDecisions     map[string]uint64
	rejectedByGate    map[string]uint64
	errorsByType      map[string]uint64
	errorsByComponent map[string]uint64
}

func NewStats() *Stats {
	return &Stats{
		pageDecisions:     map[string]uint64{},
		rejectedByGate:    map[string]uint64{},
		errorsByType:      map[string]uint64{},
		errorsByComponent: map[string]uint64{},
	}
}

func (s *Stats) IncPagesFetched() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.pagesFetched, 1)
}

func (s *Stats) AddCandidates(n int) {
	if s == nil || n <= 0 {
		return
	}
	atomic.AddUint64(&s.candidatesSeen, uint64(n))
}

func (s *Stats) IncAccepted() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.jobsAccepted, 1)
}

// IncRejected counts a candidate dropped by the named filter gate (level, exclusion, alignment).
func (s *Stats) IncRejected(gate string) {
	if s == nil {
		return
	}
	s.inc(s.rejectedByGate, gate)
}

func (s *Stats) IncPageDecision(decision string) {
	if s == nil {
		return
	}
	s.inc(s.pageDecisions, decision)
}

func (s *Stats) ObserveDomainDuration(d time.Duration) {
	if s == nil || d <= 0 {
		return
	}
	atomic.AddUint64(&s.domainCount, 1)
	atomic.AddUint64(&s.domainNanos, uint64(d.Nanoseconds()))
}

func (s *Stats) IncError(errType, component string) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.errorsTotal, 1)
	s.mu.Lock()
	s.errorsByType[orUnknown(errType)]++
	s.errorsByComponent[orUnknown(component)]++
	s.mu.Unlock()
}

func (s *Stats) inc(m map[string]uint64, key string) {
	s.mu.Lock()
	m[orUnknown(key)]++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.Lock()
	decisions := copyMap(s.pageDecisions)
	rejected := copyMap(s.rejectedByGate)
	byType := copyMap(s.errorsByType)
	byComponent := copyMap(s.errorsByComponent)
	s.mu.Unlock()

	count := atomic.LoadUint64(&s.domainCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&s.domainNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		PagesFetched:      atomic.LoadUint64(&s.pagesFetched),
		CandidatesSeen:    atomic.LoadUint64(&s.candidatesSeen),
		JobsAccepted:      atomic.LoadUint64(&s.jobsAccepted),
		ErrorsTotal:       atomic.LoadUint64(&s.errorsTotal),
		DomainSecondsAvg:  avg,
		PageDecisions:     decisions,
		RejectedByGate:    rejected,
		ErrorsByType:      byType,
		ErrorsByComponent: byComponent,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
