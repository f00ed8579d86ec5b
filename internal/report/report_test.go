package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/observability"
)

type recordingSink struct {
	name  string
	err   error
	calls int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(context.Context, Report) error {
	s.calls++
	return s.err
}

func sampleResult() core.Result {
	start := time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)
	return core.Result{
		RunState: core.RunState{
			TargetCount:         10,
			Accepted:            []core.QualifiedJob{{Title: "Software Engineer Intern", Link: "https://a.example/jobs/1", SourceDomain: "a.example", Score: 75}},
			DomainsAttempted:    2,
			DomainsValid:        1,
			TotalCandidatesSeen: 5,
			DuplicatesSkipped:   1,
			StopReason:          core.StopDomainsExhausted,
		},
		Domains:    []core.DomainRecord{{Domain: "a.example", KnownValid: core.ValidityValid}},
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
}

func TestBuild(t *testing.T) {
	stats := observability.NewStats()
	stats.IncPagesFetched()
	r := Build(sampleResult(), false, stats)
	if r.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("run id not generated")
	}
	if r.StopReason != core.StopDomainsExhausted || len(r.Accepted) != 1 || r.Stats.PagesFetched != 1 {
		t.Fatalf("report = %+v", r)
	}
	if !strings.Contains(r.Summary(), "domainsExhausted, 1 accepted, 1/2 domains valid") {
		t.Fatalf("summary = %q", r.Summary())
	}
	if empty := Build(core.Result{}, true, nil); empty.Accepted == nil {
		t.Fatal("accepted must encode as [] not null")
	}
}

func TestReporterDryRunSkipsSinks(t *testing.T) {
	sink := &recordingSink{name: "sheet"}
	r := Build(sampleResult(), true, nil)
	if err := NewReporter(sink).Deliver(context.Background(), r); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if sink.calls != 0 {
		t.Fatalf("sink called %d times on a dry run", sink.calls)
	}
}

func TestReporterJoinsSinkErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("smtp down")
	a := &recordingSink{name: "a", err: errA}
	ok := &recordingSink{name: "ok"}
	b := &recordingSink{name: "b", err: errB}

	err := NewReporter(a, nil, ok, b).Deliver(context.Background(), Build(sampleResult(), false, nil))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("err = %v, want both sink errors", err)
	}
	if ok.calls != 1 {
		t.Fatal("a failing sink must not stop the others")
	}
}

func TestJSONSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	want := Build(sampleResult(), false, nil)
	if err := NewJSONSink(path).Deliver(context.Background(), want); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.RunID != want.RunID || got.StopReason != want.StopReason || len(got.Accepted) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	var buf bytes.Buffer
	if err := NewJSONWriterSink(&buf).Deliver(context.Background(), want); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"stop_reason": "domainsExhausted"`) {
		t.Fatalf("unexpected json: %s", buf.String())
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := n.Deliver(context.Background(), Build(sampleResult(), false, nil)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "https://a.example/jobs/1") {
		t.Fatalf("log output missing job: %s", buf.String())
	}
}
