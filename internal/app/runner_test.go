package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/config"
	"github.com/baxromumarov/fresher-hunter/internal/content"
	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/httpx"
	"github.com/baxromumarov/fresher-hunter/internal/report"
	"github.com/baxromumarov/fresher-hunter/internal/scraper"
)

type pageFetcher struct {
	pages   map[string]string
	release chan struct{}
}

func (f *pageFetcher) Fetch(ctx context.Context, url string, _ time.Duration) httpx.FetchResult {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return httpx.FetchResult{URL: url, Status: httpx.StatusNetworkError, Err: ctx.Err()}
		}
	}
	body, ok := f.pages[url]
	if !ok {
		return httpx.FetchResult{URL: url, Status: httpx.StatusHTTPError, Code: http.StatusNotFound}
	}
	return httpx.FetchResult{URL: url, Status: httpx.StatusOK, Code: http.StatusOK, ContentType: "text/html", Body: []byte(body)}
}

type staticSource []core.DomainRecord

func (s staticSource) ListDomains(context.Context) ([]core.DomainRecord, error) {
	return s, nil
}

type failingSource struct{}

func (failingSource) ListDomains(context.Context) ([]core.DomainRecord, error) {
	return nil, errors.New("sheet unavailable")
}

type recordingSink struct {
	got []report.Report
	err error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, r report.Report) error {
	s.got = append(s.got, r)
	return s.err
}

const careersPage = `<html><body><ul>
<li><a href="/jobs/1">Software Engineer Intern</a> Python</li>
<li><a href="/jobs/2">Junior Backend Developer</a> Go, SQL</li>
<li><a href="/jobs/3">Senior Platform Engineer</a> Kubernetes</li>
</ul></body></html>`

func testDeps(f core.Fetcher, src core.DomainSource, sinks ...report.Sink) Deps {
	classifier := content.NewClassifier(content.DefaultRules(), 4)
	return Deps{
		Source:     src,
		Fetcher:    f,
		Classifier: classifier,
		Extractor:  scraper.NewExtractor(classifier.Matcher()),
		Filter:     core.NewAlignmentFilter(core.DefaultProfile()),
		Sinks:      sinks,
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.PerFetchTimeout = time.Second
	cfg.MaxRunDuration = time.Minute
	cfg.Concurrency = 2
	return cfg
}

func TestRunOnceDeliversReport(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://acme.example/": careersPage}}
	sink := &recordingSink{}
	r := NewRunner(testConfig(), testDeps(f, staticSource{{Domain: "acme.example"}}, sink))

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(rep.Accepted) != 2 {
		t.Fatalf("accepted = %+v, want 2 entry-level jobs", rep.Accepted)
	}
	if rep.StopReason != core.StopDomainsExhausted {
		t.Errorf("stop reason = %s", rep.StopReason)
	}
	if len(sink.got) != 1 || sink.got[0].RunID != rep.RunID {
		t.Fatalf("sink got %d reports", len(sink.got))
	}

	latest, err := r.Latest(context.Background())
	if err != nil || latest.RunID != rep.RunID {
		t.Fatalf("Latest = %v, %v", latest.RunID, err)
	}
	stats, ok := r.Stats()
	if !ok || stats.JobsAccepted != 2 {
		t.Fatalf("stats = %+v, %v", stats, ok)
	}
}

func TestRunOnceDryRunSkipsSinks(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true
	f := &pageFetcher{pages: map[string]string{"https://acme.example/": careersPage}}
	sink := &recordingSink{}
	r := NewRunner(cfg, testDeps(f, staticSource{{Domain: "acme.example"}}, sink))

	rep, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !rep.DryRun || len(rep.Accepted) == 0 {
		t.Fatalf("report = %+v", rep)
	}
	if len(sink.got) != 0 {
		t.Fatalf("dry run delivered %d reports", len(sink.got))
	}
}

func TestRunOnceSinkFailureKeepsReport(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{}}
	sink := &recordingSink{err: errors.New("disk full")}
	r := NewRunner(testConfig(), testDeps(f, staticSource{{Domain: "acme.example"}}, sink))

	rep, err := r.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected sink error")
	}
	if _, lerr := r.Latest(context.Background()); lerr != nil {
		t.Fatalf("latest report lost after sink failure: %v", lerr)
	}
	if rep.DomainsAttempted != 1 || rep.DomainsValid != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRunOnceSourceError(t *testing.T) {
	r := NewRunner(testConfig(), testDeps(&pageFetcher{}, failingSource{}))
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
	if r.Running() {
		t.Fatal("runner still marked running")
	}
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://acme.example/": careersPage}, release: make(chan struct{})}
	r := NewRunner(testConfig(), testDeps(f, staticSource{{Domain: "acme.example"}}))

	done := make(chan error, 1)
	go func() {
		_, err := r.RunOnce(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !r.Running() {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := r.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second RunOnce = %v, want ErrRunInProgress", err)
	}

	close(f.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestLatestWithoutHistory(t *testing.T) {
	r := NewRunner(testConfig(), testDeps(&pageFetcher{}, staticSource{}))
	if _, err := r.Latest(context.Background()); !errors.Is(err, report.ErrNoReport) {
		t.Fatalf("Latest = %v, want ErrNoReport", err)
	}
	if _, ok := r.Stats(); ok {
		t.Fatal("stats available before any run")
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	domains := filepath.Join(dir, "domains.txt")
	if err := os.WriteFile(domains, []byte("acme.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	if _, _, err := Build(cfg, nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("Build without source = %v, want ErrNoSource", err)
	}

	bad := cfg
	bad.TargetCount = 0
	if _, _, err := Build(bad, nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("Build with bad config = %v, want ErrInvalid", err)
	}

	cfg.DomainsFile = domains
	cfg.ReportPath = filepath.Join(dir, "report.json")
	r, closer, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer closer.Close()

	if _, err := r.Latest(context.Background()); !errors.Is(err, report.ErrNoReport) {
		t.Fatalf("Latest before any run = %v, want ErrNoReport", err)
	}
	recs, err := r.Domains(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("Domains = %+v, %v", recs, err)
	}
	if r.Pruner() != nil {
		t.Fatal("file history should not prune")
	}
}

func TestTriggerRunsInBackground(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://acme.example/": careersPage}, release: make(chan struct{})}
	r := NewRunner(testConfig(), testDeps(f, staticSource{{Domain: "acme.example"}}))

	if err := r.Trigger(context.Background()); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := r.Trigger(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second Trigger = %v, want ErrRunInProgress", err)
	}
	if _, ok := r.Stats(); !ok {
		t.Fatal("no live stats while running")
	}

	close(f.release)
	deadline := time.Now().Add(3 * time.Second)
	for r.Running() {
		if time.Now().After(deadline) {
			t.Fatal("triggered run did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := r.Latest(context.Background()); err != nil {
		t.Fatalf("Latest after trigger: %v", err)
	}
}
