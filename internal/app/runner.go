// Package app assembles the crawler and its collaborators from configuration and
// runs crawls either once or on a schedule.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/config"
	"github.com/baxromumarov/fresher-hunter/internal/content"
	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/httpx"
	"github.com/baxromumarov/fresher-hunter/internal/observability"
	"github.com/baxromumarov/fresher-hunter/internal/report"
	"github.com/baxromumarov/fresher-hunter/internal/scraper"
	"github.com/baxromumarov/fresher-hunter/internal/sheet"
	"github.com/baxromumarov/fresher-hunter/internal/source"
	"github.com/baxromumarov/fresher-hunter/internal/store"
)

var (
	ErrRunInProgress = errors.New("a crawl is already running")
	ErrNoSource      = errors.New("no domain source configured: set a database URL, sheet or domains file")
)

// deliverTimeout bounds sink delivery, which runs even after the crawl context ends.
const deliverTimeout = 30 * time.Second

// ReportReader is implemented by sinks that can hand back the last delivered report.
type ReportReader interface {
	LatestReport(ctx context.Context) (report.Report, error)
}

// Deps are the collaborators of a Runner. Build derives them from config; tests
// provide fakes.
type Deps struct {
	Source     core.DomainSource
	Fetcher    core.Fetcher
	Classifier core.PageClassifier
	Extractor  core.JobExtractor
	Filter     *core.AlignmentFilter
	Sinks      []report.Sink
	History    ReportReader
	Now        func() time.Time
}

// Runner executes one crawl at a time and remembers the most recent report.
type Runner struct {
	cfg      config.Config
	deps     Deps
	reporter *report.Reporter

	mu      sync.Mutex
	running bool
	current *observability.Stats
	latest  *report.Report
}

func NewRunner(cfg config.Config, deps Deps) *Runner {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		cfg:      cfg,
		deps:     deps,
		reporter: report.NewReporter(deps.Sinks...),
	}
}

// Build wires the production collaborators for cfg. The returned closer releases
// the database connection when one was opened.
func Build(cfg config.Config, logger *slog.Logger) (*Runner, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	profile := core.DefaultProfile()
	if cfg.ProfilePath != "" {
		p, err := core.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, nil, err
		}
		profile = p
	}

	classifier := content.NewClassifier(content.DefaultRules(), cfg.MaxSecondaryAttempts)
	deps := Deps{
		Fetcher: httpx.NewCollyFetcher(cfg.UserAgent,
			httpx.WithHostRate(cfg.HostRate, cfg.HostBurst),
			httpx.WithRobots(cfg.RespectRobots),
		),
		Classifier: loggedClassifier{classifier},
		Extractor:  scraper.NewExtractor(classifier.Matcher()),
		Filter:     core.NewAlignmentFilter(profile),
	}

	var closer io.Closer = nopCloser{}
	if cfg.DatabaseURL != "" {
		db, err := store.NewStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(context.Background(), ""); err != nil {
			db.Close()
			return nil, nil, err
		}
		closer = db
		deps.Source = db
		deps.History = db
		deps.Sinks = append(deps.Sinks, db)
	}

	if cfg.SheetPath != "" {
		if deps.Source == nil {
			deps.Source = sheet.NewSource(cfg.SheetPath)
		}
		deps.Sinks = append(deps.Sinks, sheet.NewWriter(cfg.SheetPath))
	}
	if deps.Source == nil && cfg.DomainsFile != "" {
		deps.Source = source.NewFileSource(cfg.DomainsFile)
	}
	if deps.Source == nil {
		closer.Close()
		return nil, nil, ErrNoSource
	}

	if cfg.ReportPath != "" {
		deps.Sinks = append(deps.Sinks, report.NewJSONSink(cfg.ReportPath))
		if deps.History == nil && cfg.ReportPath != "-" {
			deps.History = jsonHistory(cfg.ReportPath)
		}
	}
	deps.Sinks = append(deps.Sinks, report.NewLogNotifier(logger))

	return NewRunner(cfg, deps), closer, nil
}

// RunOnce performs a full crawl and delivers the report. The report is returned even
// when a sink fails; the error then carries the joined sink failures.
func (r *Runner) RunOnce(ctx context.Context) (report.Report, error) {
	stats, err := r.claim()
	if err != nil {
		return report.Report{}, err
	}
	return r.run(ctx, stats)
}

// Trigger starts a crawl in the background and returns once it is claimed, so a
// caller learns synchronously whether another run is active.
func (r *Runner) Trigger(ctx context.Context) error {
	stats, err := r.claim()
	if err != nil {
		return err
	}
	go func() {
		rep, err := r.run(ctx, stats)
		if err != nil {
			slog.Error("triggered crawl failed", "runID", rep.RunID, "error", err)
			return
		}
		slog.Info("triggered crawl finished", "summary", rep.Summary())
	}()
	return nil
}

func (r *Runner) claim() (*observability.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil, ErrRunInProgress
	}
	r.running = true
	r.current = observability.NewStats()
	return r.current, nil
}

func (r *Runner) run(ctx context.Context, stats *observability.Stats) (report.Report, error) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.current = nil
		r.mu.Unlock()
	}()

	records, err := r.deps.Source.ListDomains(ctx)
	if err != nil {
		return report.Report{}, fmt.Errorf("list domains: %w", err)
	}
	slog.Info("crawl starting", "domains", len(records), "target", r.cfg.TargetCount, "dryRun", r.cfg.DryRun)

	crawler := core.NewCrawler(r.deps.Fetcher, r.deps.Classifier, r.deps.Extractor, r.deps.Filter, core.Options{
		TargetCount:     r.cfg.TargetCount,
		Concurrency:     r.cfg.Concurrency,
		PerFetchTimeout: r.cfg.PerFetchTimeout,
		MaxRunDuration:  r.cfg.MaxRunDuration,
		SkipInvalid:     r.cfg.SkipInvalid,
		Stats:           stats,
		Now:             r.deps.Now,
	})
	res, err := crawler.Run(ctx, records)
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Build(res, r.cfg.DryRun, stats)

	r.mu.Lock()
	r.latest = &rep
	r.mu.Unlock()

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()
	return rep, r.reporter.Deliver(dctx, rep)
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Latest returns the last report of this process, falling back to the persisted
// history. It returns report.ErrNoReport when neither has one.
func (r *Runner) Latest(ctx context.Context) (report.Report, error) {
	r.mu.Lock()
	latest := r.latest
	r.mu.Unlock()
	if latest != nil {
		return *latest, nil
	}
	if r.deps.History == nil {
		return report.Report{}, report.ErrNoReport
	}
	return r.deps.History.LatestReport(ctx)
}

// Stats returns the counters of the crawl in progress, or of the last finished one.
func (r *Runner) Stats() (observability.StatsSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return r.current.Snapshot(), true
	}
	if r.latest != nil {
		return r.latest.Stats, true
	}
	return observability.StatsSnapshot{}, false
}

func (r *Runner) Domains(ctx context.Context) ([]core.DomainRecord, error) {
	return r.deps.Source.ListDomains(ctx)
}

// Pruner returns the history store when it supports retention.
func (r *Runner) Pruner() Pruner {
	if p, ok := r.deps.History.(Pruner); ok {
		return p
	}
	return nil
}

type loggedClassifier struct {
	*content.Classifier
}

func (c loggedClassifier) Classify(domain string, res httpx.FetchResult) content.Verdict {
	return c.ClassifyWithLogging(domain, res)
}

type jsonHistory string

func (p jsonHistory) LatestReport(context.Context) (report.Report, error) {
	r, err := report.ReadJSON(string(p))
	if errors.Is(err, fs.ErrNotExist) {
		return report.Report{}, report.ErrNoReport
	}
	return r, err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
