package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/observability"
	"github.com/baxromumarov/fresher-hunter/internal/scraper"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

var ErrNoFilter = errors.New("crawler: alignment filter is required")

type Options struct {
	TargetCount     int
	Concurrency     int
	PerFetchTimeout time.Duration
	MaxRunDuration  time.Duration
	// SkipInvalid leaves out domains a previous run marked invalid.
	SkipInvalid bool
	Stats       *observability.Stats
	Now         func() time.Time
}

type Result struct {
	RunState
	Domains    []DomainRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

// Crawler runs the per-domain pipeline (fetch, classify, extract, filter) on a bounded
// worker pool and feeds every outcome to a single Accumulator.
type Crawler struct {
	fetcher    Fetcher
	classifier PageClassifier
	extractor  JobExtractor
	filter     *AlignmentFilter
	opts       Options
}

func NewCrawler(fetcher Fetcher, classifier PageClassifier, extractor JobExtractor, filter *AlignmentFilter, opts Options) *Crawler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Crawler{
		fetcher:    fetcher,
		classifier: classifier,
		extractor:  extractor,
		filter:     filter,
		opts:       opts,
	}
}

func (c *Crawler) Stats() *observability.Stats {
	return c.opts.Stats
}

// Run crawls records in order until the target is met, MaxRunDuration elapses, the
// list runs out or ctx is cancelled.
func (c *Crawler) Run(ctx context.Context, records []DomainRecord) (Result, error) {
	return c.RunUntil(ctx, records, c.opts.Now().Add(c.opts.MaxRunDuration))
}

func (c *Crawler) RunUntil(ctx context.Context, records []DomainRecord, deadline time.Time) (Result, error) {
	if c.filter == nil {
		return Result{}, ErrNoFilter
	}
	started := c.opts.Now()
	domains := append([]DomainRecord(nil), records...)

	queue := make([]int, 0, len(domains))
	for i, rec := range domains {
		if urlutil.NormalizeDomain(rec.Domain) == "" {
			slog.Warn("skipping malformed domain", "domain", rec.Domain)
			continue
		}
		if c.opts.SkipInvalid && rec.KnownValid == ValidityInvalid {
			slog.Debug("skipping domain marked invalid", "domain", rec.Domain)
			continue
		}
		queue = append(queue, i)
	}

	acc := NewAccumulator(c.opts.TargetCount, deadline, len(queue), c.opts.Now)
	if !acc.State().Stopped {
		c.loop(ctx, acc, domains, queue, deadline)
	}

	snap := acc.Snapshot()
	slog.Info("crawl finished",
		"stopReason", snap.StopReason,
		"accepted", len(snap.Accepted),
		"domainsAttempted", snap.DomainsAttempted,
		"domainsValid", snap.DomainsValid,
		"candidates", snap.TotalCandidatesSeen,
		"duplicates", snap.DuplicatesSkipped,
	)
	return Result{
		RunState:   snap,
		Domains:    domains,
		StartedAt:  started,
		FinishedAt: c.opts.Now(),
	}, nil
}

// loop is the single owner of acc and domains. Workers only send outcomes.
func (c *Crawler) loop(ctx context.Context, acc *Accumulator, domains []DomainRecord, queue []int, deadline time.Time) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int)
	outcomes := make(chan DomainOutcome)

	workers := c.opts.Concurrency
	if workers > len(queue) {
		workers = len(queue)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if runCtx.Err() != nil {
					return
				}
				out := c.crawlDomain(runCtx, domains[idx].Domain)
				out.index = idx
				select {
				case outcomes <- out:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, idx := range queue {
			select {
			case work <- idx:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	timer := time.NewTimer(deadline.Sub(c.opts.Now()))
	defer timer.Stop()

	for !acc.State().Stopped {
		select {
		case out, ok := <-outcomes:
			if !ok {
				if ctx.Err() != nil {
					acc.Cancel()
				} else {
					acc.stop(StopDomainsExhausted)
				}
				continue
			}
			acc.RecordDomainOutcome(out)
			rec := &domains[out.index]
			finished := out.FinishedAt
			rec.LastScrapedAt = &finished
			rec.KnownValid = ValidityInvalid
			if out.Valid {
				rec.KnownValid = ValidityValid
			}
		case <-timer.C:
			acc.CheckDeadline()
		case <-ctx.Done():
			acc.Cancel()
		}
	}

	cancel()
	for range outcomes {
		// late outcomes after the stop are dropped
	}
}

// crawlDomain fetches the domain root and, when that is not a job index, the
// classifier's proposals in order, stopping at the first job index.
func (c *Crawler) crawlDomain(ctx context.Context, domain string) DomainOutcome {
	start := time.Now()
	stats := c.opts.Stats
	domain = urlutil.NormalizeDomain(domain)
	out := DomainOutcome{Domain: domain}

	pending := []string{urlutil.RootURL(domain)}
	tried := make(map[string]struct{})
	for len(pending) > 0 && ctx.Err() == nil {
		target := pending[0]
		pending = pending[1:]
		if _, ok := tried[target]; ok {
			continue
		}
		tried[target] = struct{}{}

		res := c.fetcher.Fetch(ctx, target, c.opts.PerFetchTimeout)
		if res.OK() {
			stats.IncPagesFetched()
		} else {
			stats.IncError(observability.ClassifyFetch(res), "fetcher")
			slog.Debug("fetch failed", "domain", domain, "url", target, "status", res.Status, "error", res.Err)
		}

		verdict := c.classifier.Classify(domain, res)
		stats.IncPageDecision(verdict.Decision.Reason)
		if !verdict.IsJobIndex {
			if len(tried) == 1 {
				pending = append(pending, verdict.NextURLs...)
			}
			continue
		}

		out.Valid = true
		candidates := c.extractor.Extract(scraper.Page{
			URL:         res.URL,
			Domain:      domain,
			ContentType: res.ContentType,
			Body:        res.Body,
		})
		out.CandidatesSeen = len(candidates)
		stats.AddCandidates(len(candidates))
		for _, cand := range candidates {
			ev := c.filter.Evaluate(cand)
			if !ev.Accepted {
				stats.IncRejected(ev.Reason)
				continue
			}
			stats.IncAccepted()
			out.Jobs = append(out.Jobs, QualifiedJob{
				Title:        cand.Title,
				Link:         cand.Link,
				SourceDomain: domain,
				MatchedAt:    c.opts.Now(),
				Score:        ev.Score,
			})
		}
		break
	}

	out.FinishedAt = c.opts.Now()
	stats.ObserveDomainDuration(time.Since(start))
	slog.Info("domain crawled",
		"domain", domain,
		"valid", out.Valid,
		"candidates", out.CandidatesSeen,
		"qualified", len(out.Jobs),
		"fetches", len(tried),
	)
	return out
}
