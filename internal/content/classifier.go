package content

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/baxromumarov/fresher-hunter/internal/httpx"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

// fallbackPaths are tried on a domain whose root page is not a job index, after any
// career links found on the root itself.
var fallbackPaths = []string{"/careers", "/jobs", "/careers/", "/about/careers"}

type Decision struct {
	PageType   string
	Reason     string
	Confidence float64
}

type Verdict struct {
	IsJobIndex bool
	NextURLs   []string
	Decision   Decision
	Signals    Signals
}

type Classifier struct {
	matcher      *Matcher
	maxSecondary int
}

func NewClassifier(rules Rules, maxSecondary int) *Classifier {
	if rules.MinJobAnchors <= 0 {
		rules.MinJobAnchors = 1
	}
	if maxSecondary < 0 {
		maxSecondary = 0
	}
	return &Classifier{matcher: NewMatcher(rules), maxSecondary: maxSecondary}
}

func (c *Classifier) Matcher() *Matcher {
	return c.matcher
}

// Classify decides whether a fetched page lists jobs and, for a domain root that does
// not, which URLs to try next. It is a pure function of its inputs.
func (c *Classifier) Classify(domain string, res httpx.FetchResult) Verdict {
	var v Verdict
	if !res.OK() {
		v.Decision = Decision{PageType: urlutil.PageTypeNonJob, Reason: "fetch_" + string(res.Status), Confidence: 1}
	} else {
		v.Signals = Analyze(c.matcher, res.URL, res.ContentType, res.Body)
		v.Decision = c.decide(v.Signals)
		v.IsJobIndex = v.Decision.PageType == urlutil.PageTypeJobList
	}
	if !v.IsJobIndex && urlutil.IsRoot(res.URL) {
		v.NextURLs = c.nextURLs(domain, res.URL, v.Signals)
	}
	return v
}

func (c *Classifier) decide(signals Signals) Decision {
	rules := c.matcher.Rules()

	if signals.IsFeed {
		if signals.FeedRoleHits > 0 {
			return Decision{PageType: urlutil.PageTypeJobList, Reason: "job_feed", Confidence: 0.9}
		}
		return Decision{PageType: urlutil.PageTypeNonJob, Reason: "feed_without_roles", Confidence: 0.6}
	}
	if signals.JobPosting {
		return Decision{PageType: urlutil.PageTypeJobList, Reason: "jsonld_jobposting", Confidence: 0.95}
	}
	if signals.JobLinkCount >= rules.MinJobAnchors {
		return Decision{PageType: urlutil.PageTypeJobList, Reason: "job_links", Confidence: 0.85}
	}
	if signals.IsATSPage && signals.JobLinkCount >= 1 {
		return Decision{PageType: urlutil.PageTypeJobList, Reason: "ats_page", Confidence: 0.9}
	}
	if signals.IsCareerPath && signals.JobLinkCount >= 1 && signals.ApplyHits+signals.KeywordHits > 0 {
		return Decision{PageType: urlutil.PageTypeJobList, Reason: "career_path", Confidence: 0.75}
	}

	if len(signals.ATSLinks) > 0 {
		return Decision{PageType: urlutil.PageTypeCareerRoot, Reason: "ats_link", Confidence: 0.8}
	}
	if len(signals.CareerLinks) > 0 || len(signals.FeedLinks) > 0 {
		return Decision{PageType: urlutil.PageTypeCareerRoot, Reason: "career_link", Confidence: 0.6}
	}
	if signals.KeywordHits > 0 || signals.TitleMatch || signals.H1Match {
		return Decision{PageType: urlutil.PageTypeCareerRoot, Reason: "job_keywords", Confidence: 0.5}
	}
	return Decision{PageType: urlutil.PageTypeNonJob, Reason: "no_job_signals", Confidence: 0.2}
}

func (c *Classifier) nextURLs(domain, pageURL string, signals Signals) []string {
	if c.maxSecondary == 0 {
		return nil
	}
	domain = urlutil.NormalizeDomain(domain)

	var found []string
	found = append(found, signals.ATSLinks...)
	found = append(found, signals.CareerLinks...)
	found = append(found, signals.FeedLinks...)
	sort.SliceStable(found, func(i, j int) bool {
		return urlutil.CareerRootPriority(found[i]) < urlutil.CareerRootPriority(found[j])
	})
	if domain != "" {
		root := strings.TrimSuffix(urlutil.RootURL(domain), "/")
		for _, p := range fallbackPaths {
			found = append(found, root+p)
		}
	}

	seen := map[string]struct{}{pageURL: {}}
	out := make([]string, 0, c.maxSecondary)
	for _, u := range found {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == c.maxSecondary {
			break
		}
	}
	return out
}

// ClassifyWithLogging wraps Classify with logging of rejected pages
func (c *Classifier) ClassifyWithLogging(domain string, res httpx.FetchResult) Verdict {
	v := c.Classify(domain, res)
	s := v.Signals
	if !v.IsJobIndex {
		slog.Info("Rejected page",
			"domain", domain,
			"url", res.URL,
			"status", res.Status,
			"jobPosting", s.JobPosting,
			"isATSPage", s.IsATSPage,
			"keywordHits", s.KeywordHits,
			"jobLinks", s.JobLinkCount,
			"applyHits", s.ApplyHits,
			"atsLinks", len(s.ATSLinks),
			"careerLinks", len(s.CareerLinks),
			"feedRoleHits", s.FeedRoleHits,
			"reason", v.Decision.Reason,
			"next", len(v.NextURLs),
		)
	} else {
		slog.Debug("Accepted page",
			"domain", domain,
			"url", res.URL,
			"pageType", v.Decision.PageType,
			"reason", v.Decision.Reason,
			"confidence", v.Decision.Confidence,
		)
	}
	return v
}
