package scraper

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/content"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

// Extractor turns a job-index page into candidates. It never fails: pages it cannot
// parse yield no candidates.
type Extractor struct {
	matcher *content.Matcher
}

func NewExtractor(m *content.Matcher) *Extractor {
	if m == nil {
		m = content.NewMatcher(content.DefaultRules())
	}
	return &Extractor{matcher: m}
}

// Extract tries feeds, then JSON-LD, then known ATS layouts, then generic anchors,
// returning the first strategy's non-empty result.
func (e *Extractor) Extract(p Page) []JobCandidate {
	base, err := url.Parse(p.URL)
	if err != nil || base.Host == "" {
		return nil
	}
	domain := p.Domain
	if domain == "" {
		domain = urlutil.NormalizeDomain(base.Hostname())
	}

	if feed, ok := content.ParseFeed(p.ContentType, p.Body); ok {
		return dedupe(feedJobs(feed, base, domain))
	}
	if jobs := leverJSONJobs(p, base, domain); len(jobs) > 0 {
		return dedupe(jobs)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil
	}

	if jobs := jsonLDJobs(doc, base, domain); len(jobs) > 0 {
		return dedupe(jobs)
	}
	if jobs := boardJobs(doc, p.Body, base, domain); len(jobs) > 0 {
		return dedupe(jobs)
	}
	return dedupe(e.anchorJobs(doc, base, domain))
}

func boardJobs(doc *goquery.Document, body []byte, base *url.URL, domain string) []JobCandidate {
	host := strings.ToLower(base.Hostname())
	switch {
	case strings.Contains(host, "greenhouse.io"):
		return greenhouseJobs(doc, base, domain)
	case strings.Contains(host, "lever.co"):
		return leverJobs(doc, base, domain)
	case strings.Contains(host, "ashbyhq.com"), bytes.Contains(body, ashbyMarker):
		return ashbyJobs(body, base, domain)
	}
	return nil
}

// dedupe keeps the first candidate per normalized link. A fragment survives in the key
// so postings addressed as page#job-N stay distinct.
func dedupe(jobs []JobCandidate) []JobCandidate {
	if len(jobs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(jobs))
	out := make([]JobCandidate, 0, len(jobs))
	for _, job := range jobs {
		job.Title = collapse(job.Title)
		if job.Title == "" || job.Link == "" {
			continue
		}
		key, ok := urlutil.DedupKey(job.Link)
		if !ok {
			continue
		}
		if u, err := url.Parse(job.Link); err == nil && u.Fragment != "" {
			key += "#" + u.Fragment
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if job.RawContext == "" {
			job.RawContext = job.Title
		}
		out = append(out, job)
	}
	return out
}
