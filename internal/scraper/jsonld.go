package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/content"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

func jsonLDJobs(doc *goquery.Document, base *url.URL, domain string) []JobCandidate {
	var jobs []JobCandidate
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		for _, posting := range content.JobPostings(s.Text()) {
			job := jobFromPosting(posting, base, domain)
			// a posting without a resolvable url has nothing to apply through
			if job.Link == "" {
				continue
			}
			if job.Title == "" {
				job.Title = pathTitleFromURL(job.Link)
			}
			if job.Title == "" {
				continue
			}
			jobs = append(jobs, job)
		}
	})
	return jobs
}

func jobFromPosting(posting map[string]any, base *url.URL, domain string) JobCandidate {
	job := JobCandidate{
		Title:        content.StringField(posting, "title"),
		SourceDomain: domain,
		Location:     parseLocation(posting["jobLocation"]),
		Origin:       OriginJSONLD,
	}
	if link := content.StringField(posting, "url"); link != "" {
		job.Link = urlutil.Resolve(base, link)
	}
	desc := NormalizeText(content.StringField(posting, "description"))
	parts := []string{job.Title}
	if emp := content.StringField(posting, "employmentType"); emp != "" {
		parts = append(parts, emp)
	}
	if desc != "" {
		parts = append(parts, desc)
	}
	job.RawContext = truncate(joinWith(" - ", parts...), maxContextChars)
	return job
}

func parseLocation(v any) string {
	switch t := v.(type) {
	case string:
		return collapse(t)
	case []any:
		for _, item := range t {
			if loc := parseLocation(item); loc != "" {
				return loc
			}
		}
	case map[string]any:
		if addr, ok := t["address"].(map[string]any); ok {
			return joinWith(", ",
				content.StringField(addr, "addressLocality"),
				content.StringField(addr, "addressRegion"),
				content.StringField(addr, "addressCountry"),
			)
		}
		if name := content.StringField(t, "name"); name != "" {
			return name
		}
	}
	return ""
}

func joinWith(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		p = collapse(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, sep)
}
