package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxContextDepth = 3

// anchorJobs is the fallback for pages with no structured data. An anchor is a posting
// when its text is title-shaped and names a role (in the text or the href), or when it
// points at a job-detail path and its text carries any job signal.
func (e *Extractor) anchorJobs(doc *goquery.Document, base *url.URL, domain string) []JobCandidate {
	var jobs []JobCandidate
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		resolved := urlutil.Resolve(base, href)
		if resolved == "" || !urlutil.IsCrawlable(resolved) {
			return
		}
		text := collapse(s.Text())
		if text == "" {
			text = collapse(s.AttrOr("title", s.AttrOr("aria-label", "")))
		}
		if !e.matcher.TitleShaped(text) {
			return
		}

		qualifies := e.matcher.HasRoleNoun(text) || e.matcher.HasRoleNoun(pathWords(resolved))
		if !qualifies && urlutil.DetectPageType(resolved) == urlutil.PageTypeJobDetail {
			qualifies = e.matcher.HasJobSignal(text)
		}
		if !qualifies {
			return
		}

		raw, container := anchorContext(s)
		jobs = append(jobs, JobCandidate{
			Title:        text,
			Link:         resolved,
			RawContext:   truncate(raw, maxContextChars),
			SourceDomain: domain,
			Location:     collapse(container.Find(".location, [class*='location']").First().Text()),
			Origin:       OriginAnchor,
		})
	})
	return jobs
}

// anchorContext returns the text of the widest ancestor, at most maxContextDepth levels
// up, that contains no other link. Falls back to the anchor itself.
func anchorContext(a *goquery.Selection) (string, *goquery.Selection) {
	best := a
	cur := a
	for i := 0; i < maxContextDepth; i++ {
		parent := cur.Parent()
		if parent.Length() == 0 || goquery.NodeName(parent) == "body" {
			break
		}
		if parent.Find("a[href]").Length() > 1 {
			break
		}
		best = parent
		cur = parent
	}
	return collapse(best.Text()), best
}

func pathWords(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	r := strings.NewReplacer("/", " ", "-", " ", "_", " ", ".", " ")
	return r.Replace(u.Path)
}

func pathTitleFromURL(u string) string {
	parsed, err := url.Parse(u)
	if err == nil {
		u = parsed.Path
	}
	parts := strings.Split(u, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		p := strings.TrimSpace(parts[i])
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, "-", " ")
		p = strings.ReplaceAll(p, "_", " ")
		return cases.Title(language.Und).String(p)
	}
	return ""
}
