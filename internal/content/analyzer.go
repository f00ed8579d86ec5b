package content

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

const maxTextSample = 5000

// jobTitlePattern detects job titles in page title, h1, or URL path
var jobTitlePattern = regexp.MustCompile(`(?i)(engineer|developer|backend|frontend|full.?stack|devops|platform|intern)`)

type Signals struct {
	Title        string
	Meta         string
	Text         string
	ATSLinks     []string
	CareerLinks  []string
	FeedLinks    []string
	JobPosting   bool
	JobLinkCount int
	KeywordHits  int
	ApplyHits    int
	IsATSPage    bool
	IsCareerPath bool
	IsFeed       bool
	FeedRoleHits int
	TitleMatch   bool
	H1Match      bool
}

// Analyze extracts classification signals from a fetched body. It does no I/O.
func Analyze(m *Matcher, pageURL, contentType string, body []byte) Signals {
	var signals Signals
	base, err := url.Parse(pageURL)
	if err != nil {
		return signals
	}
	signals.IsATSPage = urlutil.IsATSHost(base.Hostname())
	switch urlutil.DetectPageType(pageURL) {
	case urlutil.PageTypeCareerRoot, urlutil.PageTypeJobList:
		signals.IsCareerPath = true
	}

	if feed, ok := ParseFeed(contentType, body); ok {
		signals.IsFeed = true
		signals.Title = strings.TrimSpace(feed.Title)
		for _, item := range feed.Items {
			if item != nil && m.IsJobAnchorText(item.Title) {
				signals.FeedRoleHits++
			}
		}
		return signals
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return signals
	}

	signals.Title = strings.TrimSpace(doc.Find("title").First().Text())
	signals.TitleMatch = jobTitlePattern.MatchString(signals.Title)
	signals.Meta = strings.TrimSpace(doc.Find("meta[name='description']").First().AttrOr("content", ""))
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if jobTitlePattern.MatchString(strings.TrimSpace(s.Text())) {
			signals.H1Match = true
			return false
		}
		return true
	})
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasJobPostingJSONLD(s.Text()) {
			signals.JobPosting = true
			return false
		}
		return true
	})

	jobLinks := make(map[string]struct{})
	atsLinks := newOrderedSet()
	careerLinks := newOrderedSet()
	feedLinks := newOrderedSet()

	doc.Find("link[rel='alternate'][href]").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") {
			return
		}
		href := s.AttrOr("href", "")
		if !isJobFeedRef(href + " " + s.AttrOr("title", "")) {
			return
		}
		if resolved := urlutil.Resolve(base, href); resolved != "" {
			feedLinks.add(resolved)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		resolved := urlutil.Resolve(base, href)
		if resolved == "" {
			return
		}
		normalized, host, err := urlutil.Normalize(resolved)
		if err != nil || host == "" || !urlutil.IsCrawlable(normalized) {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		isATS := urlutil.IsATSHost(host)
		sameSite := urlutil.SameSite(base.Hostname(), host)

		if (sameSite || isATS) && m.IsJobAnchorText(text) {
			jobLinks[normalized] = struct{}{}
		}
		if isATS && !signals.IsATSPage {
			if board, _, err := urlutil.NormalizeATSLink(resolved); err == nil {
				atsLinks.add(board)
			}
			return
		}
		if !sameSite {
			return
		}
		if isJobFeedPath(normalized) {
			feedLinks.add(resolved)
			return
		}
		switch urlutil.DetectPageType(normalized) {
		case urlutil.PageTypeCareerRoot, urlutil.PageTypeJobList:
			careerLinks.add(normalized)
		}
	})

	signals.ATSLinks = atsLinks.items
	signals.CareerLinks = careerLinks.items
	signals.FeedLinks = feedLinks.items
	signals.JobLinkCount = len(jobLinks)
	signals.Text = limitText(strings.Join(strings.Fields(doc.Find("body").Text()), " "))

	rules := m.Rules()
	combined := strings.ToLower(strings.Join([]string{signals.Title, signals.Meta, signals.Text}, " "))
	signals.KeywordHits = countHits(combined, rules.KeywordPhrases)
	signals.ApplyHits = countHits(combined, rules.ApplyPhrases)

	return signals
}

func isJobFeedRef(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "job") || strings.Contains(lower, "career") || strings.Contains(lower, "vacanc")
}

func isJobFeedPath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	isFeed := strings.HasSuffix(p, ".rss") || strings.HasSuffix(p, ".xml") ||
		strings.HasSuffix(p, "/feed") || strings.HasSuffix(p, "/rss")
	return isFeed && isJobFeedRef(p)
}

func limitText(text string) string {
	clean := strings.TrimSpace(text)
	if len(clean) <= maxTextSample {
		return clean
	}
	cut := maxTextSample
	for cut > 0 && !utf8.RuneStart(clean[cut]) {
		cut--
	}
	return clean[:cut]
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
