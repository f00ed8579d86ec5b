package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

// greenhouseJobs reads the classic (.opening) and current (.job-post) board layouts.
func greenhouseJobs(doc *goquery.Document, base *url.URL, domain string) []JobCandidate {
	var jobs []JobCandidate
	doc.Find(".opening, .job-post").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		jobURL := urlutil.Resolve(base, href)
		if jobURL == "" {
			return
		}
		title := collapse(link.Find(".body--medium, p").First().Text())
		if title == "" {
			title = collapse(link.Text())
		}
		location := collapse(s.Find(".location, .body--metadata").First().Text())
		if location != "" {
			title = strings.TrimSpace(strings.TrimSuffix(title, location))
		}
		jobs = append(jobs, JobCandidate{
			Title:        title,
			Link:         jobURL,
			RawContext:   joinWith(" - ", title, companyFromGreenhouse(jobURL), location),
			SourceDomain: domain,
			Location:     location,
			Origin:       OriginATS,
		})
	})
	return jobs
}

func companyFromGreenhouse(u string) string {
	parts := strings.Split(u, "/")
	for i, p := range parts {
		if strings.HasSuffix(p, "greenhouse.io") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
