package scraper

import (
	"net/url"

	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
	"github.com/mmcdole/gofeed"
)

func feedJobs(feed *gofeed.Feed, base *url.URL, domain string) []JobCandidate {
	var jobs []JobCandidate
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := urlutil.Resolve(base, item.Link)
		if link == "" {
			continue
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		jobs = append(jobs, JobCandidate{
			Title:        item.Title,
			Link:         link,
			RawContext:   truncate(joinWith(" - ", item.Title, joinWith(", ", item.Categories...), NormalizeText(desc)), maxContextChars),
			SourceDomain: domain,
			Origin:       OriginFeed,
		})
	}
	return jobs
}
