package scraper

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

type leverPosting struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	HostedURL   string   `json:"hostedUrl"`
	Categories  category `json:"categories"`
	CreatedAt   int64    `json:"createdAt"`
	Description string   `json:"descriptionPlain"`
}

type category struct {
	Team       string `json:"team"`
	Location   string `json:"location"`
	Commitment string `json:"commitment"`
}

func leverJobs(doc *goquery.Document, base *url.URL, domain string) []JobCandidate {
	var jobs []JobCandidate
	doc.Find(".posting").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a.posting-title[href]").First()
		if link.Length() == 0 {
			link = s.Find("a[href]").First()
		}
		jobURL := urlutil.Resolve(base, link.AttrOr("href", ""))
		if jobURL == "" {
			return
		}
		title := collapse(s.Find("[data-qa='posting-name']").First().Text())
		if title == "" {
			title = collapse(s.Find("h5").First().Text())
		}
		if title == "" {
			title = collapse(link.Text())
		}
		location := collapse(s.Find(".sort-by-location, .location").First().Text())
		team := collapse(s.Find(".sort-by-team, .department").First().Text())
		commitment := collapse(s.Find(".sort-by-commitment, .commitment").First().Text())
		jobs = append(jobs, JobCandidate{
			Title:        title,
			Link:         jobURL,
			RawContext:   joinWith(" - ", title, team, commitment, location),
			SourceDomain: domain,
			Location:     location,
			Origin:       OriginATS,
		})
	})
	return jobs
}

// leverJSONJobs reads the ?mode=json variant of a Lever board.
func leverJSONJobs(p Page, base *url.URL, domain string) []JobCandidate {
	if !strings.Contains(strings.ToLower(base.Hostname()), "lever.co") ||
		!strings.Contains(strings.ToLower(p.ContentType), "json") {
		return nil
	}
	var postings []leverPosting
	if err := json.Unmarshal(p.Body, &postings); err != nil {
		return nil
	}
	jobs := make([]JobCandidate, 0, len(postings))
	for _, posting := range postings {
		link := urlutil.Resolve(base, posting.HostedURL)
		if link == "" || posting.Text == "" {
			continue
		}
		jobs = append(jobs, JobCandidate{
			Title: posting.Text,
			Link:  link,
			RawContext: truncate(joinWith(" - ", posting.Text, posting.Categories.Team,
				posting.Categories.Commitment, posting.Description), maxContextChars),
			SourceDomain: domain,
			Location:     posting.Categories.Location,
			Origin:       OriginATS,
		})
	}
	return jobs
}
