package core

import (
	"context"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/content"
	"github.com/baxromumarov/fresher-hunter/internal/httpx"
	"github.com/baxromumarov/fresher-hunter/internal/scraper"
)

type Validity string

const (
	ValidityUnknown Validity = "unknown"
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// ParseValidity maps stored status text onto a Validity; anything unrecognised is unknown.
func ParseValidity(s string) Validity {
	switch Validity(s) {
	case ValidityValid, ValidityInvalid:
		return Validity(s)
	}
	return ValidityUnknown
}

type DomainRecord struct {
	Domain        string     `json:"domain"`
	KnownValid    Validity   `json:"known_valid"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
	Priority      int        `json:"priority,omitempty"`
}

type QualifiedJob struct {
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	SourceDomain string    `json:"source_domain"`
	MatchedAt    time.Time `json:"matched_at"`
	Score        int       `json:"score"`
}

// DomainOutcome is what one worker reports after running a domain's pipeline.
type DomainOutcome struct {
	Domain         string
	Valid          bool
	Jobs           []QualifiedJob
	CandidatesSeen int
	FinishedAt     time.Time

	index int
}

type DomainSource interface {
	ListDomains(ctx context.Context) ([]DomainRecord, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) httpx.FetchResult
}

type PageClassifier interface {
	Classify(domain string, res httpx.FetchResult) content.Verdict
}

type JobExtractor interface {
	Extract(p scraper.Page) []scraper.JobCandidate
}
