package scraper

type Origin string

const (
	OriginFeed   Origin = "feed"
	OriginJSONLD Origin = "jsonld"
	OriginATS    Origin = "ats"
	OriginAnchor Origin = "anchor"
)

// JobCandidate is a posting as found on a page, before any filtering.
type JobCandidate struct {
	Title        string
	Link         string
	RawContext   string
	SourceDomain string
	Location     string
	Origin       Origin
}

// Page is a successfully fetched document handed to the extractor.
type Page struct {
	URL         string
	Domain      string
	ContentType string
	Body        []byte
}
