package content

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ParseFeed parses body as RSS, Atom or JSON Feed. ok is false for anything else.
func ParseFeed(contentType string, body []byte) (*gofeed.Feed, bool) {
	if !looksLikeFeed(contentType, body) {
		return nil, false
	}
	if gofeed.DetectFeedType(bytes.NewReader(body)) == gofeed.FeedTypeUnknown {
		return nil, false
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || feed == nil {
		return nil, false
	}
	return feed, true
}

func looksLikeFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "feed+json") {
		return true
	}
	head := bytes.TrimSpace(body)
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	if bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html")) {
		return false
	}
	return bytes.HasPrefix(lower, []byte("<?xml")) ||
		bytes.HasPrefix(lower, []byte("<rss")) ||
		bytes.HasPrefix(lower, []byte("<feed")) ||
		(strings.Contains(ct, "json") && bytes.Contains(lower, []byte("jsonfeed.org")))
}
