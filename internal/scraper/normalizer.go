package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

const maxContextChars = 600

// NormalizeText strips markup from an HTML fragment and collapses whitespace.
// Plain text passes through with whitespace collapsed.
func NormalizeText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return collapse(ExtractText(doc))
}

// ExtractText is a helper to get text from HTML
func ExtractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(ExtractText(c))
		if c.Type == html.ElementNode && isBlock(c.Data) {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "br", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "td", "section", "article":
		return true
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], ' ')
	if cut <= 0 {
		cut = max
	}
	return s[:cut]
}
