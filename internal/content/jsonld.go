package content

import (
	"encoding/json"
	"strings"
)

func hasJobPostingJSONLD(raw string) bool {
	return len(JobPostings(raw)) > 0
}

// JobPostings returns every schema.org JobPosting object in a JSON-LD block,
// including those nested in arrays or an @graph.
func JobPostings(raw string) []map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	var out []map[string]any
	collectJobPostings(payload, &out)
	return out
}

func collectJobPostings(payload any, out *[]map[string]any) {
	switch t := payload.(type) {
	case map[string]any:
		if isJobPostingType(t["@type"]) {
			*out = append(*out, t)
			return
		}
		if graph, ok := t["@graph"].([]any); ok {
			for _, item := range graph {
				collectJobPostings(item, out)
			}
		}
		if list, ok := t["itemListElement"].([]any); ok {
			for _, item := range list {
				if entry, ok := item.(map[string]any); ok {
					if inner, ok := entry["item"]; ok {
						collectJobPostings(inner, out)
						continue
					}
				}
				collectJobPostings(item, out)
			}
		}
	case []any:
		for _, item := range t {
			collectJobPostings(item, out)
		}
	}
}

func isJobPostingType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "JobPosting"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// StringField reads a JSON-LD property that may be a string, an object with "name"
// or "@id", or a list of either.
func StringField(obj map[string]any, key string) string {
	return stringValue(obj[key])
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, k := range []string{"name", "@id", "url"} {
			if s := stringValue(t[k]); s != "" {
				return s
			}
		}
	case []any:
		for _, item := range t {
			if s := stringValue(item); s != "" {
				return s
			}
		}
	}
	return ""
}
