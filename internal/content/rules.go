package content

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rules are the token sets behind page classification and job-anchor detection.
type Rules struct {
	RoleNouns      []string
	SignalWords    []string
	KeywordPhrases []string
	ApplyPhrases   []string
	NavPhrases     []string
	MinJobAnchors  int
	MinTitleChars  int
	MaxTitleChars  int
	MaxTitleWords  int
}

func DefaultRules() Rules {
	return Rules{
		RoleNouns: []string{
			"engineer", "developer", "programmer", "intern", "internship",
			"analyst", "scientist", "designer", "architect", "administrator",
			"specialist", "consultant", "researcher", "technician", "tester",
			"trainee", "apprentice", "graduate", "associate", "manager",
			"devops", "sre", "qa",
		},
		SignalWords: []string{
			"intern", "internship", "junior", "senior", "lead", "staff",
			"principal", "entry level", "entry-level", "graduate", "new grad",
			"apply", "careers", "hiring",
		},
		KeywordPhrases: []string{
			"open positions", "open position", "job openings", "job opening",
			"current openings", "open roles", "open role", "career opportunities",
			"join our team", "join the team", "work with us", "we're hiring",
			"we are hiring", "vacancies",
		},
		ApplyPhrases: []string{"apply now", "apply today", "apply for this job", "apply"},
		NavPhrases: []string{
			"careers", "jobs", "apply", "apply now", "view job", "view all jobs",
			"see all jobs", "see open roles", "open positions", "learn more", "read more",
			"join us", "home", "about", "contact",
		},
		MinJobAnchors: 2,
		MinTitleChars: 2,
		MaxTitleChars: 120,
		MaxTitleWords: 14,
	}
}

// Matcher answers token questions for a Rules value with precompiled patterns.
type Matcher struct {
	rules  Rules
	role   *regexp.Regexp
	signal *regexp.Regexp
	nav    map[string]struct{}
}

func NewMatcher(rules Rules) *Matcher {
	nav := make(map[string]struct{}, len(rules.NavPhrases))
	for _, p := range rules.NavPhrases {
		nav[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &Matcher{
		rules:  rules,
		role:   wordPattern(rules.RoleNouns, true),
		signal: wordPattern(rules.SignalWords, false),
		nav:    nav,
	}
}

// HasRoleNoun reports whether text names a role ("Backend Engineer", "data-analysts").
func (m *Matcher) HasRoleNoun(text string) bool {
	return m.role != nil && m.role.MatchString(text)
}

// HasJobSignal is the weaker test used for anchors that already point at a job-detail path.
func (m *Matcher) HasJobSignal(text string) bool {
	if m.HasRoleNoun(text) {
		return true
	}
	return m.signal != nil && m.signal.MatchString(text)
}

// TitleShaped reports whether text could be a posting title rather than a paragraph or a nav label.
func (m *Matcher) TitleShaped(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n < m.rules.MinTitleChars || n > m.rules.MaxTitleChars {
		return false
	}
	if len(strings.Fields(text)) > m.rules.MaxTitleWords {
		return false
	}
	key := strings.ToLower(strings.Trim(text, " .:!»›→>"))
	_, isNav := m.nav[key]
	return !isNav
}

// IsJobAnchorText is the anchor test shared by the classifier and the generic extractor.
func (m *Matcher) IsJobAnchorText(text string) bool {
	return m.TitleShaped(text) && m.HasRoleNoun(text)
}

func (m *Matcher) Rules() Rules {
	return m.rules
}

func wordPattern(words []string, plural bool) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(w)))
	}
	if len(quoted) == 0 {
		return nil
	}
	suffix := ""
	if plural {
		suffix = "s?"
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)` + suffix + `\b`)
}

func countHits(text string, phrases []string) int {
	if text == "" {
		return 0
	}
	hits := 0
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			hits++
		}
	}
	return hits
}
