package core

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/baxromumarov/fresher-hunter/internal/scraper"
)

// Profile is the candidate's level and skill keywords. Terms are matched
// case-insensitively on word boundaries.
type Profile struct {
	IncludeTerms    []string `json:"include_terms"`
	ExcludeTerms    []string `json:"exclude_terms"`
	StrongKeywords  []string `json:"strong_keywords"`
	SupportKeywords []string `json:"support_keywords"`
	MinStrongHits   int      `json:"min_strong_hits"`
}

func DefaultProfile() Profile {
	return Profile{
		IncludeTerms: []string{
			"intern", "internship", "entry level", "entry-level", "associate", "graduate",
			"new grad", "new graduate", "0-1 years", "0-1 year", "junior", "jr", "fresher",
			"trainee", "apprentice", "early career",
		},
		ExcludeTerms: []string{
			"senior", "sr", "lead", "staff", "principal", "director", "head of",
			"manager", "vp", "architect",
		},
		StrongKeywords: []string{
			"software engineer", "software engineering", "software developer", "software development",
			"full stack", "full-stack", "fullstack", "backend", "back-end", "frontend", "front-end",
			"web developer", "mobile developer", "machine learning", "ml", "ai", "artificial intelligence",
			"deep learning", "data science", "data scientist", "nlp", "computer vision", "sde", "swe",
		},
		SupportKeywords: []string{
			"python", "golang", "go", "java", "javascript", "typescript", "react", "node.js", "sql",
			"postgresql", "docker", "kubernetes", "aws", "gcp", "linux", "git", "rest", "api",
			"pytorch", "tensorflow", "c++", "cloud", "microservices",
		},
		MinStrongHits: 1,
	}
}

// LoadProfile reads a JSON profile. Lists left empty keep the built-in defaults.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	def := DefaultProfile()
	if len(p.IncludeTerms) == 0 {
		p.IncludeTerms = def.IncludeTerms
	}
	if len(p.ExcludeTerms) == 0 {
		p.ExcludeTerms = def.ExcludeTerms
	}
	if len(p.StrongKeywords) == 0 {
		p.StrongKeywords = def.StrongKeywords
	}
	if len(p.SupportKeywords) == 0 {
		p.SupportKeywords = def.SupportKeywords
	}
	if p.MinStrongHits <= 0 {
		p.MinStrongHits = def.MinStrongHits
	}
	return p, nil
}

const (
	GateLevel     = "level"
	GateExcluded  = "excluded"
	GateAlignment = "alignment"
)

type Evaluation struct {
	Accepted    bool
	LevelOK     bool
	Excluded    bool
	StrongHits  int
	SupportHits int
	Score       int
	Reason      string
}

// AlignmentFilter applies the level gate and the alignment gate to candidates.
// It holds only compiled patterns and is safe for concurrent use.
type AlignmentFilter struct {
	minStrong int
	include   []*regexp.Regexp
	exclude   []*regexp.Regexp
	strong    []*regexp.Regexp
	support   []*regexp.Regexp
}

func NewAlignmentFilter(p Profile) *AlignmentFilter {
	if p.MinStrongHits <= 0 {
		p.MinStrongHits = 1
	}
	return &AlignmentFilter{
		minStrong: p.MinStrongHits,
		include:   compileTerms(p.IncludeTerms),
		exclude:   compileTerms(p.ExcludeTerms),
		strong:    compileTerms(p.StrongKeywords),
		support:   compileTerms(p.SupportKeywords),
	}
}

// Evaluate runs both gates. Exclusion terms are checked against the title only so
// context such as "mentored by a senior engineer" does not reject an intern posting.
func (f *AlignmentFilter) Evaluate(c scraper.JobCandidate) Evaluation {
	title := strings.ToLower(c.Title)
	text := title + " " + strings.ToLower(c.RawContext)

	ev := Evaluation{
		LevelOK:     countMatches(f.include, text) > 0,
		Excluded:    countMatches(f.exclude, title) > 0,
		StrongHits:  countMatches(f.strong, text),
		SupportHits: countMatches(f.support, text),
	}
	switch {
	case ev.Excluded:
		ev.Reason = GateExcluded
	case !ev.LevelOK:
		ev.Reason = GateLevel
	case ev.StrongHits < f.minStrong:
		ev.Reason = GateAlignment
	default:
		ev.Accepted = true
		ev.Reason = "accepted"
		ev.Score = ruleScore(ev.StrongHits + ev.SupportHits)
	}
	return ev
}

func (f *AlignmentFilter) Accepts(c scraper.JobCandidate) bool {
	return f.Evaluate(c).Accepted
}

func ruleScore(hits int) int {
	switch {
	case hits >= 4:
		return 95
	case hits == 3:
		return 85
	case hits == 2:
		return 75
	case hits == 1:
		return 60
	default:
		return 0
	}
}

func compileTerms(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		// \b does not work around terms like "c++" or "node.js"
		out = append(out, regexp.MustCompile(`(?:^|[^a-z0-9])`+regexp.QuoteMeta(t)+`(?:$|[^a-z0-9])`))
	}
	return out
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	hits := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}
