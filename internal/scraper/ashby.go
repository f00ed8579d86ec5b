package scraper

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

var ashbyMarker = []byte("window.__appData")

type ashbyAppData struct {
	Organization *struct {
		Name string `json:"name"`
	} `json:"organization"`
	JobBoard *struct {
		JobPostings []ashbyJobPosting `json:"jobPostings"`
	} `json:"jobBoard"`
}

type ashbyJobPosting struct {
	ID             string `json:"id"`
	JobID          string `json:"jobId"`
	Title          string `json:"title"`
	LocationName   string `json:"locationName"`
	WorkplaceType  string `json:"workplaceType"`
	EmploymentType string `json:"employmentType"`
	TeamName       string `json:"teamName"`
	DepartmentName string `json:"departmentName"`
	IsListed       bool   `json:"isListed"`
}

// ashbyJobs reads the board state Ashby embeds as window.__appData.
func ashbyJobs(body []byte, base *url.URL, domain string) []JobCandidate {
	dataJSON, err := extractAshbyAppData(body)
	if err != nil {
		return nil
	}
	var app ashbyAppData
	if err := json.Unmarshal(dataJSON, &app); err != nil {
		return nil
	}
	if app.JobBoard == nil || len(app.JobBoard.JobPostings) == 0 {
		return nil
	}

	company := ""
	if app.Organization != nil {
		company = strings.TrimSpace(app.Organization.Name)
	}
	boardURL := ashbyBoardURL(base)

	var jobs []JobCandidate
	for _, posting := range app.JobBoard.JobPostings {
		if !posting.IsListed {
			continue
		}
		jobID := posting.JobID
		if jobID == "" {
			jobID = posting.ID
		}
		if jobID == "" || posting.Title == "" {
			continue
		}

		loc := strings.TrimSpace(posting.LocationName)
		if posting.WorkplaceType != "" && !strings.Contains(strings.ToLower(loc), strings.ToLower(posting.WorkplaceType)) {
			if loc == "" {
				loc = posting.WorkplaceType
			} else {
				loc = loc + " (" + posting.WorkplaceType + ")"
			}
		}

		jobs = append(jobs, JobCandidate{
			Title: posting.Title,
			Link:  boardURL + "/" + jobID,
			RawContext: joinWith(" - ", posting.Title, company, posting.DepartmentName,
				posting.TeamName, posting.EmploymentType, loc),
			SourceDomain: domain,
			Location:     loc,
			Origin:       OriginATS,
		})
	}
	return jobs
}

func ashbyBoardURL(base *url.URL) string {
	u := url.URL{Scheme: base.Scheme, Host: base.Host}
	segs := strings.Split(strings.Trim(base.Path, "/"), "/")
	if len(segs) > 0 && segs[0] != "" {
		u.Path = "/" + segs[0]
	}
	return strings.TrimSuffix(u.String(), "/")
}

func extractAshbyAppData(body []byte) ([]byte, error) {
	idx := bytes.Index(body, ashbyMarker)
	if idx == -1 {
		return nil, errors.New("appdata marker not found")
	}
	start := bytes.IndexByte(body[idx+len(ashbyMarker):], '{')
	if start == -1 {
		return nil, errors.New("appdata json start not found")
	}
	start += idx + len(ashbyMarker)

	return extractJSONObject(body, start)
}

func extractJSONObject(body []byte, start int) ([]byte, error) {
	depth := 0
	inString := false
	escape := false

	for i := start; i < len(body); i++ {
		c := body[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if c == '\\' {
				escape = true
				continue
			}
			if c == '"' {
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return body[start : i+1], nil
			}
		}
	}

	return nil, errors.New("appdata json end not found")
}
