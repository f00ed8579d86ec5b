package scraper

import (
	"strings"
	"testing"
)

func extract(t *testing.T, url, contentType, body string) []JobCandidate {
	t.Helper()
	return NewExtractor(nil).Extract(Page{
		URL:         url,
		Domain:      "acme.example",
		ContentType: contentType,
		Body:        []byte(body),
	})
}

func titles(jobs []JobCandidate) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Title)
	}
	return out
}

func TestExtractGenericAnchors(t *testing.T) {
	body := `<html><body>
<a href="/careers">Careers</a>
<ul>
  <li class="job"><a href="/jobs/101">Software Engineer Intern</a> <span class="location">Remote</span> Python, SQL</li>
  <li class="job"><a href="/jobs/102">Junior Data Analyst</a></li>
  <li class="job"><a href="/jobs/101?utm_source=newsletter">Software Engineer Intern</a></li>
  <li class="job"><a href="/jobs/42/junior-rust">Junior Rustacean</a></li>
</ul>
<a href="mailto:jobs@acme.example">Engineer contact</a>
<a href="#top">Back to engineers</a>
<a href="/blog/life">Read about what life is like for engineers and designers on the team at Acme these days</a>
</body></html>`

	jobs := extract(t, "https://acme.example/careers", "text/html", body)
	want := []string{"Software Engineer Intern", "Junior Data Analyst", "Junior Rustacean"}
	got := titles(jobs)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("titles = %v, want %v", got, want)
	}

	first := jobs[0]
	if first.Link != "https://acme.example/jobs/101" {
		t.Fatalf("link = %q", first.Link)
	}
	if first.Origin != OriginAnchor || first.SourceDomain != "acme.example" {
		t.Fatalf("origin/domain = %s/%s", first.Origin, first.SourceDomain)
	}
	if !strings.Contains(first.RawContext, "Python, SQL") {
		t.Fatalf("context = %q, want the list item text", first.RawContext)
	}
	if first.Location != "Remote" {
		t.Fatalf("location = %q", first.Location)
	}
}

func TestExtractJSONLD(t *testing.T) {
	body := `<html><head><script type="application/ld+json">
[{"@type":"JobPosting","title":"Graduate Software Engineer","url":"/jobs/g1",
  "description":"<p>Work with <b>Go</b> and Kubernetes.</p>",
  "jobLocation":{"address":{"addressLocality":"Berlin","addressCountry":"DE"}}},
 {"@type":"JobPosting","title":"Associate Analyst"},
 {"@type":"JobPosting","title":"Junior Designer"}]
</script></head><body><a href="/jobs/x">Senior Engineer</a></body></html>`

	jobs := extract(t, "https://acme.example/careers", "text/html", body)
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs (%v), want only the posting with a url", len(jobs), titles(jobs))
	}
	if jobs[0].Link != "https://acme.example/jobs/g1" || jobs[0].Origin != OriginJSONLD {
		t.Fatalf("first job = %+v", jobs[0])
	}
	if !strings.Contains(jobs[0].RawContext, "Work with Go and Kubernetes.") {
		t.Fatalf("context = %q", jobs[0].RawContext)
	}
	if jobs[0].Location != "Berlin, DE" {
		t.Fatalf("location = %q", jobs[0].Location)
	}
}

func TestExtractJSONLDWithoutURLs(t *testing.T) {
	body := `<html><head><script type="application/ld+json">
[{"@type":"JobPosting","title":"Software Engineer Intern"},
 {"@type":"JobPosting","title":"Backend Intern","url":"javascript:void(0)"}]
</script></head><body><p>No listings here.</p></body></html>`

	jobs := extract(t, "https://a.example/careers", "text/html", body)
	if len(jobs) != 0 {
		t.Fatalf("got %d jobs %+v, want none", len(jobs), jobs)
	}
}

func TestExtractATSBoards(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		ct    string
		body  string
		title string
		link  string
		loc   string
	}{
		{
			name:  "greenhouse",
			url:   "https://boards.greenhouse.io/acme",
			ct:    "text/html",
			body:  `<div class="opening"><a href="/acme/jobs/123">Backend Engineer Intern</a><span class="location">Lisbon</span></div>`,
			title: "Backend Engineer Intern",
			link:  "https://boards.greenhouse.io/acme/jobs/123",
			loc:   "Lisbon",
		},
		{
			name: "lever html",
			url:  "https://jobs.lever.co/acme",
			ct:   "text/html",
			body: `<div class="posting"><a class="posting-title" href="https://jobs.lever.co/acme/abc">
<h5 data-qa="posting-name">Junior QA Engineer</h5>
<span class="sort-by-location">Remote</span></a></div>`,
			title: "Junior QA Engineer",
			link:  "https://jobs.lever.co/acme/abc",
			loc:   "Remote",
		},
		{
			name:  "lever json",
			url:   "https://jobs.lever.co/acme?mode=json",
			ct:    "application/json",
			body:  `[{"id":"1","text":"Data Intern","hostedUrl":"https://jobs.lever.co/acme/1","categories":{"location":"Paris"}}]`,
			title: "Data Intern",
			link:  "https://jobs.lever.co/acme/1",
			loc:   "Paris",
		},
		{
			name: "ashby",
			url:  "https://jobs.ashbyhq.com/acme",
			ct:   "text/html",
			body: `<script>window.__appData = {"organization":{"name":"Acme"},"jobBoard":{"jobPostings":[
{"id":"p1","jobId":"j1","title":"Graduate Engineer","locationName":"London","workplaceType":"Hybrid","isListed":true},
{"id":"p2","jobId":"j2","title":"Hidden","isListed":false}]}};</script>`,
			title: "Graduate Engineer",
			link:  "https://jobs.ashbyhq.com/acme/j1",
			loc:   "London (Hybrid)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := extract(t, tt.url, tt.ct, tt.body)
			if len(jobs) != 1 {
				t.Fatalf("got %d jobs (%v), want 1", len(jobs), titles(jobs))
			}
			j := jobs[0]
			if j.Title != tt.title || j.Link != tt.link || j.Location != tt.loc {
				t.Fatalf("job = %+v", j)
			}
			if j.Origin != OriginATS {
				t.Fatalf("origin = %s", j.Origin)
			}
		})
	}
}

func TestExtractFeed(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>Acme Jobs</title>
<item><title>Junior Backend Engineer</title><link>https://acme.example/jobs/1</link>
<description>&lt;p&gt;Go, Postgres&lt;/p&gt;</description><category>Engineering</category></item>
<item><title>Junior Backend Engineer</title><link>https://acme.example/jobs/1</link></item>
</channel></rss>`
	jobs := extract(t, "https://acme.example/jobs.rss", "application/rss+xml", body)
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1 after dedup", len(jobs))
	}
	if jobs[0].Origin != OriginFeed || !strings.Contains(jobs[0].RawContext, "Go, Postgres") {
		t.Fatalf("job = %+v", jobs[0])
	}
}

func TestExtractNeverFails(t *testing.T) {
	for _, body := range []string{"", "\x00\x01garbage", "{not json", "<html><body><p>No jobs</p></body></html>"} {
		if jobs := extract(t, "https://acme.example/", "text/html", body); len(jobs) != 0 {
			t.Fatalf("body %q produced %v", body, titles(jobs))
		}
	}
	if jobs := NewExtractor(nil).Extract(Page{URL: "::bad"}); jobs != nil {
		t.Fatalf("bad url produced %v", jobs)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := map[string]string{
		"  plain   text ":                        "plain text",
		"<p>Hello <b>world</b></p><p>again</p>":  "Hello world again",
		"<div>a<script>alert(1)</script>b</div>": "ab",
		"Fish &amp; chips":                       "Fish & chips",
	}
	for in, want := range tests {
		if got := NormalizeText(in); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}
