package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/baxromumarov/fresher-hunter/internal/core"
)

func TestParse(t *testing.T) {
	input := `# companies
domain,status,last_scraped
acme.example
https://www.Beta.example/about,valid,2026-10-15T06:00:00Z

gamma.example , INVALID
acme.example,valid
`
	recs, err := Parse(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	want := []struct {
		domain string
		valid  core.Validity
	}{
		{"acme.example", core.ValidityUnknown},
		{"www.beta.example", core.ValidityValid},
		{"gamma.example", core.ValidityInvalid},
	}
	for i, w := range want {
		if recs[i].Domain != w.domain || recs[i].KnownValid != w.valid || recs[i].Priority != i {
			t.Errorf("record %d = %+v, want %s/%s", i, recs[i], w.domain, w.valid)
		}
	}
	if recs[1].LastScrapedAt == nil || recs[1].LastScrapedAt.Year() != 2026 {
		t.Fatalf("last scraped = %v", recs[1].LastScrapedAt)
	}
}

func TestParseRejectsBadTimestamp(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("acme.example,valid,yesterday\n"))
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("err = %v, want line-numbered error", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	if err := os.WriteFile(path, []byte("a.example\nb.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := NewFileSource(path).ListDomains(context.Background())
	if err != nil {
		t.Fatalf("ListDomains: %v", err)
	}
	if len(recs) != 2 || recs[0].Domain != "a.example" {
		t.Fatalf("records = %+v", recs)
	}
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope")).ListDomains(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
