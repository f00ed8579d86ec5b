// Package sheet reads the domain list from, and writes run results to, an xlsx workbook.
//
// The workbook has a "Domains" sheet (A domain, B status, C last scraped) and a
// "Jobs" sheet that every delivered run appends to.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/report"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
	"github.com/xuri/excelize/v2"
)

const (
	DomainsSheet = "Domains"
	JobsSheet    = "Jobs"
)

var (
	domainsHeader = []any{"Domain", "Status", "Last Scraped"}
	jobsHeader    = []any{"Run ID", "Title", "Link", "Domain", "Score", "Matched At"}
)

type Source struct {
	Path string
}

func NewSource(path string) *Source {
	return &Source{Path: path}
}

func (s *Source) ListDomains(ctx context.Context) ([]core.DomainRecord, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(DomainsSheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet: %w", DomainsSheet, err)
	}

	var out []core.DomainRecord
	seen := map[string]struct{}{}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "domain") {
			continue
		}
		domain := urlutil.NormalizeDomain(row[0])
		if domain == "" {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}

		rec := core.DomainRecord{Domain: domain, KnownValid: core.ValidityUnknown, Priority: len(out)}
		if len(row) > 1 {
			rec.KnownValid = core.ParseValidity(strings.ToLower(strings.TrimSpace(row[1])))
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			ts, err := time.Parse(time.RFC3339, strings.TrimSpace(row[2]))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: last scraped: %w", DomainsSheet, i+1, err)
			}
			rec.LastScrapedAt = &ts
		}
		out = append(out, rec)
	}
	return out, nil
}

// Writer appends accepted jobs to the Jobs sheet and writes each domain's status back
// to the Domains sheet. It creates the workbook when it does not exist.
type Writer struct {
	Path string
	mu   sync.Mutex
}

func NewWriter(path string) *Writer {
	return &Writer{Path: path}
}

func (w *Writer) Name() string {
	return "sheet"
}

func (w *Writer) Deliver(_ context.Context, r report.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := openOrCreate(w.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ensureSheet(f, DomainsSheet, domainsHeader); err != nil {
		return err
	}
	if err := ensureSheet(f, JobsSheet, jobsHeader); err != nil {
		return err
	}
	if err := writeDomains(f, r.Domains); err != nil {
		return err
	}
	if err := appendJobs(f, r); err != nil {
		return err
	}
	if err := f.SaveAs(w.Path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func openOrCreate(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		return f, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat workbook: %w", err)
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", DomainsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("init workbook: %w", err)
	}
	return f, nil
}

func ensureSheet(f *excelize.File, name string, header []any) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", name, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	first, err := f.GetCellValue(name, "A1")
	if err != nil {
		return err
	}
	if first == "" {
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", name, err)
		}
	}
	return nil
}

func writeDomains(f *excelize.File, domains []core.DomainRecord) error {
	rows, err := f.GetRows(DomainsSheet)
	if err != nil {
		return fmt.Errorf("read %s sheet: %w", DomainsSheet, err)
	}
	rowOf := make(map[string]int, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		rowOf[urlutil.NormalizeDomain(row[0])] = i + 1
	}
	next := len(rows) + 1

	for _, d := range domains {
		row, ok := rowOf[d.Domain]
		if !ok {
			row = next
			next++
			rowOf[d.Domain] = row
		}
		scraped := ""
		if d.LastScrapedAt != nil {
			scraped = d.LastScrapedAt.UTC().Format(time.RFC3339)
		}
		values := []any{d.Domain, string(d.KnownValid), scraped}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DomainsSheet, cell, &values); err != nil {
			return fmt.Errorf("write domain %s: %w", d.Domain, err)
		}
	}
	return nil
}

func appendJobs(f *excelize.File, r report.Report) error {
	rows, err := f.GetRows(JobsSheet)
	if err != nil {
		return fmt.Errorf("read %s sheet: %w", JobsSheet, err)
	}
	next := len(rows) + 1
	for _, job := range r.Accepted {
		values := []any{
			r.RunID.String(),
			job.Title,
			job.Link,
			job.SourceDomain,
			job.Score,
			job.MatchedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(JobsSheet, cell, &values); err != nil {
			return fmt.Errorf("append job %s: %w", job.Link, err)
		}
		next++
	}
	return nil
}
