package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/urlutil"
)

// FileSource reads domains from a text file, one per line:
//
//	domain[,valid|invalid[,RFC3339 last scraped]]
//
// Blank lines and lines starting with # are ignored. File order is crawl order.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) ListDomains(ctx context.Context) ([]core.DomainRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open domains file: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

func Parse(ctx context.Context, r io.Reader) ([]core.DomainRecord, error) {
	var (
		out  []core.DomainRecord
		seen = map[string]struct{}{}
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rec, ok, err := parseFields(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[rec.Domain]; dup {
			continue
		}
		seen[rec.Domain] = struct{}{}
		rec.Priority = len(out)
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read domains: %w", err)
	}
	return out, nil
}

func parseFields(fields []string) (core.DomainRecord, bool, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) == 0 || strings.EqualFold(fields[0], "domain") {
		return core.DomainRecord{}, false, nil
	}
	domain := urlutil.NormalizeDomain(fields[0])
	if domain == "" {
		return core.DomainRecord{}, false, nil
	}
	rec := core.DomainRecord{Domain: domain, KnownValid: core.ValidityUnknown}
	if len(fields) > 1 {
		rec.KnownValid = core.ParseValidity(strings.ToLower(fields[1]))
	}
	if len(fields) > 2 && fields[2] != "" {
		ts, err := time.Parse(time.RFC3339, fields[2])
		if err != nil {
			return core.DomainRecord{}, false, fmt.Errorf("last scraped %q: %w", fields[2], err)
		}
		rec.LastScrapedAt = &ts
	}
	return rec, true, nil
}
