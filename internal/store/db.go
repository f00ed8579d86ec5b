package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/baxromumarov/fresher-hunter/internal/core"
	"github.com/baxromumarov/fresher-hunter/internal/report"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies the schema at schemaPath, or the embedded schema when the
// path is empty. The schema is idempotent.
func (s *Store) RunMigrations(ctx context.Context, schemaPath string) error {
	content := schemaSQL
	if schemaPath != "" {
		raw, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		content = string(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, content); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

func clampLimit(limit int, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ListDomains returns the domain list in crawl order.
func (s *Store) ListDomains(ctx context.Context) ([]core.DomainRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT domain, known_valid, last_scraped_at, priority
FROM domains
ORDER BY priority ASC, domain ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var out []core.DomainRecord
	for rows.Next() {
		var (
			rec         core.DomainRecord
			status      string
			lastScraped sql.NullTime
		)
		if err := rows.Scan(&rec.Domain, &status, &lastScraped, &rec.Priority); err != nil {
			return nil, err
		}
		rec.KnownValid = core.ParseValidity(status)
		if lastScraped.Valid {
			t := lastScraped.Time
			rec.LastScrapedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpsertDomains inserts new domains and refreshes the status of known ones. Priority
// is only set on insert so a reordered list is managed by whoever seeds the table.
func (s *Store) UpsertDomains(ctx context.Context, domains []core.DomainRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertDomains(ctx, tx, domains); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertDomains(ctx context.Context, tx *sql.Tx, domains []core.DomainRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO domains (domain, known_valid, last_scraped_at, priority)
VALUES ($1, $2, $3, $4)
ON CONFLICT (domain) DO UPDATE SET
    known_valid = EXCLUDED.known_valid,
    last_scraped_at = COALESCE(EXCLUDED.last_scraped_at, domains.last_scraped_at),
    updated_at = NOW()
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range domains {
		if _, err := stmt.ExecContext(ctx, d.Domain, string(d.KnownValid), d.LastScrapedAt, d.Priority); err != nil {
			return fmt.Errorf("upsert domain %s: %w", d.Domain, err)
		}
	}
	return nil
}

func (s *Store) Name() string {
	return "postgres"
}

// Deliver persists the run, its qualified jobs and the updated domain statuses in
// one transaction.
func (s *Store) Deliver(ctx context.Context, r report.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, finished_at, stop_reason, domains_attempted, domains_valid, total_candidates_seen, duplicates_skipped, report)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, r.RunID.String(), r.StartedAt, r.FinishedAt, string(r.StopReason), r.DomainsAttempted, r.DomainsValid,
		r.TotalCandidatesSeen, r.DuplicatesSkipped, payload)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, job := range r.Accepted {
		_, err := tx.ExecContext(ctx, `
INSERT INTO qualified_jobs (run_id, title, link, source_domain, score, matched_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id, link) DO NOTHING
`, r.RunID.String(), job.Title, job.Link, job.SourceDomain, job.Score, job.MatchedAt)
		if err != nil {
			return fmt.Errorf("insert job %s: %w", job.Link, err)
		}
	}

	if err := upsertDomains(ctx, tx, r.Domains); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestReport returns the most recently finished run, or report.ErrNoReport.
func (s *Store) LatestReport(ctx context.Context) (report.Report, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
SELECT report FROM runs ORDER BY finished_at DESC LIMIT 1
`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, report.ErrNoReport
	}
	if err != nil {
		return report.Report{}, err
	}

	var r report.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return report.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

type RunSummary struct {
	ID               uuid.UUID       `json:"id"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	StopReason       core.StopReason `json:"stop_reason"`
	DomainsAttempted int             `json:"domains_attempted"`
	DomainsValid     int             `json:"domains_valid"`
	Accepted         int             `json:"accepted"`
}

func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]RunSummary, error) {
	limit = clampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.started_at, r.finished_at, r.stop_reason, r.domains_attempted, r.domains_valid,
       (SELECT COUNT(*) FROM qualified_jobs j WHERE j.run_id = r.id)
FROM runs r
ORDER BY r.finished_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			rs     RunSummary
			id     string
			reason string
		)
		if err := rows.Scan(&id, &rs.StartedAt, &rs.FinishedAt, &reason, &rs.DomainsAttempted, &rs.DomainsValid, &rs.Accepted); err != nil {
			return nil, err
		}
		if rs.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		rs.StopReason = core.StopReason(reason)
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// DeleteOldRuns removes runs (and, by cascade, their jobs) finished before now-olderThan.
func (s *Store) DeleteOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `
DELETE FROM runs
WHERE finished_at < $1
`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
