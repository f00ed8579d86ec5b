package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// JSONSink writes the report as indented JSON to a file, or to its writer when no
// path is set.
type JSONSink struct {
	path string
	w    io.Writer
}

func NewJSONSink(path string) *JSONSink {
	if path == "" || path == "-" {
		return &JSONSink{w: os.Stdout}
	}
	return &JSONSink{path: path}
}

func NewJSONWriterSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Name() string {
	return "json"
}

func (s *JSONSink) Deliver(_ context.Context, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if s.path == "" {
		_, err := s.w.Write(data)
		return err
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadJSON loads a report written by JSONSink.
func ReadJSON(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}

// LogNotifier stands in for the email notifier: it logs the summary and every
// accepted job.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string {
	return "notifier"
}

func (n *LogNotifier) Deliver(_ context.Context, r Report) error {
	n.logger.Info("crawl report", "summary", r.Summary())
	for _, job := range r.Accepted {
		n.logger.Info("qualified job",
			"title", job.Title,
			"link", job.Link,
			"domain", job.SourceDomain,
			"score", job.Score,
		)
	}
	return nil
}
