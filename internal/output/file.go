package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"repoclone/internal/run"
)

// Report is the aggregate document written by a json FileSink.
type Report struct {
	Owner   string      `json:"owner"`
	Dir     string      `json:"dir,omitempty"`
	DryRun  bool        `json:"dry_run,omitempty"`
	Result  *run.Result `json:"result,omitempty"`
	Present []string    `json:"present"`
	Planned []string    `json:"planned,omitempty"`
	Clones  []Event     `json:"clones"`
}

// FileSink writes run output to a file.
//
// Formats:
//   - json: aggregates events and writes a single Report on Close
//   - ndjson: streams Event values (one JSON object per line)
type FileSink struct {
	path   string
	format string
	file   *os.File
	mu     sync.Mutex
	report Report
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}

	if format == "" {
		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".json":
			format = "json"
		case ".ndjson", ".jsonl":
			format = "ndjson"
		default:
			return nil, fmt.Errorf("cannot infer output format from file extension %q", ext)
		}
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &FileSink{
		path:   path,
		format: format,
		file:   f,
		report: Report{Present: []string{}, Clones: []Event{}},
	}, nil
}

func (s *FileSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "ndjson" {
		return json.NewEncoder(s.file).Encode(e)
	}

	switch e.Type {
	case EventRunStarted:
		s.report.Owner = e.Owner
		s.report.Dir = e.Dir
		s.report.DryRun = e.DryRun
	case EventRepoPresent:
		s.report.Present = append(s.report.Present, e.Repo)
	case EventClonePlanned:
		s.report.Planned = append(s.report.Planned, e.Repo)
	case EventCloneFinished:
		e.Type = ""
		s.report.Clones = append(s.report.Clones, e)
	case EventRunFinished:
		s.report.Result = e.Result
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format == "json" {
		encoder := json.NewEncoder(s.file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(s.report)
	}

	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
