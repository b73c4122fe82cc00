package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"

	"repoclone/internal/run"
)

type ConsoleSink struct {
	writer io.Writer
	format string // "text", "ndjson"
	mu     sync.Mutex

	// text mode state for the final summary
	owner   string
	dryRun  bool
	missing int
	failed  []Event
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "ndjson":
		if err := json.NewEncoder(s.writer).Encode(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	case "text":
		if err := s.writeText(e); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) writeText(e Event) error {
	switch e.Type {
	case EventRunStarted:
		s.owner = e.Owner
		s.dryRun = e.DryRun
		s.missing = e.Missing
		return nil
	case EventRepoPresent:
		// Only a dry run lists what it skips; a real run keeps the console
		// to clone outcomes.
		if !s.dryRun {
			return nil
		}
		_, err := fmt.Fprintf(s.writer, "%s %s\n", color.New(color.Faint).Sprint("[PRESENT]"), e.Repo)
		return err
	case EventClonePlanned:
		_, err := fmt.Fprintf(s.writer, "%s %s\n", color.CyanString("[PLANNED]"), e.Repo)
		return err
	case EventCloneFinished:
		if e.Status == run.StatusSucceeded {
			_, err := fmt.Fprintf(s.writer, "%s %s (%s)\n", color.GreenString("[CLONED]"), e.Repo, e.duration().Round(100*time.Millisecond))
			return err
		}
		s.failed = append(s.failed, e)
		line := color.RedString("[FAILED]") + " " + e.Repo
		if e.Message != "" {
			line += " - " + e.Message
		}
		_, err := fmt.Fprintln(s.writer, line)
		return err
	case EventRunFinished:
		if e.Result == nil {
			return nil
		}
		owner := e.Owner
		if owner == "" {
			owner = s.owner
		}
		return Summary{
			Owner:   owner,
			Result:  *e.Result,
			DryRun:  s.dryRun || e.DryRun,
			Missing: s.missing,
			Failed:  s.failed,
		}.WriteText(s.writer)
	default:
		return nil
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}
