package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"repoclone/internal/run"
)

// Summary is the human-readable end-of-run report.
type Summary struct {
	Owner  string
	Result run.Result
	DryRun bool
	// Missing is the number of repositories a dry run would clone.
	Missing int
	// Failed lists the clone.finished events of failed jobs, in completion order.
	Failed []Event
}

// WriteText renders the summary block:
//
//	Summary for octocat:
//	  Found:            3
//	  Already present:  1
//	  Cloned:           2
//	  Failed:           0
func (s Summary) WriteText(w io.Writer) error {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if s.DryRun {
		_, err := fmt.Fprintf(w, "\n%s\n  Found:            %d\n  Already present:  %d\n  Would clone:      %d\n",
			bold("Dry run for "+s.Owner+":"), s.Result.TotalRemote, s.Result.AlreadyPresent, s.Missing)
		return err
	}

	failed := fmt.Sprint(s.Result.Failed)
	if s.Result.Failed > 0 {
		failed = red(failed)
	}
	if _, err := fmt.Fprintf(w, "\n%s\n  Found:            %d\n  Already present:  %d\n  Cloned:           %d\n  Failed:           %s\n",
		bold("Summary for "+s.Owner+":"), s.Result.TotalRemote, s.Result.AlreadyPresent, s.Result.Succeeded, failed); err != nil {
		return err
	}

	if len(s.Failed) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nFailed repositories:"); err != nil {
		return err
	}
	for _, e := range s.Failed {
		line := "  - " + e.Repo
		if e.Message != "" {
			line += ": " + e.Message
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
