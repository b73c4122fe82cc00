package output

import (
	"time"

	"repoclone/internal/run"
)

// Event types, in the order a run emits them.
const (
	EventRunStarted    = "run.started"
	EventRepoPresent   = "repo.present"
	EventClonePlanned  = "clone.planned"
	EventCloneFinished = "clone.finished"
	EventRunFinished   = "run.finished"
)

// Event is a lifecycle record of a run. Every sink receives the same stream;
// NDJSON sinks write one Event per line.
//
//   - run.started: Owner, Dir, Remote, Present, Missing, DryRun
//   - repo.present: Repo (already on disk, skipped)
//   - clone.planned: Repo (dry run only)
//   - clone.finished: Repo, Status, Message, DurationMS
//   - run.finished: Owner, Result, DryRun
//
// Status is written as the run.Status value, upper case: "SUCCEEDED" or "FAILED".
type Event struct {
	Type       string      `json:"type"`
	Owner      string      `json:"owner,omitempty"`
	Dir        string      `json:"dir,omitempty"`
	Repo       string      `json:"repo,omitempty"`
	Status     run.Status  `json:"status,omitempty"`
	Message    string      `json:"message,omitempty"`
	DurationMS int64       `json:"duration_ms,omitempty"`
	Remote     int         `json:"remote,omitempty"`
	Present    int         `json:"present,omitempty"`
	Missing    int         `json:"missing,omitempty"`
	DryRun     bool        `json:"dry_run,omitempty"`
	Result     *run.Result `json:"result,omitempty"`
}

// EventForJob converts a finished job into a clone.finished event.
func EventForJob(j run.Job) Event {
	return Event{
		Type:       EventCloneFinished,
		Repo:       j.Name,
		Status:     j.Status,
		Message:    j.Message,
		DurationMS: j.Duration.Milliseconds(),
	}
}

func (e Event) duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}
