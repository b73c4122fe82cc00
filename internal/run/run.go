package run

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Job is one clone of a repository that is not present locally.
//
// A Job is created in StatusPending before execution and is owned by exactly
// one worker from dequeue until it reaches a terminal status.
type Job struct {
	Name string `json:"name"`
	// Depth limits history to that many commits. 0 means full history.
	Depth    int           `json:"depth,omitempty"`
	Status   Status        `json:"status"`
	Err      error         `json:"-"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// NewJobs creates one pending job per name, in order.
func NewJobs(names []string, depth int) []Job {
	jobs := make([]Job, 0, len(names))
	for _, n := range names {
		jobs = append(jobs, Job{Name: n, Depth: depth, Status: StatusPending})
	}
	return jobs
}

func (j Job) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Result is the aggregate outcome of one run.
type Result struct {
	TotalRemote    int `json:"total_remote"`
	AlreadyPresent int `json:"already_present"`
	Attempted      int `json:"attempted"`
	Succeeded      int `json:"succeeded"`
	Failed         int `json:"failed"`
}

// Summarize reduces the terminal jobs of a run into a Result.
// Jobs that did not reach a terminal status count as failed.
func Summarize(totalRemote, alreadyPresent int, jobs []Job) Result {
	res := Result{
		TotalRemote:    totalRemote,
		AlreadyPresent: alreadyPresent,
		Attempted:      len(jobs),
	}
	for _, j := range jobs {
		if j.Status == StatusSucceeded {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}

// Check verifies the accounting invariants of a Result.
func (r Result) Check() error {
	if r.AlreadyPresent+r.Attempted != r.TotalRemote {
		return fmt.Errorf("already present (%d) + attempted (%d) != total remote (%d)", r.AlreadyPresent, r.Attempted, r.TotalRemote)
	}
	if r.Succeeded+r.Failed != r.Attempted {
		return fmt.Errorf("succeeded (%d) + failed (%d) != attempted (%d)", r.Succeeded, r.Failed, r.Attempted)
	}
	return nil
}
