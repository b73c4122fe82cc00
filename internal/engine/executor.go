package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"repoclone/internal/errkind"
	"repoclone/internal/run"
)

// Cloner is the clone primitive: it writes <targetDir>/<name> from the
// owner's repository, limited to depth commits when depth > 0.
type Cloner interface {
	Clone(ctx context.Context, owner, name, targetDir string, depth int) error
}

// Executor runs clone jobs with at most a fixed number in flight.
type Executor struct {
	cloner      Cloner
	concurrency int
}

func NewExecutor(c Cloner, concurrency int) (*Executor, error) {
	if c == nil {
		return nil, errors.New("cloner is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Executor{cloner: c, concurrency: concurrency}, nil
}

// Execute streams each job once it reaches a terminal status.
//
// Channel semantics:
//   - Jobs are admitted in input order; admission waits only for a free slot.
//   - Exactly one job is sent per input job, in completion order.
//   - The channel is closed after every job has finished.
//   - A failed clone is recorded on its Job and never stops the others.
//
// The caller must drain the channel; a worker keeps its slot until its job
// has been received.
func (x *Executor) Execute(ctx context.Context, owner, baseDir string, jobs []run.Job) <-chan run.Job {
	out := make(chan run.Job)

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(x.concurrency)
		for _, job := range jobs {
			// Go blocks until a slot is free.
			g.Go(func() error {
				out <- x.runJob(ctx, owner, baseDir, job)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

func (x *Executor) runJob(ctx context.Context, owner, baseDir string, job run.Job) run.Job {
	job.Status = run.StatusRunning
	start := time.Now()
	err := x.cloner.Clone(ctx, owner, job.Name, baseDir, job.Depth)
	job.Duration = time.Since(start)

	if err != nil {
		job.Status = run.StatusFailed
		job.Err = err
		job.Message = jobMessage(err)
		return job
	}
	job.Status = run.StatusSucceeded
	return job
}

// jobMessage drops the operation prefix; the job already names the repository.
func jobMessage(err error) string {
	var e *errkind.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
