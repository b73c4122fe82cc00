package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"repoclone/internal/config"
	"repoclone/internal/errkind"
	"repoclone/internal/metrics"
	"repoclone/internal/output"
	"repoclone/internal/run"
)

// Engine runs the clone pipeline: list, diff, clone, report.
type Engine struct {
	Lister Lister
	Cloner Cloner

	// Out receives lifecycle events. Nil discards them.
	Out *output.Manager
	// Metrics records clone outcomes. Nil records nothing.
	Metrics *metrics.Recorder
	// Progress receives human progress lines (typically stderr). Nil discards them.
	Progress io.Writer
}

func (e *Engine) progressf(format string, args ...any) {
	if e.Progress != nil {
		fmt.Fprintf(e.Progress, format+"\n", args...)
	}
}

// Run lists the owner's repositories, clones the ones missing under the
// configured directory and returns the run summary.
//
// The returned error is always fatal: failed clones only show up in the
// Result counts.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) (run.Result, error) {
	if e.Lister == nil {
		return run.Result{}, errors.New("engine: lister is nil")
	}
	owner := cfg.Targeting.Owner

	baseDir := cfg.Targeting.Dir
	if baseDir == "" {
		baseDir = "."
	}
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return run.Result{}, errkind.New(errkind.KindConfig, "resolve --dir", err)
	}

	e.progressf("Listing repositories of %s...", owner)
	names, err := e.Lister.ListRepos(ctx, owner, cfg.Targeting.Limit)
	if err != nil {
		var classified *errkind.Error
		if !errors.As(err, &classified) {
			err = errkind.New(errkind.KindForgeUnavailable, "list repositories", err)
		}
		return run.Result{}, err
	}

	present, missing := Partition(names, baseDir)
	total := len(present) + len(missing)
	e.progressf("Found %d repositories (%d already present, %d to clone).", total, len(present), len(missing))

	e.emit(output.Event{
		Type:    output.EventRunStarted,
		Owner:   owner,
		Dir:     baseDir,
		Remote:  total,
		Present: len(present),
		Missing: len(missing),
		DryRun:  cfg.Targeting.DryRun,
	})
	for _, name := range present {
		e.emit(output.Event{Type: output.EventRepoPresent, Repo: name})
	}

	if cfg.Targeting.DryRun {
		for _, name := range missing {
			e.emit(output.Event{Type: output.EventClonePlanned, Repo: name})
		}
		res := run.Result{TotalRemote: total, AlreadyPresent: len(present)}
		e.emit(output.Event{Type: output.EventRunFinished, Owner: owner, Missing: len(missing), DryRun: true, Result: &res})
		return res, nil
	}

	done, err := e.clone(ctx, owner, baseDir, run.NewJobs(missing, cfg.Clone.Depth), cfg.Runtime.Concurrency)
	if err != nil {
		return run.Result{}, err
	}

	res := run.Summarize(total, len(present), done)
	if err := res.Check(); err != nil {
		return res, fmt.Errorf("run accounting: %w", err)
	}
	e.Metrics.ObserveResult(res, time.Now())
	e.emit(output.Event{Type: output.EventRunFinished, Owner: owner, Result: &res})
	return res, nil
}

func (e *Engine) clone(ctx context.Context, owner, baseDir string, jobs []run.Job, concurrency int) ([]run.Job, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	x, err := NewExecutor(e.Cloner, concurrency)
	if err != nil {
		return nil, errkind.New(errkind.KindConfig, "create executor", err)
	}

	e.progressf("Cloning %d repositories into %s (concurrency %d)...", len(jobs), baseDir, min(concurrency, len(jobs)))
	done := make([]run.Job, 0, len(jobs))
	for job := range x.Execute(ctx, owner, baseDir, jobs) {
		e.Metrics.ObserveJob(job)
		e.emit(output.EventForJob(job))
		done = append(done, job)
	}
	return done, nil
}

func (e *Engine) emit(ev output.Event) {
	if err := e.Out.Write(ev); err != nil {
		e.progressf("Warning: %v", err)
	}
}
