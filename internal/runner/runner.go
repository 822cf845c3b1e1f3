// Package runner executes worker contexts in parallel and reports their
// progress.
package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProgressStatus is the state of one worker.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent reports a worker's state change.
type ProgressEvent struct {
	Worker  int
	Status  ProgressStatus
	Message string
}

// Job is one independent unit of work, typically a *worker.Context.
type Job interface {
	ID() int
	Run(ctx context.Context) error
}

// Run starts one goroutine per job and waits for all of them. It uses
// errgroup.WithContext so that the first failure cancels the context the
// remaining jobs see; they stop at their next cancellation check.
//
// onProgress is called synchronously from each goroutine; it may be nil.
// The returned error is the first non-nil job error.
func Run[J Job](ctx context.Context, jobs []J, onProgress func(ProgressEvent)) error {
	emit := func(ev ProgressEvent) {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		emit(ProgressEvent{Worker: job.ID(), Status: ProgressPending})

		g.Go(func() error {
			emit(ProgressEvent{Worker: job.ID(), Status: ProgressWorking})
			if err := job.Run(gctx); err != nil {
				emit(ProgressEvent{Worker: job.ID(), Status: ProgressFailed, Message: err.Error()})
				return err // cancels gctx for the other jobs
			}
			emit(ProgressEvent{Worker: job.ID(), Status: ProgressComplete})
			return nil
		})
	}
	return g.Wait()
}
