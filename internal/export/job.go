// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package export

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/splitcap/internal/domain"
)

// Job is one asynchronous render-to-file operation.
type Job struct {
	ID     string
	Kind   domain.JobKind
	Source string
	Output string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	status   domain.JobStatus
	err      error
	created  time.Time
	updated  time.Time
	finished bool
}

func newJob(id string, kind domain.JobKind, source, output string, cancel context.CancelFunc, now time.Time) *Job {
	return &Job{
		ID:      id,
		Kind:    kind,
		Source:  source,
		Output:  output,
		cancel:  cancel,
		done:    make(chan struct{}),
		status:  domain.JobPending,
		created: now,
		updated: now,
	}
}

// Status returns the current lifecycle state.
func (j *Job) Status() domain.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Err returns the failure or cancellation cause once the job is terminal.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel requests cooperative cancellation. The job resolves as cancelled
// unless it already finished.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the job is terminal or ctx is done. It returns nil for a
// completed job, an ExportFailed or ExportCancelled error otherwise.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record is the persisted view of the job.
func (j *Job) Record() Record {
	j.mu.RLock()
	defer j.mu.RUnlock()
	r := Record{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.status,
		Source:    j.Source,
		Output:    j.Output,
		CreatedAt: j.created,
		UpdatedAt: j.updated,
	}
	if j.err != nil {
		r.Error = j.err.Error()
		r.ErrorKind = domain.KindOf(j.err)
	}
	return r
}

func (j *Job) setRunning(now time.Time) {
	j.mu.Lock()
	j.status = domain.JobRunning
	j.updated = now
	j.mu.Unlock()
}

func (j *Job) finish(status domain.JobStatus, err error, now time.Time) {
	j.mu.Lock()
	if j.finished {
		j.mu.Unlock()
		return
	}
	j.finished = true
	j.status = status
	j.err = err
	j.updated = now
	j.mu.Unlock()
	close(j.done)
}
