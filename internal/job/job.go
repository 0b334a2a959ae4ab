// Package job implements the execution guard around a background task.
//
// A Job holds a lock.Locker shared by every invocation. Start skips when
// the lock is held, otherwise acquires it, runs the Executor and releases
// the lock on every exit path. Executor errors are returned unchanged.
package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flemzord/hostjob/internal/lock"
)

// Sentinel errors returned by New.
var (
	ErrNilExecutor = errors.New("job: nil executor")
	ErrNilLock     = errors.New("job: nil lock")
)

// Executor is the task body of a job.
type Executor interface {
	// Execute runs one pass of the task. Implementations should honor
	// ctx cancellation; the guard never interprets it.
	Execute(ctx context.Context) error
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx context.Context) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Job runs an Executor under a shared lock, at most one run at a time.
type Job struct {
	name     string
	lock     lock.Locker
	exec     Executor
	logger   *slog.Logger
	observer Observer
}

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the logger used for skip and lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithObserver sets the observer notified of skips and runs.
func WithObserver(o Observer) Option {
	return func(j *Job) {
		if o != nil {
			j.observer = o
		}
	}
}

// New creates a Job. The lock must be shared by all triggers of the same
// job for mutual exclusion to hold; New does not create one.
func New(name string, exec Executor, lk lock.Locker, opts ...Option) (*Job, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	if lk == nil {
		return nil, ErrNilLock
	}

	j := &Job{
		name:     name,
		lock:     lk,
		exec:     exec,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With("job", name)
	return j, nil
}

// Name returns the job name.
func (j *Job) Name() string {
	return j.name
}

// Running reports whether the job's lock is currently held.
func (j *Job) Running() bool {
	return j.lock.IsLocked()
}

// Start runs the executor once unless another run holds the lock, in which
// case it returns nil without running. The lock is released before Start
// returns, whether the executor succeeded, failed or panicked, and the
// executor's error is returned as is.
func (j *Job) Start(ctx context.Context) error {
	if !j.acquire() {
		j.logger.Debug("job: already running, skipping")
		j.observer.Skipped(j.name)
		return nil
	}
	defer j.lock.Unlock()

	j.observer.Started(j.name)
	begin := time.Now()
	err := j.exec.Execute(ctx)
	j.observer.Finished(j.name, time.Since(begin), err)
	return err
}

// Stop releases the lock unconditionally. It neither cancels nor waits
// for a run in progress.
func (j *Job) Stop(_ context.Context) error {
	j.lock.Unlock()
	j.logger.Debug("job: stopped, lock released")
	return nil
}

// acquire takes the lock atomically when the Locker supports it. Plain
// Lockers get IsLocked followed by Lock, which is only safe when Start is
// never called concurrently for the same job.
func (j *Job) acquire() bool {
	if tl, ok := j.lock.(lock.TryLocker); ok {
		return tl.TryLock()
	}
	if j.lock.IsLocked() {
		return false
	}
	j.lock.Lock()
	return true
}
