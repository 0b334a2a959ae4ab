package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/hostjob/internal/lock"
	"github.com/flemzord/hostjob/internal/lock/locktest"
)

// countingExecutor records every Execute call.
type countingExecutor struct {
	calls   atomic.Int32
	runFunc func(ctx context.Context) error
}

func (e *countingExecutor) Execute(ctx context.Context) error {
	e.calls.Add(1)
	if e.runFunc != nil {
		return e.runFunc(ctx)
	}
	return nil
}

// recordingObserver records observer notifications.
type recordingObserver struct {
	mu       sync.Mutex
	skipped  int
	started  int
	finished []error
}

func (o *recordingObserver) Skipped(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped++
}

func (o *recordingObserver) Started(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) Finished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, err)
}

func mustNew(t *testing.T, exec Executor, lk lock.Locker, opts ...Option) *Job {
	t.Helper()
	j, err := New("test", exec, lk, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

func TestNew_NilCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New("x", nil, lock.NewFlag()); !errors.Is(err, ErrNilExecutor) {
		t.Errorf("nil executor: err = %v, want ErrNilExecutor", err)
	}
	if _, err := New("x", &countingExecutor{}, nil); !errors.Is(err, ErrNilLock) {
		t.Errorf("nil lock: err = %v, want ErrNilLock", err)
	}
}

func TestJob_Name(t *testing.T) {
	t.Parallel()

	j := mustNew(t, &countingExecutor{}, lock.NewFlag())
	if j.Name() != "test" {
		t.Errorf("Name() = %q, want %q", j.Name(), "test")
	}
}

func TestJob_NotExecutedWhenLocked(t *testing.T) {
	t.Parallel()

	lk := locktest.NewLocked()
	exec := &countingExecutor{}
	j := mustNew(t, exec, lk)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if exec.calls.Load() != 0 {
		t.Errorf("execute calls = %d, want 0", exec.calls.Load())
	}
	if !lk.Held() {
		t.Error("Start must not alter a lock it did not acquire")
	}
	if lk.LockCalls() != 0 || lk.UnlockCalls() != 0 {
		t.Errorf("lock/unlock calls = %d/%d, want 0/0", lk.LockCalls(), lk.UnlockCalls())
	}
}

func TestJob_ConsultsLockOnEveryStart(t *testing.T) {
	t.Parallel()

	// The held state is owned outside the job and changes between calls.
	var external atomic.Bool
	external.Store(true)
	lk := &locktest.Lock{IsLockedFunc: external.Load}
	exec := &countingExecutor{}
	j := mustNew(t, exec, lk)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if exec.calls.Load() != 0 || lk.LockCalls() != 0 {
		t.Fatalf("held lock: execute/lock calls = %d/%d, want 0/0", exec.calls.Load(), lk.LockCalls())
	}

	external.Store(false)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if exec.calls.Load() != 1 {
		t.Errorf("execute calls = %d, want 1", exec.calls.Load())
	}
	if lk.IsLockedCalls() != 2 || lk.LockCalls() != 1 || lk.UnlockCalls() != 1 {
		t.Errorf("isLocked/lock/unlock calls = %d/%d/%d, want 2/1/1",
			lk.IsLockedCalls(), lk.LockCalls(), lk.UnlockCalls())
	}
}

func TestJob_ExecutedWhenNotLocked(t *testing.T) {
	t.Parallel()

	lk := &locktest.Lock{}
	exec := &countingExecutor{}
	j := mustNew(t, exec, lk)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if exec.calls.Load() != 1 {
		t.Errorf("execute calls = %d, want 1", exec.calls.Load())
	}
	if lk.IsLockedCalls() != 1 || lk.LockCalls() != 1 || lk.UnlockCalls() != 1 {
		t.Errorf("isLocked/lock/unlock calls = %d/%d/%d, want 1/1/1",
			lk.IsLockedCalls(), lk.LockCalls(), lk.UnlockCalls())
	}
	if lk.Held() {
		t.Error("lock should be released after Start")
	}
}

func TestJob_LockedDuringExecution(t *testing.T) {
	t.Parallel()

	for name, lk := range map[string]lock.Locker{
		"flag": lock.NewFlag(),
		"mock": &locktest.Lock{},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var lockedDuringRun bool
			exec := ExecutorFunc(func(_ context.Context) error {
				lockedDuringRun = lk.IsLocked()
				return nil
			})
			j := mustNew(t, exec, lk)

			if err := j.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if !lockedDuringRun {
				t.Error("lock should be held while the executor runs")
			}
			if lk.IsLocked() {
				t.Error("lock should be released once the executor returns")
			}
		})
	}
}

func TestJob_RunningReflectsLock(t *testing.T) {
	t.Parallel()

	lk := lock.NewFlag()
	var running bool
	var j *Job
	j = mustNew(t, ExecutorFunc(func(_ context.Context) error {
		running = j.Running()
		return nil
	}), lk)

	if j.Running() {
		t.Fatal("job should not be running before Start")
	}
	_ = j.Start(context.Background())
	if !running {
		t.Error("Running() should be true inside Execute")
	}
	if j.Running() {
		t.Error("job should not be running after Start")
	}
}

func TestJob_ErrorPropagatedAndLockReleased(t *testing.T) {
	t.Parallel()

	wantErr := fmt.Errorf("argument out of range: %s", "X")
	lk := &locktest.Lock{}
	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		return wantErr
	}), lk)

	err := j.Start(context.Background())
	if err != wantErr { //nolint:errorlint // identity check
		t.Fatalf("Start error = %v, want the executor's error unchanged", err)
	}
	if err.Error() != "argument out of range: X" {
		t.Errorf("message = %q, want unchanged", err.Error())
	}
	if lk.UnlockCalls() != 1 {
		t.Errorf("unlock calls = %d, want 1", lk.UnlockCalls())
	}
	if lk.Held() {
		t.Error("lock should be released after a failed run")
	}
}

type rangeError struct{ param string }

func (e *rangeError) Error() string { return "out of range: " + e.param }

func TestJob_ErrorTypePreserved(t *testing.T) {
	t.Parallel()

	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		return &rangeError{param: "X"}
	}), lock.NewFlag())

	err := j.Start(context.Background())
	var re *rangeError
	if !errors.As(err, &re) {
		t.Fatalf("Start error = %T, want *rangeError", err)
	}
	if re.param != "X" {
		t.Errorf("param = %q, want %q", re.param, "X")
	}
}

func TestJob_PanicReleasesLock(t *testing.T) {
	t.Parallel()

	lk := lock.NewFlag()
	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		panic("boom")
	}), lk)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want the executor panic value", r)
			}
		}()
		_ = j.Start(context.Background())
	}()

	if lk.IsLocked() {
		t.Error("lock should be released after a panic")
	}
}

func TestJob_ContextForwarded(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var got any
	j := mustNew(t, ExecutorFunc(func(ctx context.Context) error {
		got = ctx.Value(key{})
		return ctx.Err()
	}), lock.NewFlag())

	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got != "v" {
		t.Errorf("context value = %v, want %q", got, "v")
	}
}

func TestJob_CancelledContextIsExecutorsConcern(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &countingExecutor{runFunc: func(ctx context.Context) error {
		return ctx.Err()
	}}
	lk := lock.NewFlag()
	j := mustNew(t, exec, lk)

	err := j.Start(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Start error = %v, want context.Canceled", err)
	}
	if exec.calls.Load() != 1 {
		t.Errorf("execute calls = %d, want 1", exec.calls.Load())
	}
	if lk.IsLocked() {
		t.Error("lock should be released")
	}
}

func TestJob_StopUnlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lk   *locktest.Lock
	}{
		{name: "already unlocked", lk: &locktest.Lock{}},
		{name: "locked", lk: locktest.NewLocked()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			j := mustNew(t, &countingExecutor{}, tt.lk)
			if err := j.Stop(context.Background()); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if tt.lk.UnlockCalls() != 1 {
				t.Errorf("unlock calls = %d, want 1", tt.lk.UnlockCalls())
			}
			if tt.lk.Held() {
				t.Error("lock should be released after Stop")
			}
		})
	}
}

func TestJob_StartThenStop(t *testing.T) {
	t.Parallel()

	lk := lock.NewFlag()
	j := mustNew(t, &countingExecutor{}, lk)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if lk.IsLocked() {
		t.Error("lock should be released after Stop")
	}
}

func TestJob_StopDoesNotWaitForRun(t *testing.T) {
	t.Parallel()

	lk := lock.NewFlag()
	entered := make(chan struct{})
	release := make(chan struct{})
	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		close(entered)
		<-release
		return nil
	}), lk)

	done := make(chan error, 1)
	go func() { done <- j.Start(context.Background()) }()
	<-entered

	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if lk.IsLocked() {
		t.Error("Stop should force the lock free while the run is in flight")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if lk.IsLocked() {
		t.Error("lock should be free after the run returns")
	}
}

func TestJob_OverlappingStartIsSkipped(t *testing.T) {
	t.Parallel()

	lk := lock.NewFlag()
	entered := make(chan struct{})
	release := make(chan struct{})
	exec := &countingExecutor{runFunc: func(_ context.Context) error {
		close(entered)
		<-release
		return nil
	}}
	j := mustNew(t, exec, lk)

	done := make(chan error, 1)
	go func() { done <- j.Start(context.Background()) }()
	<-entered

	// Second trigger while the first is running: silent skip.
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("overlapping Start: %v", err)
	}
	if !lk.IsLocked() {
		t.Error("skipped Start must not release the lock held by the running one")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}
	if exec.calls.Load() != 1 {
		t.Errorf("execute calls = %d, want 1", exec.calls.Load())
	}
}

func TestJob_NoParallelExecution(t *testing.T) {
	t.Parallel()

	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		c := concurrent.Add(1)
		for {
			old := maxConcurrent.Load()
			if c <= old || maxConcurrent.CompareAndSwap(old, c) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	}), lock.NewFlag())

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = j.Start(context.Background())
		}()
	}
	wg.Wait()

	if maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent = %d, want <= 1", maxConcurrent.Load())
	}
}

func TestJob_Observer(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("failed")
	obs := &recordingObserver{}
	lk := lock.NewFlag()
	calls := 0
	j := mustNew(t, ExecutorFunc(func(_ context.Context) error {
		calls++
		if calls == 2 {
			return wantErr
		}
		return nil
	}), lk, WithObserver(obs), WithLogger(nil))

	_ = j.Start(context.Background())
	_ = j.Start(context.Background())
	lk.Lock()
	_ = j.Start(context.Background())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.started != 2 {
		t.Errorf("started = %d, want 2", obs.started)
	}
	if obs.skipped != 1 {
		t.Errorf("skipped = %d, want 1", obs.skipped)
	}
	if len(obs.finished) != 2 || obs.finished[0] != nil || !errors.Is(obs.finished[1], wantErr) {
		t.Errorf("finished = %v, want [nil %v]", obs.finished, wantErr)
	}
}
