// Package lock provides the mutual-exclusion guard shared by every
// invocation of a job. Locks are single-process and in-memory; nothing is
// persisted or coordinated across processes.
package lock

// Locker is the guard a Job checks before running.
// Implementations must be cheap and must not block.
type Locker interface {
	// IsLocked reports whether the guard is currently held.
	IsLocked() bool

	// Lock marks the guard as held, unconditionally.
	Lock()

	// Unlock marks the guard as free, even if it was not held.
	// It must never fail.
	Unlock()
}

// TryLocker is implemented by locks that can check and acquire in one
// atomic step. Callers that may trigger concurrently should prefer it over
// IsLocked followed by Lock, which leaves a window between the two calls.
type TryLocker interface {
	Locker

	// TryLock acquires the guard if it is free and reports whether it did.
	TryLock() bool
}
