// Package locktest provides a recording Locker for tests.
package locktest

import (
	"sync"

	"github.com/flemzord/hostjob/internal/lock"
)

// Compile-time interface check.
var _ lock.Locker = (*Lock)(nil)

// Lock is a Locker that records every call. It deliberately does not
// implement lock.TryLocker, so callers go through IsLocked then Lock.
type Lock struct {
	mu sync.Mutex

	// IsLockedFunc overrides the held state returned by IsLocked.
	IsLockedFunc func() bool

	held         bool
	isLockedCall int
	lockCalls    int
	unlockCalls  int
}

// NewLocked returns a mock that starts in the held state.
func NewLocked() *Lock {
	return &Lock{held: true}
}

// IsLocked implements lock.Locker.
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	l.isLockedCall++
	fn := l.IsLockedFunc
	held := l.held
	l.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return held
}

// Lock implements lock.Locker.
func (l *Lock) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lockCalls++
	l.held = true
}

// Unlock implements lock.Locker.
func (l *Lock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlockCalls++
	l.held = false
}

// Held returns the recorded state without counting as an IsLocked call.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// IsLockedCalls returns the number of IsLocked calls.
func (l *Lock) IsLockedCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isLockedCall
}

// LockCalls returns the number of Lock calls.
func (l *Lock) LockCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockCalls
}

// UnlockCalls returns the number of Unlock calls.
func (l *Lock) UnlockCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlockCalls
}
