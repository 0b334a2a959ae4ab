package lock

import "sync/atomic"

// Flag is an in-memory Locker backed by a single atomic boolean.
// The zero value is an unlocked Flag.
type Flag struct {
	held atomic.Bool
}

// Compile-time interface check.
var _ TryLocker = (*Flag)(nil)

// NewFlag returns an unlocked Flag.
func NewFlag() *Flag {
	return &Flag{}
}

// IsLocked implements Locker.
func (f *Flag) IsLocked() bool {
	return f.held.Load()
}

// Lock implements Locker.
func (f *Flag) Lock() {
	f.held.Store(true)
}

// Unlock implements Locker.
func (f *Flag) Unlock() {
	f.held.Store(false)
}

// TryLock implements TryLocker using compare-and-swap.
func (f *Flag) TryLock() bool {
	return f.held.CompareAndSwap(false, true)
}
