package job

import "time"

// Observer receives notifications about a job's invocations.
// Methods are called synchronously from Start and must not block.
type Observer interface {
	// Skipped is called when Start found the lock held.
	Skipped(name string)

	// Started is called after the lock was acquired, before Execute.
	Started(name string)

	// Finished is called when Execute returns. It is not called if
	// Execute panics.
	Finished(name string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) Skipped(string)                        {}
func (nopObserver) Started(string)                        {}
func (nopObserver) Finished(string, time.Duration, error) {}
