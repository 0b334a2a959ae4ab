package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/flemzord/hostjob/internal/job"
)

// KindInfo describes a job kind that can be referenced from configuration.
type KindInfo struct {
	// Kind is the identifier used in the "kind" field (e.g. "sqlite.optimize").
	Kind string

	// New returns a fresh, unconfigured executor.
	New func() job.Executor
}

var (
	kinds   = make(map[string]KindInfo)
	kindsMu sync.RWMutex
)

// RegisterKind registers a job kind. It panics if the kind is empty,
// has no constructor or is already registered. Intended to be called
// from init() functions.
func RegisterKind(info KindInfo) {
	if info.Kind == "" {
		panic("job kind must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("job kind %s: New function must not be nil", info.Kind))
	}

	kindsMu.Lock()
	defer kindsMu.Unlock()

	if _, exists := kinds[info.Kind]; exists {
		panic(fmt.Sprintf("job kind already registered: %s", info.Kind))
	}
	kinds[info.Kind] = info
}

// GetKind returns the KindInfo for the given kind, or false if not found.
func GetKind(kind string) (KindInfo, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	info, ok := kinds[kind]
	return info, ok
}

// GetKinds returns all registered kinds sorted by name.
func GetKinds() []KindInfo {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	result := make([]KindInfo, 0, len(kinds))
	for _, info := range kinds {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b KindInfo) int {
		return cmp.Compare(a.Kind, b.Kind)
	})
	return result
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds = make(map[string]KindInfo)
}
