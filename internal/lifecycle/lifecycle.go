// Package lifecycle holds the process-wide draining state consulted by /health.
package lifecycle

import (
	"sync"
	"time"
)

var (
	mu       sync.RWMutex
	draining time.Time
)

// SetShuttingDown marks the process as draining (true) or serving (false).
// The first transition to draining records when it started.
func SetShuttingDown(v bool) {
	mu.Lock()
	defer mu.Unlock()
	switch {
	case !v:
		draining = time.Time{}
	case draining.IsZero():
		draining = time.Now().UTC()
	}
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return !ShuttingDownSince().IsZero()
}

// ShuttingDownSince returns when draining began, or the zero time while serving.
func ShuttingDownSince() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return draining
}
