// Package traffic keeps a sliding window of request outcomes for health evaluation.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies a finished request.
type Outcome int

const (
	// Served is any response below 500 that was not rate limited.
	Served Outcome = iota
	// Failed is a 5xx response.
	Failed
	// Denied is a 429 from the rate limiter.
	Denied
)

// retention bounds how long outcomes are kept regardless of the windows callers ask about.
const retention = 5 * time.Minute

// Counts is the number of outcomes of each kind inside a window.
type Counts struct {
	Served int
	Failed int
	Denied int
}

// Total returns every outcome in the window.
func (c Counts) Total() int { return c.Served + c.Failed + c.Denied }

// Pct returns n as a percentage of Total, or 0 for an empty window.
func (c Counts) Pct(n int) float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(n) * 100 / float64(c.Total())
}

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker records outcome timestamps. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Record adds one outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

// Counts returns outcomes recorded within window of now.
func (t *Tracker) Counts(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	var c Counts
	for i := len(t.events) - 1; i >= 0 && !t.events[i].at.Before(cutoff); i-- {
		switch t.events[i].outcome {
		case Served:
			c.Served++
		case Failed:
			c.Failed++
		case Denied:
			c.Denied++
		}
	}
	return c
}

// Reset drops every recorded outcome.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

// pruneLocked drops events older than retention. Events are appended in time order.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}

var defaultTracker Tracker

// Record adds an outcome to the process-wide tracker.
func Record(o Outcome) { defaultTracker.Record(o) }

// RecordStatus classifies an HTTP status code and records it on the process-wide tracker.
func RecordStatus(code int) {
	switch {
	case code == 429:
		Record(Denied)
	case code >= 500:
		Record(Failed)
	default:
		Record(Served)
	}
}

// Window returns the process-wide counts within window.
func Window(window time.Duration) Counts { return defaultTracker.Counts(window) }

// Reset clears the process-wide tracker. For tests.
func Reset() { defaultTracker.Reset() }
