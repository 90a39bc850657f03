package player

import (
	"sync"
	"time"
)

const (
	defaultMaxReconnects   = 3
	defaultReconnectWindow = 5 * time.Minute
)

// ReconnectTracker bounds voice reconnect attempts to a maximum count within
// a rolling time window, so a flapping gateway cannot keep a guild in a
// reconnect storm.
type ReconnectTracker struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts []time.Time
}

// NewReconnectTracker creates a tracker allowing max attempts per window.
// Non-positive arguments fall back to the defaults (3 attempts in 5 minutes).
func NewReconnectTracker(max int, window time.Duration) *ReconnectTracker {
	if max <= 0 {
		max = defaultMaxReconnects
	}
	if window <= 0 {
		window = defaultReconnectWindow
	}
	return &ReconnectTracker{max: max, window: window}
}

// Allow records an attempt at now and reports whether it is within bounds
func (t *ReconnectTracker) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.window)
	kept := t.attempts[:0]
	for _, at := range t.attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	t.attempts = kept

	if len(t.attempts) >= t.max {
		return false
	}
	t.attempts = append(t.attempts, now)
	return true
}

// Reset forgets all recorded attempts
func (t *ReconnectTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = nil
}
