package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectTrackerBoundsAttempts(t *testing.T) {
	base := time.Now()
	tracker := NewReconnectTracker(3, 5*time.Minute)

	assert.True(t, tracker.Allow(base))
	assert.True(t, tracker.Allow(base.Add(1*time.Minute)))
	assert.True(t, tracker.Allow(base.Add(2*time.Minute)))
	assert.False(t, tracker.Allow(base.Add(3*time.Minute)), "fourth attempt inside the window must be denied")
}

func TestReconnectTrackerRollingWindow(t *testing.T) {
	base := time.Now()
	tracker := NewReconnectTracker(3, 5*time.Minute)

	tracker.Allow(base)
	tracker.Allow(base.Add(1 * time.Minute))
	tracker.Allow(base.Add(2 * time.Minute))

	// After the first attempt ages out, a slot frees up.
	assert.True(t, tracker.Allow(base.Add(5*time.Minute+time.Second)))
	assert.False(t, tracker.Allow(base.Add(5*time.Minute+2*time.Second)))
}

func TestReconnectTrackerReset(t *testing.T) {
	base := time.Now()
	tracker := NewReconnectTracker(1, time.Hour)

	assert.True(t, tracker.Allow(base))
	assert.False(t, tracker.Allow(base))

	tracker.Reset()
	assert.True(t, tracker.Allow(base))
}

func TestReconnectTrackerDefaults(t *testing.T) {
	tracker := NewReconnectTracker(0, 0)
	base := time.Now()
	for i := 0; i < 3; i++ {
		assert.True(t, tracker.Allow(base))
	}
	assert.False(t, tracker.Allow(base))
}
