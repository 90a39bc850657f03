package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/queue"
)

func newSweepFixture(t *testing.T, occupancy int) (*AutoLeaveSweeper, *queue.GuildSession, *Controller, *fakeSink, *recordingNotifier) {
	t.Helper()

	session := newTestSession(t)
	sink := newFakeSink()
	notifier := &recordingNotifier{}
	ctrl := newTestController(t, session, sink, notifier, ControllerOptions{LeaveGrace: time.Hour})

	registry := queue.NewSessionRegistry(func(guildID string) *queue.GuildSession { return session })
	registry.SessionFor("g1")

	sweeper := NewAutoLeaveSweeper(registry,
		func(guildID string) *Controller { return ctrl },
		func(guildID, channelID string) int { return occupancy },
		30*time.Second,
		newTestLogger(),
	)
	return sweeper, session, ctrl, sink, notifier
}

func TestSweepDisconnectsAloneIdleGuild(t *testing.T) {
	sweeper, session, _, sink, notifier := newSweepFixture(t, 0)

	base := time.Now()
	sweeper.now = func() time.Time { return base }
	sweeper.sweep()

	// First observation only marks the timestamp.
	_, marked := session.AloneSince()
	require.True(t, marked)
	assert.Equal(t, 0, sink.disconnectCount())

	sweeper.now = func() time.Time { return base.Add(31 * time.Second) }
	sweeper.sweep()

	assert.Equal(t, 1, sink.disconnectCount())
	assert.Equal(t, 1, notifier.idleDroppedCount())
	_, marked = session.AloneSince()
	assert.False(t, marked, "alone timestamp resets after leaving")
}

func TestSweepIgnoresOccupiedChannel(t *testing.T) {
	sweeper, session, _, sink, _ := newSweepFixture(t, 2)

	base := time.Now()
	sweeper.now = func() time.Time { return base }
	sweeper.sweep()
	sweeper.now = func() time.Time { return base.Add(time.Hour) }
	sweeper.sweep()

	assert.Equal(t, 0, sink.disconnectCount())
	_, marked := session.AloneSince()
	assert.False(t, marked)
}

func TestSweepResetsWhenListenersReturn(t *testing.T) {
	session := newTestSession(t)
	sink := newFakeSink()
	ctrl := newTestController(t, session, sink, &recordingNotifier{}, ControllerOptions{LeaveGrace: time.Hour})

	registry := queue.NewSessionRegistry(func(guildID string) *queue.GuildSession { return session })
	registry.SessionFor("g1")

	occupancy := 0
	sweeper := NewAutoLeaveSweeper(registry,
		func(guildID string) *Controller { return ctrl },
		func(guildID, channelID string) int { return occupancy },
		30*time.Second,
		newTestLogger(),
	)

	base := time.Now()
	sweeper.now = func() time.Time { return base }
	sweeper.sweep()
	_, marked := session.AloneSince()
	require.True(t, marked)

	// Someone joins; the alone clock resets and no disconnect happens
	// even after the threshold would have elapsed.
	occupancy = 1
	sweeper.now = func() time.Time { return base.Add(20 * time.Second) }
	sweeper.sweep()
	_, marked = session.AloneSince()
	assert.False(t, marked)

	occupancy = 0
	sweeper.now = func() time.Time { return base.Add(40 * time.Second) }
	sweeper.sweep()
	assert.Equal(t, 0, sink.disconnectCount())
}

func TestSweepSparesPausedGuild(t *testing.T) {
	sweeper, session, ctrl, sink, _ := newSweepFixture(t, 0)

	enqueueFile(t, session, t.TempDir(), "held.mp3")
	ctrl.PlayNext()
	require.True(t, ctrl.Pause())

	base := time.Now()
	sweeper.now = func() time.Time { return base }
	sweeper.sweep()
	sweeper.now = func() time.Time { return base.Add(time.Hour) }
	sweeper.sweep()

	// A paused track still counts as activity; the guild is not idle.
	assert.Equal(t, 0, sink.disconnectCount())
	assert.Equal(t, StatePaused, ctrl.State())
	_, marked := session.AloneSince()
	assert.False(t, marked)
}

func TestSweepSkipsDisconnectedGuilds(t *testing.T) {
	sweeper, session, ctrl, sink, _ := newSweepFixture(t, 0)
	ctrl.Stop(true)
	require.False(t, ctrl.Connected())
	before := sink.disconnectCount()

	base := time.Now()
	sweeper.now = func() time.Time { return base }
	sweeper.sweep()
	sweeper.now = func() time.Time { return base.Add(time.Hour) }
	sweeper.sweep()

	assert.Equal(t, before, sink.disconnectCount())
	_, marked := session.AloneSince()
	assert.False(t, marked)
}
