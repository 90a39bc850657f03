package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/track"
)

func TestPlaybackQueueFIFO(t *testing.T) {
	q := NewPlaybackQueue("g1", NewFileRegistry(newTestLogger()), newTestLogger())

	first := &track.Record{Title: "first"}
	second := &track.Record{Title: "second"}

	assert.Equal(t, 1, q.EnqueueReady(first))
	assert.Equal(t, 2, q.EnqueueReady(second))

	got := q.PopNext()
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, "first", q.Current().Title)

	q.FinishCurrent()
	assert.Nil(t, q.Current())

	got = q.PopNext()
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)

	q.FinishCurrent()
	assert.Nil(t, q.PopNext())
	assert.True(t, q.IsEmpty())
}

func TestPlaybackQueueFileLifetime(t *testing.T) {
	dir := t.TempDir()
	files := NewFileRegistry(newTestLogger())
	q := NewPlaybackQueue("g1", files, newTestLogger())

	path := makeScratchFile(t, dir, "song.mp3")
	q.EnqueueReady(&track.Record{Title: "song", LocalFilePath: path})

	// Popping promotes to current; the reference must survive the pop.
	require.NotNil(t, q.PopNext())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, files.Count(path))

	q.FinishCurrent()
	assert.Eventually(t, fileGone(path), 2*time.Second, 10*time.Millisecond)
}

func TestPlaybackQueueClearReleasesEverything(t *testing.T) {
	dir := t.TempDir()
	files := NewFileRegistry(newTestLogger())
	q := NewPlaybackQueue("g1", files, newTestLogger())

	current := makeScratchFile(t, dir, "current.mp3")
	readyA := makeScratchFile(t, dir, "a.mp3")
	readyB := makeScratchFile(t, dir, "b.mp3")

	q.EnqueueReady(&track.Record{LocalFilePath: current})
	require.NotNil(t, q.PopNext())
	q.EnqueueReady(&track.Record{LocalFilePath: readyA})
	q.EnqueueReady(&track.Record{LocalFilePath: readyB})

	q.Clear()

	assert.Eventually(t, fileGone(current), 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, fileGone(readyA), 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, fileGone(readyB), 2*time.Second, 10*time.Millisecond)
	assert.True(t, q.IsEmpty())
}

func TestPlaybackQueueSnapshot(t *testing.T) {
	q := NewPlaybackQueue("g1", NewFileRegistry(newTestLogger()), newTestLogger())
	q.EnqueueReady(&track.Record{Title: "a"})
	q.EnqueueReady(&track.Record{Title: "b"})

	snapshot := q.ReadySnapshot()
	require.Len(t, snapshot, 2)

	// Mutating the snapshot must not affect the queue.
	snapshot[0] = &track.Record{Title: "mutated"}
	assert.Equal(t, "a", q.ReadySnapshot()[0].Title)
}
