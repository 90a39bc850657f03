package queue

import (
	"sync"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// PlaybackQueue holds a guild's ready-to-play tracks plus the one currently
// feeding the audio sink. Every mutating operation serializes through the
// queue's own mutex; guilds never contend with each other. File lifetime is
// delegated to the shared FileRegistry so the same file backing multiple
// logical entries is only deleted once nothing references it.
type PlaybackQueue struct {
	mu      sync.Mutex
	guildID string
	ready   []*track.Record
	current *track.Record
	files   *FileRegistry
	logger  logging.Logger
}

// NewPlaybackQueue creates an empty queue for one guild
func NewPlaybackQueue(guildID string, files *FileRegistry, logger logging.Logger) *PlaybackQueue {
	return &PlaybackQueue{
		guildID: guildID,
		files:   files,
		logger:  logger,
	}
}

// EnqueueReady appends a fetched track and retains its backing file
func (q *PlaybackQueue) EnqueueReady(t *track.Record) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.files.Retain(t.LocalFilePath)
	q.ready = append(q.ready, t)

	q.logger.Info("track ready for playback", map[string]interface{}{
		"guild_id": q.guildID,
		"title":    t.Title,
		"position": len(q.ready),
	})
	return len(q.ready)
}

// PopNext removes the head of the ready list and promotes it to the current
// track. Returns nil when nothing is ready. The popped track's file stays
// retained until FinishCurrent or Clear releases it.
func (q *PlaybackQueue) PopNext() *track.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return nil
	}
	next := q.ready[0]
	q.ready = q.ready[1:]
	q.current = next
	return next
}

// Current returns the currently playing track, or nil
func (q *PlaybackQueue) Current() *track.Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// FinishCurrent clears the current track and releases its file reference.
// Calling it with no current track is a no-op.
func (q *PlaybackQueue) FinishCurrent() {
	q.mu.Lock()
	finished := q.current
	q.current = nil
	q.mu.Unlock()

	if finished != nil {
		q.files.Release(finished.LocalFilePath)
	}
}

// DropCurrent clears the current track without touching its file reference.
// Used when the caller has already accounted for the release.
func (q *PlaybackQueue) DropCurrent() {
	q.mu.Lock()
	q.current = nil
	q.mu.Unlock()
}

// ReadyLen returns how many tracks await playback
func (q *PlaybackQueue) ReadyLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// ReadySnapshot returns a copy of the ready list for display purposes
func (q *PlaybackQueue) ReadySnapshot() []*track.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]*track.Record, len(q.ready))
	copy(snapshot, q.ready)
	return snapshot
}

// IsEmpty reports whether the queue has neither ready nor current tracks
func (q *PlaybackQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) == 0 && q.current == nil
}

// Clear releases every ready track and the current one, emptying the queue
func (q *PlaybackQueue) Clear() {
	q.mu.Lock()
	released := q.ready
	q.ready = nil
	current := q.current
	q.current = nil
	q.mu.Unlock()

	for _, t := range released {
		q.files.Release(t.LocalFilePath)
	}
	if current != nil {
		q.files.Release(current.LocalFilePath)
	}

	q.logger.Info("queue cleared", map[string]interface{}{
		"guild_id":       q.guildID,
		"released_ready": len(released),
		"had_current":    current != nil,
	})
}
