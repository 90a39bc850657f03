package queue

import (
	"sync"
	"time"

	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/logging"
)

// GuildSession aggregates everything one guild owns: its download pipeline,
// its playback queue, and the voice-occupancy timestamp that drives the
// auto-leave sweep. Sessions are created lazily by the registry and torn
// down on clear or shutdown.
type GuildSession struct {
	GuildID  string
	Queue    *PlaybackQueue
	Pipeline *Pipeline

	mu         sync.Mutex
	aloneSince time.Time
}

// NewGuildSession builds the per-guild aggregate
func NewGuildSession(guildID string, files *FileRegistry, f fetcher.MediaFetcher, opts PipelineOptions, loggerFactory logging.LoggerFactory) *GuildSession {
	q := NewPlaybackQueue(guildID, files, loggerFactory.CreateQueueLogger(guildID))
	return &GuildSession{
		GuildID:  guildID,
		Queue:    q,
		Pipeline: NewPipeline(guildID, q, f, opts, loggerFactory.CreatePipelineLogger(guildID)),
	}
}

// MarkAlone records when the bot was first observed alone and idle in a
// voice channel. Subsequent calls keep the earliest timestamp.
func (s *GuildSession) MarkAlone(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aloneSince.IsZero() {
		s.aloneSince = now
	}
}

// ClearAlone resets the alone timestamp when conditions change
func (s *GuildSession) ClearAlone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aloneSince = time.Time{}
}

// AloneSince returns the alone timestamp and whether one is set
func (s *GuildSession) AloneSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aloneSince, !s.aloneSince.IsZero()
}

// Teardown clears the pipeline and queue, releasing every file
func (s *GuildSession) Teardown() {
	s.Pipeline.Clear()
	s.ClearAlone()
}
