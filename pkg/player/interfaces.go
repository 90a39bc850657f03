package player

import (
	"github.com/latoulicious/Musho/pkg/track"
)

// VoiceHandle is an opaque reference to one guild's live voice connection
type VoiceHandle interface {
	GuildID() string
	ChannelID() string
	Connected() bool
}

// VoiceSink is the voice-transport collaborator that actually streams audio
// into the call. The controller drives it; it never advances the queue on
// its own.
type VoiceSink interface {
	Connect(guildID, channelID string) (VoiceHandle, error)
	// Play starts streaming filePath and returns immediately. onComplete
	// fires exactly once when the stream ends, errors, or is stopped.
	Play(handle VoiceHandle, filePath string, onComplete func(err error)) error
	// Pause gates frame delivery on the active stream; Resume reopens it.
	// Both are no-ops when the guild has no active stream.
	Pause(handle VoiceHandle)
	Resume(handle VoiceHandle)
	Stop(handle VoiceHandle)
	IsPlaying(handle VoiceHandle) bool
	Disconnect(handle VoiceHandle) error
}

// Notifier receives best-effort playback announcements for the chat layer
type Notifier interface {
	NowPlaying(guildID string, t *track.Record)
	PlaybackIssue(guildID string, message string)
	QueueEnded(guildID string)
	IdleDisconnect(guildID string)
}

// NopNotifier discards all announcements
type NopNotifier struct{}

func (NopNotifier) NowPlaying(guildID string, t *track.Record)   {}
func (NopNotifier) PlaybackIssue(guildID string, message string) {}
func (NopNotifier) QueueEnded(guildID string)                    {}
func (NopNotifier) IdleDisconnect(guildID string)                {}
