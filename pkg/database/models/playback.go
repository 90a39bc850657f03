package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackError represents a classified failure from the fetch or playback path
type PlaybackError struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	GuildID   string    `gorm:"index;not null" json:"guild_id"`
	ErrorType string    `gorm:"index;not null" json:"error_type"` // unsupported, network, provider, no_stream, sink, voice
	ErrorMsg  string    `gorm:"type:text;not null" json:"error_msg"`
	SourceURL string    `gorm:"type:text" json:"source_url"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// PlaybackLog represents a structured log entry persisted for diagnostics
type PlaybackLog struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	GuildID   string    `gorm:"index" json:"guild_id"`
	Component string    `gorm:"index;not null" json:"component"` // fetcher, pipeline, queue, player, commands
	Level     string    `gorm:"index;not null" json:"level"`     // INFO, ERROR, WARN, DEBUG
	Message   string    `gorm:"type:text;not null" json:"message"`
	Error     string    `gorm:"type:text" json:"error"`
	UserID    string    `gorm:"index" json:"user_id"`
	ChannelID string    `gorm:"index" json:"channel_id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// PlaybackHistory records each track that finished downloading, for stats
type PlaybackHistory struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	GuildID   string    `gorm:"index;not null" json:"guild_id"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	SourceURL string    `gorm:"type:text;not null" json:"source_url"`
	Duration  string    `json:"duration"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

// TableName returns the table name for PlaybackError
func (PlaybackError) TableName() string {
	return "playback_errors"
}

// TableName returns the table name for PlaybackLog
func (PlaybackLog) TableName() string {
	return "playback_logs"
}

// TableName returns the table name for PlaybackHistory
func (PlaybackHistory) TableName() string {
	return "playback_history"
}
