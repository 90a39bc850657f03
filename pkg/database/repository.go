package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/latoulicious/Musho/pkg/database/models"
	"github.com/latoulicious/Musho/pkg/logging"
)

// PlaybackRepository persists playback logs, errors and history
type PlaybackRepository struct {
	db *gorm.DB
}

// NewPlaybackRepository creates a repository backed by the given database
func NewPlaybackRepository(db *gorm.DB) *PlaybackRepository {
	return &PlaybackRepository{db: db}
}

// SaveLog persists a log entry; implements logging.LogRepository
func (r *PlaybackRepository) SaveLog(entry logging.LogEntry) error {
	row := &models.PlaybackLog{
		ID:        uuid.New(),
		GuildID:   entry.GuildID,
		Component: entry.Component,
		Level:     entry.Level,
		Message:   entry.Message,
		Error:     entry.Error,
		UserID:    entry.UserID,
		ChannelID: entry.ChannelID,
		Timestamp: time.Now(),
	}
	return r.db.Create(row).Error
}

// SaveError persists a classified playback/fetch failure
func (r *PlaybackRepository) SaveError(guildID, errorType, errorMsg, sourceURL string) error {
	row := &models.PlaybackError{
		ID:        uuid.New(),
		GuildID:   guildID,
		ErrorType: errorType,
		ErrorMsg:  errorMsg,
		SourceURL: sourceURL,
		Timestamp: time.Now(),
	}
	return r.db.Create(row).Error
}

// SaveHistory records a successfully fetched track
func (r *PlaybackRepository) SaveHistory(guildID, title, sourceURL, duration string) error {
	row := &models.PlaybackHistory{
		ID:        uuid.New(),
		GuildID:   guildID,
		Title:     title,
		SourceURL: sourceURL,
		Duration:  duration,
		Timestamp: time.Now(),
	}
	return r.db.Create(row).Error
}

// RecentErrors returns the most recent errors for a guild, newest first
func (r *PlaybackRepository) RecentErrors(guildID string, limit int) ([]models.PlaybackError, error) {
	var rows []models.PlaybackError
	err := r.db.
		Where("guild_id = ?", guildID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
