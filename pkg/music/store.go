package music

import (
	"github.com/latoulicious/Musho/pkg/database/models"
	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/track"
)

// PlaybackStore persists playback history and classified fetch failures.
// *database.PlaybackRepository satisfies it; a nil store disables
// persistence entirely.
type PlaybackStore interface {
	SaveError(guildID, errorType, errorMsg, sourceURL string) error
	SaveHistory(guildID, title, sourceURL, duration string) error
	RecentErrors(guildID string, limit int) ([]models.PlaybackError, error)
}

// recordFailures wraps an originator so every failed fetch lands in the
// store before the requester hears about it. Persistence is best effort;
// a database hiccup never blocks the outcome.
func (m *Manager) recordFailures(sourceURL string, origin track.Originator) track.Originator {
	return track.OriginatorFunc(func(outcome track.Outcome) {
		if outcome.Err != nil {
			errorType := "unclassified"
			if fe, ok := fetcher.AsFetchError(outcome.Err); ok {
				errorType = string(fe.Kind)
			}
			if err := m.store.SaveError(outcome.GuildID, errorType, outcome.Err.Error(), sourceURL); err != nil {
				m.logger.Warn("failed to persist fetch error", map[string]interface{}{
					"guild_id": outcome.GuildID,
					"url":      sourceURL,
					"error":    err.Error(),
				})
			}
		}
		if origin != nil {
			origin.Notify(outcome)
		}
	})
}

// recordFinished persists a naturally completed track for the guild's
// playback history.
func (m *Manager) recordFinished(guildID string, t *track.Record) {
	if err := m.store.SaveHistory(guildID, t.Title, t.SourceURL, t.DurationDisplay); err != nil {
		m.logger.Warn("failed to persist playback history", map[string]interface{}{
			"guild_id": guildID,
			"title":    t.Title,
			"error":    err.Error(),
		})
	}
}

// RecentErrors returns the guild's most recent persisted fetch and playback
// failures, newest first. Without a store it returns nothing.
func (m *Manager) RecentErrors(guildID string, limit int) ([]models.PlaybackError, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.RecentErrors(guildID, limit)
}
