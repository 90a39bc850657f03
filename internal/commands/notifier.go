package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// DiscordNotifier delivers playback lifecycle updates to the text channel a
// guild last issued a music command from. It implements player.Notifier.
type DiscordNotifier struct {
	session      *discordgo.Session
	embedBuilder embed.AudioEmbedBuilder
	logger       logging.Logger
}

// NewDiscordNotifier creates a notifier bound to the bot session.
func NewDiscordNotifier(session *discordgo.Session, loggerFactory logging.LoggerFactory) *DiscordNotifier {
	return &DiscordNotifier{
		session:      session,
		embedBuilder: embed.GetGlobalAudioEmbedBuilder(),
		logger:       loggerFactory.CreateLogger("notifier"),
	}
}

// NowPlaying announces that a track started playing.
func (n *DiscordNotifier) NowPlaying(guildID string, t *track.Record) {
	channelID := AnnounceChannelFor(guildID)
	if channelID == "" || t == nil {
		return
	}

	if err := n.session.UpdateGameStatus(0, "🎵 "+t.Title); err != nil {
		n.logger.Debug("Failed to update presence", map[string]interface{}{
			"guild_id": guildID,
		})
	}

	nowPlayingEmbed := n.embedBuilder.NowPlaying(t.Title, t.SourceURL, t.DurationDisplay, t.ThumbnailURL)
	if _, err := n.session.ChannelMessageSendEmbed(channelID, nowPlayingEmbed); err != nil {
		n.logger.Error("Failed to send now playing embed", err, map[string]interface{}{
			"guild_id":   guildID,
			"channel_id": channelID,
			"title":      t.Title,
		})
	}
}

// PlaybackIssue reports a non-fatal playback problem to the guild.
func (n *DiscordNotifier) PlaybackIssue(guildID string, message string) {
	channelID := AnnounceChannelFor(guildID)
	if channelID == "" {
		return
	}

	warningEmbed := n.embedBuilder.Warning("⚠️ Playback Issue", message)
	if _, err := n.session.ChannelMessageSendEmbed(channelID, warningEmbed); err != nil {
		n.logger.Error("Failed to send playback issue embed", err, map[string]interface{}{
			"guild_id":   guildID,
			"channel_id": channelID,
		})
	}
}

// QueueEnded announces that playback finished and the bot left voice.
func (n *DiscordNotifier) QueueEnded(guildID string) {
	// Clear the presence line set by NowPlaying
	n.session.UpdateGameStatus(0, "")

	channelID := AnnounceChannelFor(guildID)
	if channelID == "" {
		return
	}

	endedEmbed := n.embedBuilder.QueueEnded()
	if _, err := n.session.ChannelMessageSendEmbed(channelID, endedEmbed); err != nil {
		n.logger.Error("Failed to send queue ended embed", err, map[string]interface{}{
			"guild_id":   guildID,
			"channel_id": channelID,
		})
	}
}

// IdleDisconnect announces that the bot left voice after being alone.
func (n *DiscordNotifier) IdleDisconnect(guildID string) {
	n.session.UpdateGameStatus(0, "")

	channelID := AnnounceChannelFor(guildID)
	if channelID == "" {
		return
	}

	idleEmbed := n.embedBuilder.IdleDisconnect()
	if _, err := n.session.ChannelMessageSendEmbed(channelID, idleEmbed); err != nil {
		n.logger.Error("Failed to send idle disconnect embed", err, map[string]interface{}{
			"guild_id":   guildID,
			"channel_id": channelID,
		})
	}
}
