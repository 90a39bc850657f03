package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// SkipCommand stops the current track and advances to the next ready one.
func SkipCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("skip")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Skip command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	setAnnounceChannel(guildID, m.ChannelID)

	skipped := musicManager.SkipCurrent(guildID)
	if skipped == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("⏭️ Nothing to Skip", "Nothing is currently playing."))
		return
	}

	logger.Info("Skipped current track", map[string]interface{}{
		"guild_id":   guildID,
		"user_id":    m.Author.ID,
		"skipped_by": m.Author.Username,
		"title":      skipped.Title,
	})

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.SongSkipped(skipped.Title))
}
