package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// ClearCommand stops playback, cancels in-flight downloads, and empties the
// guild's queue. The bot stays connected to voice.
func ClearCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("clear")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Clear command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	musicManager.ClearQueue(guildID)
	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Success("🗑️ Queue Cleared", "Playback stopped and all queued tracks removed."))
}
