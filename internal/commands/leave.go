package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// LeaveCommand clears the guild's queue and disconnects the bot from voice.
func LeaveCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("leave")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Leave command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	musicManager.Leave(guildID)
	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("👋 Left Voice", "Disconnected and cleared the queue."))
}
