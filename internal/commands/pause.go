package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// PauseCommand gates the current track without losing its position.
func PauseCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("pause")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Pause command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	setAnnounceChannel(guildID, m.ChannelID)

	if !musicManager.PauseCurrent(guildID) {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("⏸️ Nothing to Pause", "Nothing is currently playing."))
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Success("⏸️ Paused", "Playback paused. Use resume to continue."))
}

// ResumeCommand reopens a paused track.
func ResumeCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("resume")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Resume command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	setAnnounceChannel(guildID, m.ChannelID)

	if !musicManager.ResumeCurrent(guildID) {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("▶️ Nothing to Resume", "Nothing is currently paused."))
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Success("▶️ Resumed", "Playback resumed."))
}
