package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// NowPlayingCommand shows the track currently being played.
func NowPlayingCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("nowplaying")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Debug("Now playing command executed", map[string]interface{}{
		"user_id":  m.Author.ID,
		"guild_id": guildID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	snapshot := musicManager.QueueSnapshot(guildID)
	if snapshot.Current == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("🎵 Now Playing", "Nothing is currently playing."))
		return
	}

	current := snapshot.Current
	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.NowPlaying(current.Title, current.SourceURL, current.DurationDisplay, current.ThumbnailURL))
}
