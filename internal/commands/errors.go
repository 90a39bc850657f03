package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

const recentErrorsLimit = 5

// ErrorsCommand shows the guild's most recent persisted playback failures.
func ErrorsCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("errors")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Errors command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	recent, err := musicManager.RecentErrors(guildID, recentErrorsLimit)
	if err != nil {
		logger.Error("Failed to load recent errors", err, map[string]interface{}{
			"guild_id": guildID,
		})
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "Could not load the error history."))
		return
	}

	if len(recent) == 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("📋 Recent Errors", "No playback errors recorded for this server."))
		return
	}

	var lines []string
	for _, e := range recent {
		line := fmt.Sprintf("`%s` **%s** — %s", e.Timestamp.Format("Jan 02 15:04"), e.ErrorType, truncateMessage(e.ErrorMsg, 120))
		lines = append(lines, line)
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("📋 Recent Errors", strings.Join(lines, "\n")))
}

func truncateMessage(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
