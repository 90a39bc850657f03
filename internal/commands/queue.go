package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// QueueCommand shows the current track, the ready queue, and how many
// downloads are still in flight.
func QueueCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	guildID := m.GuildID

	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger("queue")
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Debug("Queue command executed", map[string]interface{}{
		"user_id":  m.Author.ID,
		"guild_id": guildID,
	})

	if musicManager == nil {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	snapshot := musicManager.QueueSnapshot(guildID)

	var current string
	if snapshot.Current != nil {
		current = snapshot.Current.Title
	}

	ready := make([]string, 0, len(snapshot.Ready))
	for _, t := range snapshot.Ready {
		ready = append(ready, t.Title)
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.QueueStatus(current, ready, snapshot.PipelineDepth))
}
