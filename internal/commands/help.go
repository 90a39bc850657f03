package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
)

// HelpCommand lists the available commands.
func HelpCommand(s *discordgo.Session, m *discordgo.MessageCreate, prefix string) {
	logger := logging.GetGlobalLoggerFactory().CreateCommandLogger("help")
	logger.Debug("Help command executed", map[string]interface{}{
		"user_id":  m.Author.ID,
		"guild_id": m.GuildID,
	})

	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	description := fmt.Sprintf(
		"**%[1]splay <url>** - Download a track and queue it for playback\n"+
			"**%[1]scobalt <url>** - Queue a track, preferring the download accelerator\n"+
			"**%[1]sskip** - Skip the current track\n"+
			"**%[1]spause** - Pause the current track\n"+
			"**%[1]sresume** - Resume a paused track\n"+
			"**%[1]squeue** - Show the queue and downloads in progress\n"+
			"**%[1]snowplaying** - Show the current track\n"+
			"**%[1]sclear** - Stop playback and empty the queue\n"+
			"**%[1]sleave** - Disconnect from voice and empty the queue\n"+
			"**%[1]serrors** - Show recent playback errors\n"+
			"**%[1]sversion** - Show bot version",
		prefix,
	)

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("🎵 Musho Commands", description))
}
