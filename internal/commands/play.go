package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/embed"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// PlayCommand downloads a URL through the primary extractor and queues it for
// playback in the requester's voice channel.
func PlayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	submitPlayRequest(s, m, args, track.SourceDirect, "play")
}

// CobaltCommand queues a URL like PlayCommand but prefers the accelerator API
// for the download, falling back to the extractor when it cannot serve.
func CobaltCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	submitPlayRequest(s, m, args, track.SourceAccelerated, "cobalt")
}

func submitPlayRequest(s *discordgo.Session, m *discordgo.MessageCreate, args []string, kind track.SourceKind, commandName string) {
	loggerFactory := logging.GetGlobalLoggerFactory()
	logger := loggerFactory.CreateCommandLogger(commandName)
	embedBuilder := embed.GetGlobalAudioEmbedBuilder()

	logger.Info("Play request received", map[string]interface{}{
		"user_id":    m.Author.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
		"source":     kind.String(),
		"args_count": len(args),
	})

	if musicManager == nil {
		logger.Error("Music manager not initialized", nil, map[string]interface{}{
			"guild_id": m.GuildID,
		})
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "The bot is still starting up. Try again in a moment."))
		return
	}

	if len(args) < 1 || !isURL(args[0]) {
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Usage Error", "Please provide a URL to play."))
		return
	}
	sourceURL := args[0]

	guildID := m.GuildID
	voiceChannelID := findUserVoiceChannel(s, guildID, m.Author.ID)
	if voiceChannelID == "" {
		logger.Warn("Requester not in a voice channel", map[string]interface{}{
			"user_id":  m.Author.ID,
			"guild_id": guildID,
		})
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "You need to be in a voice channel to play music."))
		return
	}

	setAnnounceChannel(guildID, m.ChannelID)

	requestChannelID := m.ChannelID
	origin := track.OriginatorFunc(func(outcome track.Outcome) {
		if outcome.Err != nil {
			logger.Error("Download failed", outcome.Err, map[string]interface{}{
				"guild_id": guildID,
				"url":      sourceURL,
				"user_id":  m.Author.ID,
			})
			s.ChannelMessageSendEmbed(requestChannelID, embedBuilder.FetchFailed(sourceURL, outcome.Err))
			return
		}

		snapshot := musicManager.QueueSnapshot(guildID)
		position := len(snapshot.Ready)
		if snapshot.Current != nil {
			position++
		}
		s.ChannelMessageSendEmbed(requestChannelID, embedBuilder.SongAdded(outcome.Track.Title, position))
	})

	if err := musicManager.SubmitForDownload(guildID, voiceChannelID, sourceURL, kind, origin); err != nil {
		logger.Error("Failed to submit download", err, map[string]interface{}{
			"guild_id": guildID,
			"url":      sourceURL,
			"user_id":  m.Author.ID,
		})
		s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Error("❌ Error", "Could not start the download. Please try again."))
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, embedBuilder.Info("⏬ Download Started", "Your track is being prepared and will play once it is ready."))
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}
