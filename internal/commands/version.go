package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/internal/version"
	"github.com/latoulicious/Musho/pkg/logging"
)

func VersionCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	logger := logging.GetGlobalLoggerFactory().CreateCommandLogger("version")
	logger.Info("Version command executed", map[string]interface{}{
		"user_id":    m.Author.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
	})

	info := version.Get()

	embed := &discordgo.MessageEmbed{
		Title:       "Musho Version",
		Description: "`" + info.String() + "`",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Version", Value: code(info.Version), Inline: true},
			{Name: "Commit", Value: code(info.GitCommit), Inline: true},
			{Name: "Build Time", Value: code(info.BuildTime), Inline: true},
			{Name: "Go", Value: code(info.GoVersion), Inline: true},
		},
	}

	// Prevent accidental mentions in responses.
	_, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embed: embed,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		logger.Error("Failed to send version embed", err, map[string]interface{}{
			"guild_id":   m.GuildID,
			"channel_id": m.ChannelID,
		})
	}
}

func code(value string) string {
	if value == "" {
		value = "unknown"
	}
	return "`" + value + "`"
}
