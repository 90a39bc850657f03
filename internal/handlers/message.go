package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/internal/commands"
	"github.com/latoulicious/Musho/pkg/logging"
)

var commandPrefix = "!"

// SetCommandPrefix overrides the default "!" prefix. Called once at startup.
func SetCommandPrefix(prefix string) {
	if prefix != "" {
		commandPrefix = prefix
	}
}

// MessageHandler dispatches prefixed text commands to their handlers.
func MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore the bot's own messages and anything from other bots
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, commandPrefix))
	if len(fields) == 0 {
		return
	}

	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "play", "p":
		commands.PlayCommand(s, m, args)
	case "cobalt", "c":
		commands.CobaltCommand(s, m, args)
	case "skip", "s":
		commands.SkipCommand(s, m)
	case "pause":
		commands.PauseCommand(s, m)
	case "resume", "unpause":
		commands.ResumeCommand(s, m)
	case "queue", "q":
		commands.QueueCommand(s, m)
	case "nowplaying", "np":
		commands.NowPlayingCommand(s, m)
	case "clear":
		commands.ClearCommand(s, m)
	case "leave", "disconnect":
		commands.LeaveCommand(s, m)
	case "errors":
		commands.ErrorsCommand(s, m)
	case "version":
		commands.VersionCommand(s, m)
	case "help":
		commands.HelpCommand(s, m, commandPrefix)
	default:
		logging.GetGlobalLoggerFactory().CreateCommandLogger("dispatch").Debug("Unknown command ignored", map[string]interface{}{
			"command":  command,
			"guild_id": m.GuildID,
			"user_id":  m.Author.ID,
		})
	}
}
