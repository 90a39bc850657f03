package handlers

import (
	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/internal/commands"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/player"
)

// VoiceStateUpdateHandler watches the bot's own voice state and reports
// unexpected disconnects to the music manager so it can attempt a reconnect.
func VoiceStateUpdateHandler(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}

	// Only a transition from connected to disconnected matters here; joins
	// and channel moves are driven by commands.
	if v.ChannelID != "" || v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "" {
		return
	}

	manager := commands.GetMusicManager()
	if manager == nil {
		return
	}

	logging.GetGlobalLoggerFactory().CreatePlayerLogger(v.GuildID).Warn("Bot voice state dropped", map[string]interface{}{
		"channel_id": v.BeforeUpdate.ChannelID,
	})

	manager.HandleVoiceDisconnect(v.GuildID, v.BeforeUpdate.ChannelID)
}

// ChannelOccupancy builds an occupancy probe over the session state cache.
// It reports how many non-bot members share a voice channel; unknown members
// count as humans so the bot never leaves a channel it cannot verify.
func ChannelOccupancy(s *discordgo.Session) player.OccupancyFunc {
	return func(guildID, channelID string) int {
		guild, err := s.State.Guild(guildID)
		if err != nil {
			return 0
		}

		count := 0
		for _, vs := range guild.VoiceStates {
			if vs.ChannelID != channelID {
				continue
			}
			if s.State.User != nil && vs.UserID == s.State.User.ID {
				continue
			}
			if member, err := s.State.Member(guildID, vs.UserID); err == nil && member.User != nil && member.User.Bot {
				continue
			}
			count++
		}
		return count
	}
}
