package commands

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/latoulicious/Musho/pkg/music"
)

var (
	// Global music manager shared by every command handler
	musicManager *music.Manager

	// Last text channel a guild issued a music command from; playback
	// announcements go there.
	announceChannels = make(map[string]string)
	announceMutex    sync.RWMutex
)

// InitializeMusicCommands injects the music manager into the command layer.
// Must be called once during startup before any command runs.
func InitializeMusicCommands(manager *music.Manager) {
	musicManager = manager
}

// GetMusicManager returns the injected music manager, or nil before startup
// wiring completes.
func GetMusicManager() *music.Manager {
	return musicManager
}

func setAnnounceChannel(guildID, channelID string) {
	announceMutex.Lock()
	defer announceMutex.Unlock()
	announceChannels[guildID] = channelID
}

// AnnounceChannelFor returns the text channel playback updates for a guild
// should be sent to.
func AnnounceChannelFor(guildID string) string {
	announceMutex.RLock()
	defer announceMutex.RUnlock()
	return announceChannels[guildID]
}

// findUserVoiceChannel returns the voice channel the user currently occupies,
// or "" when they are not in voice.
func findUserVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}
