package embed

import (
	"github.com/bwmarrin/discordgo"
)

// EmbedBuilder provides basic embed creation functionality
type EmbedBuilder interface {
	Success(title, description string) *discordgo.MessageEmbed
	Error(title, description string) *discordgo.MessageEmbed
	Info(title, description string) *discordgo.MessageEmbed
	Warning(title, description string) *discordgo.MessageEmbed
}

// AudioEmbedBuilder provides audio-specific embed creation functionality
type AudioEmbedBuilder interface {
	EmbedBuilder
	NowPlaying(title, url, duration, thumbnailURL string) *discordgo.MessageEmbed
	SongAdded(title string, position int) *discordgo.MessageEmbed
	QueueStatus(current string, ready []string, pipelineDepth int) *discordgo.MessageEmbed
	FetchFailed(url string, err error) *discordgo.MessageEmbed
	SongSkipped(title string) *discordgo.MessageEmbed
	QueueEnded() *discordgo.MessageEmbed
	IdleDisconnect() *discordgo.MessageEmbed
}

// EmbedFactory creates embed builders
type EmbedFactory interface {
	CreateAudioEmbedBuilder() AudioEmbedBuilder
	CreateBasicEmbedBuilder() EmbedBuilder
}
