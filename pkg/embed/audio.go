package embed

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorSuccess = 0x00FF00
	colorError   = 0xFF0000
	colorInfo    = 0x0099FF
	colorWarning = 0xFFA500
	colorPlaying = 0x9B59B6
)

// DefaultAudioEmbedBuilder implements AudioEmbedBuilder
type DefaultAudioEmbedBuilder struct{}

// NewAudioEmbedBuilder creates a new audio embed builder
func NewAudioEmbedBuilder() *DefaultAudioEmbedBuilder {
	return &DefaultAudioEmbedBuilder{}
}

func (b *DefaultAudioEmbedBuilder) Success(title, description string) *discordgo.MessageEmbed {
	return b.build(title, description, colorSuccess)
}

func (b *DefaultAudioEmbedBuilder) Error(title, description string) *discordgo.MessageEmbed {
	return b.build(title, description, colorError)
}

func (b *DefaultAudioEmbedBuilder) Info(title, description string) *discordgo.MessageEmbed {
	return b.build(title, description, colorInfo)
}

func (b *DefaultAudioEmbedBuilder) Warning(title, description string) *discordgo.MessageEmbed {
	return b.build(title, description, colorWarning)
}

// NowPlaying builds the embed announced when a track starts. The thumbnail
// is only attached when the URL parses as http(s); Discord rejects embeds
// with malformed image URLs outright.
func (b *DefaultAudioEmbedBuilder) NowPlaying(title, sourceURL, duration, thumbnailURL string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: fmt.Sprintf("**%s**", title),
		Color:       colorPlaying,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Duration",
				Value:  duration,
				Inline: true,
			},
		},
	}

	if sourceURL != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Source",
			Value:  sourceURL,
			Inline: true,
		})
	}

	if isValidImageURL(thumbnailURL) {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}

	return embed
}

func (b *DefaultAudioEmbedBuilder) SongAdded(title string, position int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Added to Queue",
		Description: fmt.Sprintf("**%s**", title),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Position",
				Value:  fmt.Sprintf("%d", position),
				Inline: true,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// QueueStatus renders the current track, the ready list, and how many
// requests are still being fetched.
func (b *DefaultAudioEmbedBuilder) QueueStatus(current string, ready []string, pipelineDepth int) *discordgo.MessageEmbed {
	var sb strings.Builder

	if current != "" {
		sb.WriteString(fmt.Sprintf("**Now Playing:** %s\n\n", current))
	}

	if len(ready) == 0 {
		sb.WriteString("The queue is empty.")
	} else {
		for i, title := range ready {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
		}
	}

	if pipelineDepth > 0 {
		sb.WriteString(fmt.Sprintf("\n*%d more downloading...*", pipelineDepth))
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: sb.String(),
		Color:       colorInfo,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func (b *DefaultAudioEmbedBuilder) FetchFailed(sourceURL string, err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Download Failed",
		Description: fmt.Sprintf("Could not fetch `%s`", sourceURL),
		Color:       colorError,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Reason",
				Value: err.Error(),
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (b *DefaultAudioEmbedBuilder) SongSkipped(title string) *discordgo.MessageEmbed {
	desc := "Skipped the current track."
	if title != "" {
		desc = fmt.Sprintf("Skipped **%s**.", title)
	}
	return b.build("Skipped", desc, colorInfo)
}

func (b *DefaultAudioEmbedBuilder) QueueEnded() *discordgo.MessageEmbed {
	return b.build("Queue Ended", "Nothing left to play.", colorInfo)
}

func (b *DefaultAudioEmbedBuilder) IdleDisconnect() *discordgo.MessageEmbed {
	return b.build("Disconnected", "Left the voice channel after being idle.", colorWarning)
}

func (b *DefaultAudioEmbedBuilder) build(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func isValidImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
