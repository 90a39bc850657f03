package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"zero renders sentinel", 0, "Unknown"},
		{"negative renders sentinel", -5, "Unknown"},
		{"under a minute", 42, "0:42"},
		{"exact minute", 60, "1:00"},
		{"seconds padded", 75, "1:15"},
		{"long track", 3599, "59:59"},
		{"milliseconds normalized", 215000, "3:35"},
		{"fractional seconds truncated", 61.9, "1:01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.value))
		})
	}
}

func TestDeriveTitleFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"short youtube link", "https://youtu.be/dQw4w9WgXcQ", "YouTube-dQw4w9WgXcQ"},
		{"watch link", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "YouTube-dQw4w9WgXcQ"},
		{"music subdomain", "https://music.youtube.com/watch?v=abc123xyz", "YouTube-abc123xyz"},
		{"watch link without id", "https://www.youtube.com/watch", "YouTube-Unknown"},
		{"other host", "https://soundcloud.com/artist/track", "Song from soundcloud.com"},
		{"no host", "not a url at all", "Unknown Song"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveTitleFromURL(tt.url))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b:c"))
	assert.Equal(t, "plain name", SanitizeFilename("plain name"))
}
