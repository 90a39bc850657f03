package fetcher

import (
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
)

// UnknownDuration is rendered when no usable duration metadata exists
const UnknownDuration = "Unknown"

// Sources that report duration in milliseconds produce values far beyond
// any plausible seconds count (10 hours = 36000s). Anything above that is
// treated as milliseconds.
const millisecondThreshold = 36000

// FormatDuration normalizes a seconds-or-milliseconds duration value to a
// minutes:seconds display string. Non-positive values render as the unknown
// sentinel rather than an error.
func FormatDuration(value float64) string {
	if value <= 0 {
		return UnknownDuration
	}
	if value > millisecondThreshold {
		value = value / 1000
	}
	total := int(value)
	minutes := total / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

// DeriveTitleFromURL produces a best-effort display title when metadata
// extraction fails. YouTube URLs yield the video id; other hosts yield a
// generic "Song from <host>" label.
func DeriveTitleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "Unknown Song"
	}

	host := strings.TrimPrefix(parsed.Host, "www.")
	if host == "youtu.be" || strings.HasSuffix(host, "youtube.com") {
		id := ""
		if host == "youtu.be" {
			id = strings.Trim(parsed.Path, "/")
		} else {
			id = parsed.Query().Get("v")
		}
		if id == "" || !youtubeIDPattern.MatchString(id) {
			id = "Unknown"
		}
		return fmt.Sprintf("YouTube-%s", id)
	}

	return fmt.Sprintf("Song from %s", parsed.Host)
}

// ValidateSystemDependencies checks that the yt-dlp binary downloads depend
// on is installed.
func ValidateSystemDependencies() error {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		return fmt.Errorf("yt-dlp binary not found: %w", err)
	}
	return nil
}

// SanitizeFilename strips characters that are unsafe in scratch filenames
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
