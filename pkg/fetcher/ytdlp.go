package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// YtDlpProvider is the primary acquisition path: general-purpose extraction
// of arbitrary source URLs into a local audio file plus metadata.
type YtDlpProvider struct {
	config *YtDlpConfig
	dir    string
	logger logging.Logger
}

// NewYtDlpProvider creates the primary provider writing into dir
func NewYtDlpProvider(config *YtDlpConfig, dir string, logger logging.Logger) *YtDlpProvider {
	return &YtDlpProvider{
		config: config,
		dir:    dir,
		logger: logger,
	}
}

func (p *YtDlpProvider) Name() string {
	return "ytdlp"
}

// Fetch downloads the URL's audio into the scratch directory and returns a
// record pointing at the materialized file. Partial files are removed on
// failure or cancellation.
func (p *YtDlpProvider) Fetch(ctx context.Context, sourceURL string) (*track.Record, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, NewNetworkError(err)
	}

	scratchID := uuid.New().String()
	outputTemplate := filepath.Join(p.dir, scratchID+".%(ext)s")
	// With audio extraction to a fixed format the final extension is known
	// up front, so the output path does not need to be parsed back out.
	finalPath := filepath.Join(p.dir, scratchID+"."+p.config.AudioFormat)

	cmd := ytdlp.New().
		ExtractAudio().
		AudioFormat(p.config.AudioFormat).
		Output(outputTemplate).
		Print("%(title)s\t%(duration)s\t%(thumbnail)s").
		NoSimulate().
		NoPlaylist().
		NoPart().
		NoWarnings().
		IgnoreConfig()

	if p.config.CookiesFile != "" {
		if _, err := os.Stat(p.config.CookiesFile); err == nil {
			cmd = cmd.Cookies(p.config.CookiesFile)
		}
	}

	res, err := cmd.Run(ctx, sourceURL)
	if err != nil {
		p.removeScratch(scratchID)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		fetchErr := ClassifyExtractionError(err, stderr)
		p.logger.Warn("yt-dlp extraction failed", map[string]interface{}{
			"url":   sourceURL,
			"kind":  string(fetchErr.Kind),
			"error": err.Error(),
		})
		return nil, fetchErr
	}

	if _, err := os.Stat(finalPath); err != nil {
		p.removeScratch(scratchID)
		return nil, NewNoStreamError()
	}

	title, duration, thumbnail := p.parseMetadata(res.Stdout, sourceURL)

	p.logger.Info("yt-dlp extraction succeeded", map[string]interface{}{
		"url":      sourceURL,
		"file":     finalPath,
		"title":    title,
		"duration": duration,
	})

	return &track.Record{
		LocalFilePath:   finalPath,
		Title:           title,
		DurationDisplay: duration,
		SourceURL:       sourceURL,
		ThumbnailURL:    thumbnail,
	}, nil
}

// parseMetadata reads the tab-separated print line emitted alongside the
// download. Any missing field falls back to URL-derived values.
func (p *YtDlpProvider) parseMetadata(stdout, sourceURL string) (title, duration, thumbnail string) {
	title = DeriveTitleFromURL(sourceURL)
	duration = UnknownDuration

	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			continue
		}
		if parts[0] != "" && parts[0] != "NA" {
			title = parts[0]
		}
		if secs, err := strconv.ParseFloat(parts[1], 64); err == nil {
			duration = FormatDuration(secs)
		}
		if parts[2] != "" && parts[2] != "NA" {
			thumbnail = parts[2]
		}
		return title, duration, thumbnail
	}
	return title, duration, thumbnail
}

func (p *YtDlpProvider) removeScratch(scratchID string) {
	matches, err := filepath.Glob(filepath.Join(p.dir, scratchID+".*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}
