package fetcher

import (
	"context"

	"github.com/latoulicious/Musho/pkg/track"
)

// Provider resolves a source URL into a materialized local audio file plus
// metadata. Implementations must honor context cancellation between network
// calls and remove partially written files on abort.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, sourceURL string) (*track.Record, error)
}

// MediaFetcher abstracts one acquisition attempt per request. It tries the
// primary provider and falls back to the accelerator when the primary fails
// with a provider-level error.
type MediaFetcher interface {
	Fetch(ctx context.Context, req *track.Request) (*track.Record, error)
}

// ConfigProvider supplies fetcher configuration to providers
type ConfigProvider interface {
	GetYtDlpConfig() *YtDlpConfig
	GetCobaltConfig() *CobaltConfig
	GetDownloadConfig() *DownloadConfig
	Validate() error
}
