package fetcher

import (
	"context"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

// DefaultMediaFetcher tries the primary provider and falls back to the
// accelerator. Exactly one file is written to the scratch directory on
// success; the caller owns its deletion.
type DefaultMediaFetcher struct {
	primary  Provider
	fallback Provider
	logger   logging.Logger
}

// NewMediaFetcher wires the standard provider chain from configuration
func NewMediaFetcher(config ConfigProvider, loggerFactory logging.LoggerFactory) *DefaultMediaFetcher {
	logger := loggerFactory.CreateLogger("fetcher")
	dir := config.GetDownloadConfig().Directory

	return &DefaultMediaFetcher{
		primary:  NewYtDlpProvider(config.GetYtDlpConfig(), dir, logger),
		fallback: NewCobaltProvider(config.GetCobaltConfig(), dir, logger),
		logger:   logger,
	}
}

// NewMediaFetcherWithProviders builds a fetcher from explicit providers,
// used by tests and callers with custom chains.
func NewMediaFetcherWithProviders(primary, fallback Provider, logger logging.Logger) *DefaultMediaFetcher {
	return &DefaultMediaFetcher{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Fetch resolves the request through the provider chain. The request's source
// kind decides which provider goes first; accelerated requests try the
// accelerator before the extractor. Cancellation is checked between attempts
// so a cleared queue does not trigger a pointless second fetch.
func (f *DefaultMediaFetcher) Fetch(ctx context.Context, req *track.Request) (*track.Record, error) {
	first, second := f.primary, f.fallback
	if req.Kind == track.SourceAccelerated {
		first, second = f.fallback, f.primary
	}

	record, firstErr := first.Fetch(ctx, req.SourceURL)
	if firstErr == nil {
		return record, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.logger.Warn("provider failed, trying next", map[string]interface{}{
		"url":      req.SourceURL,
		"provider": first.Name(),
		"error":    firstErr.Error(),
	})

	record, secondErr := second.Fetch(ctx, req.SourceURL)
	if secondErr == nil {
		return record, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.logger.Error("all providers failed", secondErr, map[string]interface{}{
		"url":         req.SourceURL,
		"first_error": firstErr.Error(),
	})

	// A provider that is merely unconfigured says nothing about the URL;
	// the other's classification is the meaningful one to surface.
	if IsUnsupported(secondErr) && !IsUnsupported(firstErr) {
		return nil, firstErr
	}
	return nil, secondErr
}
