package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

type testLogger struct{}

func newTestLogger() logging.Logger { return &testLogger{} }

func (l *testLogger) Info(msg string, fields map[string]interface{})             {}
func (l *testLogger) Error(msg string, err error, fields map[string]interface{}) {}
func (l *testLogger) Warn(msg string, fields map[string]interface{})             {}
func (l *testLogger) Debug(msg string, fields map[string]interface{})            {}
func (l *testLogger) WithPipeline(pipelineID string) logging.Logger              { return l }
func (l *testLogger) WithContext(ctx map[string]interface{}) logging.Logger {
	return l
}

type stubProvider struct {
	name   string
	record *track.Record
	err    error
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, sourceURL string) (*track.Record, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.record, s.err
}

func newRequest(url string) *track.Request {
	return track.NewRequest("guild-1", url, track.SourceDirect, nil)
}

func TestFetcherPrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "primary", record: &track.Record{Title: "song"}}
	fallback := &stubProvider{name: "fallback"}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	record, err := f.Fetch(context.Background(), newRequest("https://a"))
	require.NoError(t, err)
	assert.Equal(t, "song", record.Title)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls, "fallback must not run when primary succeeds")
}

func TestFetcherAcceleratedPrefersFallbackProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", record: &track.Record{Title: "extracted"}}
	fallback := &stubProvider{name: "fallback", record: &track.Record{Title: "accelerated"}}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	req := track.NewRequest("guild-1", "https://a", track.SourceAccelerated, nil)
	record, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "accelerated", record.Title)
	assert.Equal(t, 0, primary.calls, "extractor must not run when the accelerator serves")
}

func TestFetcherFallbackSuccess(t *testing.T) {
	primary := &stubProvider{name: "primary", err: NewNoStreamError()}
	fallback := &stubProvider{name: "fallback", record: &track.Record{Title: "rescued"}}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	record, err := f.Fetch(context.Background(), newRequest("https://a"))
	require.NoError(t, err)
	assert.Equal(t, "rescued", record.Title)
	assert.Equal(t, 1, fallback.calls)
}

func TestFetcherBothFail(t *testing.T) {
	primary := &stubProvider{name: "primary", err: NewNetworkError(errors.New("timeout"))}
	fallback := &stubProvider{name: "fallback", err: NewProviderError("error.api.link.invalid", "")}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	_, err := f.Fetch(context.Background(), newRequest("https://a"))
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorKindProvider, fe.Kind)
}

func TestFetcherUnconfiguredFallbackSurfacesPrimaryError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: NewNetworkError(errors.New("timeout"))}
	fallback := &stubProvider{name: "fallback", err: NewUnsupportedError(errors.New("not configured"))}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	_, err := f.Fetch(context.Background(), newRequest("https://a"))
	assert.True(t, IsNetworkFailure(err))
}

func TestFetcherCancellationSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &stubProvider{name: "primary", err: NewNetworkError(errors.New("interrupted"))}
	fallback := &stubProvider{name: "fallback", record: &track.Record{}}
	f := NewMediaFetcherWithProviders(primary, fallback, newTestLogger())

	cancel()
	_, err := f.Fetch(ctx, newRequest("https://a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fallback.calls)
}

func TestClassifyExtractionError(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		expected FetchErrorKind
	}{
		{"unsupported url", "ERROR: Unsupported URL: https://example.com", ErrorKindUnsupported},
		{"invalid url", "'foo' is not a valid URL", ErrorKindUnsupported},
		{"connection reset", "unable to download video data: connection reset", ErrorKindNetworkFailure},
		{"timeout", "The read operation timed out", ErrorKindNetworkFailure},
		{"no formats", "ERROR: No video formats found", ErrorKindNoStream},
		{"private content", "ERROR: Private video. Sign in if you've been granted access", ErrorKindProvider},
		{"anything else", "something nobody anticipated", ErrorKindProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := ClassifyExtractionError(errors.New("exit status 1"), tt.stderr)
			assert.Equal(t, tt.expected, fe.Kind)
		})
	}
}
