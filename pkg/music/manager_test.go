package music

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/database/models"
	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/player"
	"github.com/latoulicious/Musho/pkg/track"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, fields map[string]interface{})             {}
func (l *testLogger) Error(msg string, err error, fields map[string]interface{}) {}
func (l *testLogger) Warn(msg string, fields map[string]interface{})             {}
func (l *testLogger) Debug(msg string, fields map[string]interface{})            {}
func (l *testLogger) WithPipeline(pipeline string) logging.Logger                { return l }
func (l *testLogger) WithContext(ctx map[string]interface{}) logging.Logger {
	return l
}

type testLoggerFactory struct{}

func (f *testLoggerFactory) CreateLogger(component string) logging.Logger      { return &testLogger{} }
func (f *testLoggerFactory) CreateFetcherLogger(guildID string) logging.Logger { return &testLogger{} }
func (f *testLoggerFactory) CreatePipelineLogger(guildID string) logging.Logger {
	return &testLogger{}
}
func (f *testLoggerFactory) CreatePlayerLogger(guildID string) logging.Logger { return &testLogger{} }
func (f *testLoggerFactory) CreateQueueLogger(guildID string) logging.Logger  { return &testLogger{} }
func (f *testLoggerFactory) CreateCommandLogger(commandName string) logging.Logger {
	return &testLogger{}
}

// fileFetcher materializes a real scratch file per request
type fileFetcher struct {
	dir string
}

func (f *fileFetcher) Fetch(ctx context.Context, req *track.Request) (*track.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.dir, uuid.New().String()+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return nil, err
	}
	return &track.Record{
		Title:         req.SourceURL,
		SourceURL:     req.SourceURL,
		LocalFilePath: path,
	}, nil
}

type managerFakeHandle struct {
	guildID   string
	channelID string
	connected bool
}

func (h *managerFakeHandle) GuildID() string   { return h.guildID }
func (h *managerFakeHandle) ChannelID() string { return h.channelID }
func (h *managerFakeHandle) Connected() bool   { return h.connected }

type managerFakeSink struct {
	mu          sync.Mutex
	completions map[string]func(error)
	played      []string
	paused      map[string]bool
}

func newManagerFakeSink() *managerFakeSink {
	return &managerFakeSink{
		completions: make(map[string]func(error)),
		paused:      make(map[string]bool),
	}
}

func (s *managerFakeSink) Connect(guildID, channelID string) (player.VoiceHandle, error) {
	return &managerFakeHandle{guildID: guildID, channelID: channelID, connected: true}, nil
}

func (s *managerFakeSink) Play(handle player.VoiceHandle, filePath string, onComplete func(err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, filePath)
	s.completions[handle.GuildID()] = onComplete
	return nil
}

func (s *managerFakeSink) Pause(handle player.VoiceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[handle.GuildID()] = true
}

func (s *managerFakeSink) Resume(handle player.VoiceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused[handle.GuildID()] = false
}

func (s *managerFakeSink) isPaused(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused[guildID]
}

func (s *managerFakeSink) Stop(handle player.VoiceHandle) {
	s.mu.Lock()
	onComplete := s.completions[handle.GuildID()]
	delete(s.completions, handle.GuildID())
	s.mu.Unlock()
	if onComplete != nil {
		go onComplete(nil)
	}
}

func (s *managerFakeSink) IsPlaying(handle player.VoiceHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, playing := s.completions[handle.GuildID()]
	return playing
}

func (s *managerFakeSink) Disconnect(handle player.VoiceHandle) error {
	if h, ok := handle.(*managerFakeHandle); ok {
		h.connected = false
	}
	return nil
}

func (s *managerFakeSink) finish(guildID string) {
	s.mu.Lock()
	onComplete := s.completions[guildID]
	delete(s.completions, guildID)
	s.mu.Unlock()
	if onComplete != nil {
		onComplete(nil)
	}
}

func (s *managerFakeSink) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

// failingFetcher rejects every request with a classified network failure
type failingFetcher struct{}

func (failingFetcher) Fetch(ctx context.Context, req *track.Request) (*track.Record, error) {
	return nil, fetcher.NewNetworkError(errors.New("upstream unreachable"))
}

// memoryStore is an in-memory PlaybackStore
type memoryStore struct {
	mu      sync.Mutex
	errs    []models.PlaybackError
	history []models.PlaybackHistory
}

func (s *memoryStore) SaveError(guildID, errorType, errorMsg, sourceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, models.PlaybackError{
		GuildID:   guildID,
		ErrorType: errorType,
		ErrorMsg:  errorMsg,
		SourceURL: sourceURL,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *memoryStore) SaveHistory(guildID, title, sourceURL, duration string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.PlaybackHistory{
		GuildID:   guildID,
		Title:     title,
		SourceURL: sourceURL,
		Duration:  duration,
		Timestamp: time.Now(),
	})
	return nil
}

func (s *memoryStore) RecentErrors(guildID string, limit int) ([]models.PlaybackError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PlaybackError
	for i := len(s.errs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.errs[i].GuildID == guildID {
			out = append(out, s.errs[i])
		}
	}
	return out, nil
}

func (s *memoryStore) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *memoryStore) historyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func newTestManager(t *testing.T) (*Manager, *managerFakeSink) {
	t.Helper()
	return newTestManagerWith(t, &fileFetcher{dir: t.TempDir()}, nil)
}

func newTestManagerWith(t *testing.T, f fetcher.MediaFetcher, store PlaybackStore) (*Manager, *managerFakeSink) {
	t.Helper()
	sink := newManagerFakeSink()
	m := NewManager(
		f,
		sink,
		player.NopNotifier{},
		func(guildID, channelID string) int { return 1 },
		ManagerOptions{
			PollInterval: 10 * time.Millisecond,
			LeaveGrace:   time.Hour,
			Store:        store,
		},
		&testLoggerFactory{},
	)
	return m, sink
}

type noteCollector struct {
	mu       sync.Mutex
	outcomes []track.Outcome
}

func (c *noteCollector) Notify(outcome track.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
}

func (c *noteCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

func TestManagerSubmitStartsPlayback(t *testing.T) {
	m, sink := newTestManager(t)
	origin := &noteCollector{}

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://a", track.SourceDirect, origin))

	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return origin.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	snapshot := m.QueueSnapshot("g1")
	assert.Equal(t, player.StatePlaying, snapshot.State)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "https://a", snapshot.Current.SourceURL)
}

func TestManagerSequentialPlayback(t *testing.T) {
	m, sink := newTestManager(t)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://one", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://two", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return m.QueueSnapshot("g1").Ready != nil && len(m.QueueSnapshot("g1").Ready) == 1 }, 2*time.Second, 10*time.Millisecond)

	// The second track waits until the first finishes.
	assert.Equal(t, 1, sink.playedCount())
	sink.finish("g1")
	assert.Eventually(t, func() bool { return sink.playedCount() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestManagerClearQueue(t *testing.T) {
	m, sink := newTestManager(t)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://one", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://two", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return len(m.QueueSnapshot("g1").Ready) == 1 }, 2*time.Second, 10*time.Millisecond)

	m.ClearQueue("g1")

	assert.Eventually(t, func() bool {
		snapshot := m.QueueSnapshot("g1")
		return snapshot.Current == nil && len(snapshot.Ready) == 0 && snapshot.PipelineDepth == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, player.StateIdle, m.QueueSnapshot("g1").State)
}

func TestManagerSkip(t *testing.T) {
	m, sink := newTestManager(t)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://one", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	skipped := m.SkipCurrent("g1")
	require.NotNil(t, skipped)
	assert.Equal(t, "https://one", skipped.SourceURL)
}

func TestManagerGuildIsolation(t *testing.T) {
	m, sink := newTestManager(t)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://a", track.SourceDirect, nil))
	require.NoError(t, m.SubmitForDownload("g2", "voice-2", "https://b", track.SourceDirect, nil))

	assert.Eventually(t, func() bool { return sink.playedCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	m.ClearQueue("g1")
	snapshot := m.QueueSnapshot("g2")
	assert.Equal(t, player.StatePlaying, snapshot.State)
}

func TestManagerPauseResume(t *testing.T) {
	m, sink := newTestManager(t)

	assert.False(t, m.PauseCurrent("g1"), "no controller yet")

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://a", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.True(t, m.PauseCurrent("g1"))
	assert.Equal(t, player.StatePaused, m.QueueSnapshot("g1").State)
	assert.True(t, sink.isPaused("g1"))

	require.True(t, m.ResumeCurrent("g1"))
	assert.Equal(t, player.StatePlaying, m.QueueSnapshot("g1").State)
	assert.False(t, sink.isPaused("g1"))
}

func TestManagerPersistsFetchFailures(t *testing.T) {
	store := &memoryStore{}
	m, _ := newTestManagerWith(t, failingFetcher{}, store)

	origin := &noteCollector{}
	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://broken", track.SourceDirect, origin))

	assert.Eventually(t, func() bool { return store.errorCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	// The requester still hears about the failure after it is recorded.
	assert.Eventually(t, func() bool { return origin.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	recent, err := m.RecentErrors("g1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, string(fetcher.ErrorKindNetworkFailure), recent[0].ErrorType)
	assert.Equal(t, "https://broken", recent[0].SourceURL)
	assert.NotEmpty(t, recent[0].ErrorMsg)
}

func TestManagerPersistsPlaybackHistory(t *testing.T) {
	store := &memoryStore{}
	m, sink := newTestManagerWith(t, &fileFetcher{dir: t.TempDir()}, store)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://song", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, store.historyCount(), "history records finished tracks only")

	sink.finish("g1")
	assert.Eventually(t, func() bool { return store.historyCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	entry := store.history[0]
	store.mu.Unlock()
	assert.Equal(t, "g1", entry.GuildID)
	assert.Equal(t, "https://song", entry.SourceURL)
}

func TestManagerShutdown(t *testing.T) {
	m, sink := newTestManager(t)

	require.NoError(t, m.SubmitForDownload("g1", "voice-1", "https://a", track.SourceDirect, nil))
	assert.Eventually(t, func() bool { return sink.playedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.Shutdown()

	snapshot := m.QueueSnapshot("g1")
	assert.Nil(t, snapshot.Current)
	assert.Equal(t, player.StateIdle, snapshot.State)
}
