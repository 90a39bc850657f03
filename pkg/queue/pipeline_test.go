package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/track"
)

// gatedFetcher blocks each fetch until its URL's gate is opened, letting
// tests control completion order and observe in-flight counts.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	errs    map[string]error
	files   map[string]string
	started chan string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:   make(map[string]chan struct{}),
		errs:    make(map[string]error),
		files:   make(map[string]string),
		started: make(chan string, 64),
	}
}

func (f *gatedFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[url] = g
	return g
}

func (f *gatedFetcher) failWith(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *gatedFetcher) fileFor(url, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = path
}

func (f *gatedFetcher) Fetch(ctx context.Context, req *track.Request) (*track.Record, error) {
	select {
	case f.started <- req.SourceURL:
	default:
	}

	f.mu.Lock()
	gate := f.gates[req.SourceURL]
	err := f.errs[req.SourceURL]
	path := f.files[req.SourceURL]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &track.Record{
		Title:         req.SourceURL,
		SourceURL:     req.SourceURL,
		LocalFilePath: path,
	}, nil
}

// countingOriginator records every outcome it receives
type countingOriginator struct {
	mu       sync.Mutex
	outcomes []track.Outcome
}

func (o *countingOriginator) Notify(outcome track.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingOriginator) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.outcomes)
}

func (o *countingOriginator) errorCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, out := range o.outcomes {
		if out.Err != nil {
			n++
		}
	}
	return n
}

func newTestPipeline(t *testing.T, f fetcher.MediaFetcher, maxBuffer int) (*Pipeline, *PlaybackQueue) {
	t.Helper()
	q := NewPlaybackQueue("g1", NewFileRegistry(newTestLogger()), newTestLogger())
	p := NewPipeline("g1", q, f, PipelineOptions{
		MaxBuffer:    maxBuffer,
		PollInterval: 10 * time.Millisecond,
	}, newTestLogger())
	return p, q
}

func submitURL(p *Pipeline, url string, origin track.Originator) {
	p.Submit(track.NewRequest("g1", url, track.SourceDirect, origin))
}

func TestPipelineCompletionOrderPlayback(t *testing.T) {
	f := newGatedFetcher()
	gateA := f.gate("https://a")
	gateB := f.gate("https://b")
	p, q := newTestPipeline(t, f, 10)

	submitURL(p, "https://a", nil)
	submitURL(p, "https://b", nil)

	// Wait for both fetches to be in flight, then finish B before A.
	assert.Eventually(t, func() bool { return p.ActiveLen() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(gateB)
	assert.Eventually(t, func() bool { return q.ReadyLen() == 1 }, 2*time.Second, 5*time.Millisecond)
	close(gateA)
	assert.Eventually(t, func() bool { return q.ReadyLen() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Tracks are ordered by fetch completion, not submission.
	snapshot := q.ReadySnapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "https://b", snapshot[0].SourceURL)
	assert.Equal(t, "https://a", snapshot[1].SourceURL)
	assert.Equal(t, "https://b", q.PopNext().SourceURL)
}

func TestPipelineBufferBound(t *testing.T) {
	f := newGatedFetcher()
	var gates []chan struct{}
	for i := 0; i < 12; i++ {
		gates = append(gates, f.gate(fmt.Sprintf("https://u%d", i)))
	}
	p, q := newTestPipeline(t, f, 10)

	for i := 0; i < 12; i++ {
		submitURL(p, fmt.Sprintf("https://u%d", i), nil)
	}

	assert.Eventually(t, func() bool { return p.ActiveLen() == 10 }, 2*time.Second, 5*time.Millisecond)

	// The 11th and 12th must stay pending while the buffer is full.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 10, p.ActiveLen()+q.ReadyLen())
	assert.Equal(t, 2, p.PendingLen())

	// A completed fetch moves to the ready list but frees no slot: the
	// bound covers in-flight and ready together.
	close(gates[0])
	assert.Eventually(t, func() bool { return q.ReadyLen() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 10, p.ActiveLen()+q.ReadyLen())
	assert.Equal(t, 2, p.PendingLen())

	// Popping a track for playback frees a slot and admits one request.
	require.NotNil(t, q.PopNext())
	assert.Eventually(t, func() bool { return p.PendingLen() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, p.ActiveLen()+q.ReadyLen(), 10)

	for i := 1; i < 12; i++ {
		close(gates[i])
	}
	assert.Eventually(t, func() bool { return q.ReadyLen() == 10 && p.PendingLen() == 1 }, 5*time.Second, 5*time.Millisecond)

	// Consuming another track lets the last pending request through.
	q.FinishCurrent()
	require.NotNil(t, q.PopNext())
	assert.Eventually(t, func() bool { return q.ReadyLen() == 10 && p.PendingLen() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestPipelineFetchFailureNotifiesOnce(t *testing.T) {
	f := newGatedFetcher()
	f.failWith("https://bad", fetcher.NewUnsupportedError(nil))
	p, q := newTestPipeline(t, f, 10)

	origin := &countingOriginator{}
	submitURL(p, "https://bad", origin)

	assert.Eventually(t, func() bool { return origin.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, origin.errorCount())
	assert.Equal(t, 0, q.ReadyLen())

	// One failed request must not keep the worker alive.
	assert.Eventually(t, func() bool { return !p.WorkerRunning() }, 2*time.Second, 5*time.Millisecond)

	// And a later notification never arrives.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, origin.count())
}

func TestPipelineClearMidDownload(t *testing.T) {
	dir := t.TempDir()
	f := newGatedFetcher()
	p, q := newTestPipeline(t, f, 10)

	// Two tracks land in readyTracks first.
	readyPaths := []string{
		makeScratchFile(t, dir, "r0.mp3"),
		makeScratchFile(t, dir, "r1.mp3"),
	}
	f.fileFor("https://r0", readyPaths[0])
	f.fileFor("https://r1", readyPaths[1])
	submitURL(p, "https://r0", nil)
	submitURL(p, "https://r1", nil)
	assert.Eventually(t, func() bool { return q.ReadyLen() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Three more stay blocked mid-download.
	activePaths := make([]string, 3)
	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://d%d", i)
		activePaths[i] = makeScratchFile(t, dir, fmt.Sprintf("d%d.mp3", i))
		f.fileFor(url, activePaths[i])
		f.gate(url)
		submitURL(p, url, nil)
	}
	assert.Eventually(t, func() bool { return p.ActiveLen() == 3 }, 2*time.Second, 5*time.Millisecond)

	p.Clear()

	assert.Equal(t, 0, p.PendingLen())
	assert.False(t, p.WorkerRunning())
	assert.True(t, q.IsEmpty())
	for _, path := range readyPaths {
		assert.Eventually(t, fileGone(path), 2*time.Second, 10*time.Millisecond)
	}
	assert.Eventually(t, func() bool { return p.ActiveLen() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPipelineIdempotentWorkerStart(t *testing.T) {
	f := newGatedFetcher()
	gate := f.gate("https://a")
	p, q := newTestPipeline(t, f, 10)

	for i := 0; i < 5; i++ {
		submitURL(p, "https://a", nil)
	}
	assert.True(t, p.WorkerRunning())

	close(gate)
	assert.Eventually(t, func() bool { return !p.WorkerRunning() }, 2*time.Second, 5*time.Millisecond)

	// Only one fetch for the URL actually in flight at a time; the four
	// duplicates are suppressed rather than fetched concurrently.
	assert.GreaterOrEqual(t, q.ReadyLen(), 1)

	// A new submission lazily restarts the worker.
	submitURL(p, "https://fresh", nil)
	assert.Eventually(t, func() bool { return q.ReadyLen() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestPipelineDuplicateConcurrentFetchSuppressed(t *testing.T) {
	f := newGatedFetcher()
	gate := f.gate("https://dup")
	p, _ := newTestPipeline(t, f, 10)

	origin := &countingOriginator{}
	submitURL(p, "https://dup", origin)
	assert.Eventually(t, func() bool { return p.ActiveLen() == 1 }, 2*time.Second, 5*time.Millisecond)

	submitURL(p, "https://dup", origin)
	assert.Eventually(t, func() bool { return origin.errorCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, p.ActiveLen())

	close(gate)
	assert.Eventually(t, func() bool { return origin.count() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestPipelineTrackReadyCallback(t *testing.T) {
	f := newGatedFetcher()
	q := NewPlaybackQueue("g1", NewFileRegistry(newTestLogger()), newTestLogger())

	var mu sync.Mutex
	var readyGuilds []string
	p := NewPipeline("g1", q, f, PipelineOptions{
		MaxBuffer:    10,
		PollInterval: 10 * time.Millisecond,
		OnTrackReady: func(guildID string) {
			mu.Lock()
			readyGuilds = append(readyGuilds, guildID)
			mu.Unlock()
		},
	}, newTestLogger())

	submitURL(p, "https://a", nil)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(readyGuilds) == 1 && readyGuilds[0] == "g1"
	}, 2*time.Second, 5*time.Millisecond)
}
