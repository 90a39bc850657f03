package queue

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/track"
)

const (
	// DefaultMaxBuffer caps in-flight downloads plus ready tracks per guild
	DefaultMaxBuffer = 10
	// DefaultPollInterval is how long the worker waits when the buffer is full
	DefaultPollInterval = 1 * time.Second
)

// PipelineOptions tunes one guild's download pipeline
type PipelineOptions struct {
	MaxBuffer    int
	PollInterval time.Duration
	// OnTrackReady fires after a fetched track lands in the ready list, so
	// playback can start if the guild's sink is idle.
	OnTrackReady func(guildID string)
}

func (o *PipelineOptions) applyDefaults() {
	if o.MaxBuffer <= 0 {
		o.MaxBuffer = DefaultMaxBuffer
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
}

// Pipeline is one guild's producer/consumer download loop. Admission to
// pendingRequests is unbounded; processing is bounded by MaxBuffer across
// in-flight fetches and ready tracks. A single lazily started worker drains
// the pending list and self-terminates when no work remains.
type Pipeline struct {
	guildID string
	queue   *PlaybackQueue
	fetcher fetcher.MediaFetcher
	opts    PipelineOptions
	logger  logging.Logger

	mu           sync.Mutex
	pending      []*track.Request
	active       map[string]context.CancelFunc
	workerCancel context.CancelFunc
}

// NewPipeline creates an idle pipeline for one guild
func NewPipeline(guildID string, q *PlaybackQueue, f fetcher.MediaFetcher, opts PipelineOptions, logger logging.Logger) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		guildID: guildID,
		queue:   q,
		fetcher: f,
		opts:    opts,
		logger:  logger,
		active:  make(map[string]context.CancelFunc),
	}
}

// Submit appends a request and ensures the worker is running. Starting an
// already-running worker is a no-op.
func (p *Pipeline) Submit(req *track.Request) {
	p.mu.Lock()
	p.pending = append(p.pending, req)
	if p.workerCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.workerCancel = cancel
		go p.runWorker(ctx)
	}
	p.mu.Unlock()

	p.logger.Debug("request submitted", map[string]interface{}{
		"guild_id": p.guildID,
		"url":      req.SourceURL,
	})
}

// PendingLen returns how many requests await processing
func (p *Pipeline) PendingLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// ActiveLen returns how many fetches are in flight
func (p *Pipeline) ActiveLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Depth returns pending plus in-flight work, for queue snapshots
func (p *Pipeline) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) + len(p.active)
}

// HasWork reports whether any request is pending or downloading
func (p *Pipeline) HasWork() bool {
	return p.Depth() > 0
}

// WorkerRunning reports whether the drain loop is currently alive
func (p *Pipeline) WorkerRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workerCancel != nil
}

// Clear cancels all in-flight fetches, drains the pending list without
// processing, stops the worker, and releases every queued track.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	for url, cancel := range p.active {
		cancel()
		delete(p.active, url)
	}
	dropped := len(p.pending)
	p.pending = nil
	if p.workerCancel != nil {
		p.workerCancel()
		p.workerCancel = nil
	}
	p.mu.Unlock()

	p.queue.Clear()

	p.logger.Info("pipeline cleared", map[string]interface{}{
		"guild_id":        p.guildID,
		"dropped_pending": dropped,
	})
}

// runWorker is the single drain loop per guild. Every iteration's failure is
// absorbed here; nothing a request does may kill the loop.
func (p *Pipeline) runWorker(ctx context.Context) {
	p.logger.Debug("pipeline worker started", map[string]interface{}{
		"guild_id": p.guildID,
	})

	for {
		p.mu.Lock()
		if ctx.Err() != nil {
			// Clear won the race; it already reset workerCancel.
			p.mu.Unlock()
			return
		}

		buffered := len(p.active) + p.queue.ReadyLen()
		if buffered >= p.opts.MaxBuffer {
			p.mu.Unlock()
			time.Sleep(p.opts.PollInterval)
			continue
		}

		if len(p.pending) == 0 {
			if len(p.active) == 0 {
				cancel := p.workerCancel
				p.workerCancel = nil
				p.mu.Unlock()
				if cancel != nil {
					cancel()
				}
				p.logger.Debug("pipeline worker exiting, no work left", map[string]interface{}{
					"guild_id": p.guildID,
				})
				return
			}
			p.mu.Unlock()
			time.Sleep(p.opts.PollInterval)
			continue
		}

		req := p.pending[0]
		p.pending = p.pending[1:]

		if _, inFlight := p.active[req.SourceURL]; inFlight {
			p.mu.Unlock()
			p.logger.Warn("duplicate concurrent fetch suppressed", map[string]interface{}{
				"guild_id": p.guildID,
				"url":      req.SourceURL,
			})
			p.notify(req, nil, fmt.Errorf("already downloading %s", req.SourceURL))
			continue
		}

		fetchCtx, fetchCancel := context.WithCancel(ctx)
		p.active[req.SourceURL] = fetchCancel
		p.mu.Unlock()

		go p.runFetch(fetchCtx, req)
	}
}

func (p *Pipeline) runFetch(ctx context.Context, req *track.Request) {
	record, err := p.fetcher.Fetch(ctx, req)

	p.mu.Lock()
	if cancel, ok := p.active[req.SourceURL]; ok {
		delete(p.active, req.SourceURL)
		defer cancel()
	}
	cancelled := ctx.Err() != nil

	position := 0
	if !cancelled && err == nil && record != nil {
		// Enqueue under the pipeline lock so a concurrent Clear either sees
		// this track in the queue and releases it, or cancelled us first.
		position = p.queue.EnqueueReady(record)
	}
	p.mu.Unlock()

	if cancelled {
		// The queue was cleared while we were downloading. The file never
		// entered the reference table, so remove it directly.
		if record != nil && record.LocalFilePath != "" {
			os.Remove(record.LocalFilePath)
		}
		return
	}

	if err != nil {
		p.logger.Warn("fetch failed", map[string]interface{}{
			"guild_id": p.guildID,
			"url":      req.SourceURL,
			"error":    err.Error(),
		})
		p.notify(req, nil, err)
		return
	}

	p.logger.Info("fetch completed", map[string]interface{}{
		"guild_id": p.guildID,
		"url":      req.SourceURL,
		"title":    record.Title,
		"position": position,
	})
	p.notify(req, record, nil)

	if p.opts.OnTrackReady != nil {
		p.safeTrackReady()
	}
}

// notify delivers an outcome to the originator. Best effort only; an
// originator that panics must not take the pipeline down with it.
func (p *Pipeline) notify(req *track.Request, record *track.Record, err error) {
	if req.Origin == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("originator notification panicked", fmt.Errorf("%v", r), map[string]interface{}{
				"guild_id": p.guildID,
				"url":      req.SourceURL,
			})
		}
	}()
	req.Origin.Notify(track.Outcome{
		GuildID: req.GuildID,
		Track:   record,
		Err:     err,
	})
}

func (p *Pipeline) safeTrackReady() {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("track-ready callback panicked", fmt.Errorf("%v", r), map[string]interface{}{
				"guild_id": p.guildID,
			})
		}
	}()
	p.opts.OnTrackReady(p.guildID)
}
