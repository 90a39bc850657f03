package player

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/queue"
	"github.com/latoulicious/Musho/pkg/track"
)

// State is the playback state of one guild
type State int

const (
	// StateIdle means no active stream and no pending leave
	StateIdle State = iota
	// StatePlaying means the audio sink is streaming a track
	StatePlaying
	// StatePaused means a track holds the sink but frame delivery is gated
	StatePaused
	// StateAwaitingLeave means the queue drained and the leave grace timer
	// is armed; a new track cancels the leave.
	StateAwaitingLeave
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAwaitingLeave:
		return "awaiting_leave"
	default:
		return "idle"
	}
}

const (
	defaultLeaveGrace          = 10 * time.Second
	maxConsecutiveSinkFailures = 3
)

// ControllerOptions tunes one guild's playback controller
type ControllerOptions struct {
	LeaveGrace      time.Duration
	LeaveChimePath  string
	MaxReconnects   int
	ReconnectWindow time.Duration
	// OnTrackFinished fires after a track plays to its natural end, outside
	// the controller lock. Used to persist playback history.
	OnTrackFinished func(t *track.Record)
}

// Controller drives the single-active-stream state machine for one guild.
// The sink's completion callback is the only thing that advances the queue,
// which guarantees sequential, non-overlapping playback.
type Controller struct {
	guildID  string
	session  *queue.GuildSession
	sink     VoiceSink
	notifier Notifier
	logger   logging.Logger
	opts     ControllerOptions

	mu           sync.Mutex
	state        State
	handle       VoiceHandle
	leaveTimer   *time.Timer
	sinkFailures int
	stopping     bool
	reconnects   *ReconnectTracker

	// gen identifies the current playback. A sink completion carrying an
	// older generation belongs to a superseded stream and must not touch
	// the queue.
	gen uint64
	// notes holds notifications queued under mu for delivery after unlock,
	// so a slow chat layer cannot stall the state machine.
	notes []func(Notifier)
}

// NewController creates an idle controller for one guild
func NewController(guildID string, session *queue.GuildSession, sink VoiceSink, notifier Notifier, opts ControllerOptions, logger logging.Logger) *Controller {
	if opts.LeaveGrace <= 0 {
		opts.LeaveGrace = defaultLeaveGrace
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Controller{
		guildID:    guildID,
		session:    session,
		sink:       sink,
		notifier:   notifier,
		logger:     logger,
		opts:       opts,
		reconnects: NewReconnectTracker(opts.MaxReconnects, opts.ReconnectWindow),
	}
}

// Connect joins the voice channel and stores the handle
func (c *Controller) Connect(channelID string) error {
	handle, err := c.sink.Connect(c.guildID, channelID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()
	return nil
}

// State returns the controller's current playback state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsPlaying reports whether a track is actively streaming
func (c *Controller) IsPlaying() bool {
	return c.State() == StatePlaying
}

// IsActive reports whether a track holds the sink, playing or paused
func (c *Controller) IsActive() bool {
	s := c.State()
	return s == StatePlaying || s == StatePaused
}

// Connected reports whether a live voice handle exists
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil && c.handle.Connected()
}

// ChannelID returns the connected voice channel, or ""
func (c *Controller) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ""
	}
	return c.handle.ChannelID()
}

// PlayNext starts the next ready track if the sink is idle. Called when a
// fetched track lands in the queue and after every track completion.
func (c *Controller) PlayNext() {
	c.mu.Lock()
	c.playNextLocked()
	notes := c.takeNotesLocked()
	c.mu.Unlock()
	c.deliver(notes)
}

// playNextLocked walks the ready list until a playable track is found. The
// loop is bounded by queue length so a run of missing files cannot recurse
// unboundedly.
func (c *Controller) playNextLocked() {
	if c.state == StatePlaying || c.state == StatePaused {
		return
	}
	if c.stopping {
		// A stop is in flight; its completion still owns the current slot.
		return
	}
	c.cancelLeaveLocked()

	if c.handle == nil || !c.handle.Connected() {
		c.state = StateIdle
		return
	}

	limit := c.session.Queue.ReadyLen() + 1
	for i := 0; i < limit; i++ {
		next := c.session.Queue.PopNext()
		if next == nil {
			c.beginAwaitingLeaveLocked()
			return
		}

		if _, err := os.Stat(next.LocalFilePath); err != nil {
			perr := &PlaybackError{Kind: ErrorKindFileMissing, Path: next.LocalFilePath}
			c.logger.Warn("skipping track with missing file", map[string]interface{}{
				"guild_id": c.guildID,
				"title":    next.Title,
				"error":    perr.Error(),
			})
			c.session.Queue.FinishCurrent()
			continue
		}

		c.gen++
		if err := c.sink.Play(c.handle, next.LocalFilePath, c.completionFor(next, c.gen)); err != nil {
			c.logger.Error("sink refused track", err, map[string]interface{}{
				"guild_id": c.guildID,
				"title":    next.Title,
			})
			c.session.Queue.FinishCurrent()
			if c.registerSinkFailureLocked() {
				return
			}
			continue
		}

		c.state = StatePlaying
		c.stopping = false
		c.logger.Info("playback started", map[string]interface{}{
			"guild_id": c.guildID,
			"title":    next.Title,
			"duration": next.DurationDisplay,
		})
		c.noteLocked(func(n Notifier) { n.NowPlaying(c.guildID, next) })
		return
	}

	c.beginAwaitingLeaveLocked()
}

// completionFor builds the sink completion callback for one track. This is
// the only place the queue advances after playback. gen fences the callback
// to the stream that registered it: a voice drop or stop can leave a late
// completion behind, and acting on it would release whichever track is
// current by then.
func (c *Controller) completionFor(t *track.Record, gen uint64) func(error) {
	return func(playErr error) {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			c.logger.Debug("ignoring completion from superseded stream", map[string]interface{}{
				"guild_id": c.guildID,
				"title":    t.Title,
			})
			return
		}

		c.session.Queue.FinishCurrent()

		if c.stopping {
			c.stopping = false
			c.state = StateIdle
			c.mu.Unlock()
			return
		}

		finished := false
		if playErr != nil {
			c.logger.Error("playback ended with sink failure", playErr, map[string]interface{}{
				"guild_id": c.guildID,
				"title":    t.Title,
			})
			if c.registerSinkFailureLocked() {
				notes := c.takeNotesLocked()
				c.mu.Unlock()
				c.deliver(notes)
				return
			}
		} else {
			finished = true
			c.sinkFailures = 0
			c.logger.Info("playback finished", map[string]interface{}{
				"guild_id": c.guildID,
				"title":    t.Title,
			})
		}

		c.state = StateIdle
		c.playNextLocked()
		notes := c.takeNotesLocked()
		c.mu.Unlock()

		if finished && c.opts.OnTrackFinished != nil {
			c.opts.OnTrackFinished(t)
		}
		c.deliver(notes)
	}
}

// registerSinkFailureLocked counts a consecutive sink failure and trips the
// breaker once the threshold is hit: the guild drops to Idle and the user
// gets one aggregated error instead of one per queued track.
func (c *Controller) registerSinkFailureLocked() bool {
	c.sinkFailures++
	if c.sinkFailures < maxConsecutiveSinkFailures {
		return false
	}

	failures := c.sinkFailures
	c.sinkFailures = 0
	c.state = StateIdle
	c.logger.Error("stopping playback after repeated sink failures", nil, map[string]interface{}{
		"guild_id":             c.guildID,
		"consecutive_failures": failures,
	})
	c.noteLocked(func(n Notifier) {
		n.PlaybackIssue(c.guildID, fmt.Sprintf("Playback stopped after %d consecutive audio failures. Check the voice connection and try again.", failures))
	})
	return true
}

func (c *Controller) beginAwaitingLeaveLocked() {
	if c.state == StateAwaitingLeave {
		return
	}
	c.state = StateAwaitingLeave
	c.leaveTimer = time.AfterFunc(c.opts.LeaveGrace, c.completeLeave)
	c.logger.Info("queue drained, leave grace started", map[string]interface{}{
		"guild_id": c.guildID,
		"grace":    c.opts.LeaveGrace.String(),
	})
}

func (c *Controller) cancelLeaveLocked() {
	if c.leaveTimer != nil {
		c.leaveTimer.Stop()
		c.leaveTimer = nil
	}
	if c.state == StateAwaitingLeave {
		c.state = StateIdle
	}
}

// completeLeave fires when the grace window elapses with no new tracks. A
// short chime plays before disconnecting when one is configured.
func (c *Controller) completeLeave() {
	c.mu.Lock()
	if c.state != StateAwaitingLeave {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.leaveTimer = nil
	handle := c.handle
	c.handle = nil
	c.mu.Unlock()

	if handle == nil || !handle.Connected() {
		return
	}

	c.playChime(handle)

	if err := c.sink.Disconnect(handle); err != nil {
		c.logger.Warn("voice disconnect failed", map[string]interface{}{
			"guild_id": c.guildID,
			"error":    err.Error(),
		})
	}

	c.logger.Info("left voice channel after queue ended", map[string]interface{}{
		"guild_id": c.guildID,
	})
	c.notifySafe(func(n Notifier) { n.QueueEnded(c.guildID) })
}

func (c *Controller) playChime(handle VoiceHandle) {
	chime := c.opts.LeaveChimePath
	if chime == "" {
		return
	}
	if _, err := os.Stat(chime); err != nil {
		return
	}

	done := make(chan struct{})
	if err := c.sink.Play(handle, chime, func(error) { close(done) }); err != nil {
		return
	}
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		c.sink.Stop(handle)
	}
}

// Pause gates frame delivery on the current stream. Returns false when
// nothing is playing.
func (c *Controller) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying || c.handle == nil {
		return false
	}
	c.sink.Pause(c.handle)
	c.state = StatePaused
	c.logger.Info("playback paused", map[string]interface{}{
		"guild_id": c.guildID,
	})
	return true
}

// Resume reopens frame delivery on a paused stream. Returns false when
// nothing is paused.
func (c *Controller) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused || c.handle == nil {
		return false
	}
	c.sink.Resume(c.handle)
	c.state = StatePlaying
	c.logger.Info("playback resumed", map[string]interface{}{
		"guild_id": c.guildID,
	})
	return true
}

// Skip stops the current track; the sink's completion callback advances the
// queue. A paused track skips too. Returns the skipped track, or nil when
// nothing held the sink.
func (c *Controller) Skip() *track.Record {
	c.mu.Lock()
	current := c.session.Queue.Current()
	handle := c.handle
	active := c.state == StatePlaying || c.state == StatePaused
	c.mu.Unlock()

	if !active || handle == nil {
		return nil
	}
	c.sink.Stop(handle)
	return current
}

// Stop halts playback without advancing the queue and optionally
// disconnects. Used by clear/leave commands and shutdown.
func (c *Controller) Stop(disconnect bool) {
	c.mu.Lock()
	c.cancelLeaveLocked()
	handle := c.handle
	wasPlaying := c.state == StatePlaying || c.state == StatePaused
	if wasPlaying {
		c.stopping = true
	}
	c.state = StateIdle
	if disconnect {
		c.handle = nil
	}
	c.mu.Unlock()

	if handle == nil {
		return
	}
	if wasPlaying {
		c.sink.Stop(handle)
	}
	if disconnect && handle.Connected() {
		c.sink.Disconnect(handle)
	}
}

// LeaveIdle disconnects a guild the bot has been sitting alone in and
// announces it. Called by the auto-leave sweep.
func (c *Controller) LeaveIdle() {
	c.Stop(true)
	c.notifySafe(func(n Notifier) { n.IdleDisconnect(c.guildID) })
}

// HandleVoiceDisconnect reacts to an unexpected voice drop. With queued or
// current work the controller retries the same channel within the bounded
// reconnect window; beyond the bound it abandons the session to Idle.
func (c *Controller) HandleVoiceDisconnect(channelID string) {
	c.mu.Lock()
	// The interrupted stream's completion may still be in flight; advance
	// the generation so it cannot release whatever plays next.
	c.gen++
	c.stopping = false
	hasWork := c.session.Queue.Current() != nil ||
		c.session.Queue.ReadyLen() > 0 ||
		c.session.Pipeline.HasWork()

	if !hasWork {
		c.cancelLeaveLocked()
		c.handle = nil
		c.state = StateIdle
		c.mu.Unlock()
		return
	}

	if !c.reconnects.Allow(time.Now()) {
		c.handle = nil
		c.state = StateIdle
		c.session.Queue.FinishCurrent()
		c.mu.Unlock()

		c.logger.Error("abandoning voice session", ErrReconnectExhausted, map[string]interface{}{
			"guild_id": c.guildID,
			"channel":  channelID,
		})
		c.notifySafe(func(n Notifier) {
			n.PlaybackIssue(c.guildID, "Lost the voice connection and could not re-establish it. Playback stopped.")
		})
		return
	}
	c.cancelLeaveLocked()
	c.handle = nil
	wasPlaying := c.state == StatePlaying || c.state == StatePaused
	c.state = StateIdle
	c.mu.Unlock()

	c.logger.Warn("voice dropped with queued work, reconnecting", map[string]interface{}{
		"guild_id": c.guildID,
		"channel":  channelID,
	})

	handle, err := c.sink.Connect(c.guildID, channelID)
	if err != nil {
		c.logger.Error("voice reconnect failed", err, map[string]interface{}{
			"guild_id": c.guildID,
			"channel":  channelID,
		})
		return
	}

	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()

	if wasPlaying {
		// The sink lost the stream with the connection; the interrupted
		// track is released and playback resumes from the next one.
		c.mu.Lock()
		c.session.Queue.FinishCurrent()
		c.mu.Unlock()
	}
	c.PlayNext()
}

// noteLocked queues a notification while c.mu is held. Delivery happens
// after the lock is released so the chat layer can never block skip or
// completion handling.
func (c *Controller) noteLocked(fn func(Notifier)) {
	c.notes = append(c.notes, fn)
}

func (c *Controller) takeNotesLocked() []func(Notifier) {
	notes := c.notes
	c.notes = nil
	return notes
}

func (c *Controller) deliver(notes []func(Notifier)) {
	for _, fn := range notes {
		c.notifySafe(fn)
	}
}

// notifySafe delivers a notification without letting a misbehaving chat
// layer take the controller down.
func (c *Controller) notifySafe(fn func(Notifier)) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("playback notifier panicked", fmt.Errorf("%v", r), map[string]interface{}{
				"guild_id": c.guildID,
			})
		}
	}()
	fn(c.notifier)
}
