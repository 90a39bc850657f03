package music

import (
	"sync"
	"time"

	"github.com/latoulicious/Musho/pkg/fetcher"
	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/player"
	"github.com/latoulicious/Musho/pkg/queue"
	"github.com/latoulicious/Musho/pkg/track"
)

// Snapshot is a best-effort consistent view of one guild's queue state
type Snapshot struct {
	Current       *track.Record
	Ready         []*track.Record
	PipelineDepth int
	State         player.State
}

// ManagerOptions tunes every per-guild pipeline and controller the manager
// creates. Zero values fall back to package defaults.
type ManagerOptions struct {
	MaxBuffer       int
	PollInterval    time.Duration
	LeaveGrace      time.Duration
	LeaveChimePath  string
	MaxReconnects   int
	ReconnectWindow time.Duration
	AloneThreshold  time.Duration
	// Store receives playback history and classified fetch failures.
	// Nil disables persistence.
	Store PlaybackStore
}

// Manager is the command layer's single entry point into the download and
// playback core. It owns the session registry, the per-guild controllers,
// the shared file reference table, and the auto-leave sweep.
type Manager struct {
	fetcher       fetcher.MediaFetcher
	sink          player.VoiceSink
	notifier      player.Notifier
	loggerFactory logging.LoggerFactory
	logger        logging.Logger
	opts          ManagerOptions
	store         PlaybackStore

	files    *queue.FileRegistry
	registry *queue.SessionRegistry
	sweeper  *player.AutoLeaveSweeper

	mu          sync.Mutex
	controllers map[string]*player.Controller
}

// NewManager wires the core together. occupancy reports non-bot members in
// a voice channel for the auto-leave sweep.
func NewManager(f fetcher.MediaFetcher, sink player.VoiceSink, notifier player.Notifier, occupancy player.OccupancyFunc, opts ManagerOptions, loggerFactory logging.LoggerFactory) *Manager {
	m := &Manager{
		fetcher:       f,
		sink:          sink,
		notifier:      notifier,
		loggerFactory: loggerFactory,
		logger:        loggerFactory.CreateLogger("music"),
		opts:          opts,
		store:         opts.Store,
		controllers:   make(map[string]*player.Controller),
	}

	m.files = queue.NewFileRegistry(loggerFactory.CreateLogger("files"))
	m.registry = queue.NewSessionRegistry(func(guildID string) *queue.GuildSession {
		return queue.NewGuildSession(guildID, m.files, m.fetcher, queue.PipelineOptions{
			MaxBuffer:    opts.MaxBuffer,
			PollInterval: opts.PollInterval,
			OnTrackReady: m.handleTrackReady,
		}, loggerFactory)
	})
	m.sweeper = player.NewAutoLeaveSweeper(m.registry, m.controllerFor, occupancy, opts.AloneThreshold, loggerFactory.CreateLogger("autoleave"))

	return m
}

// Start launches the periodic auto-leave sweep
func (m *Manager) Start() error {
	return m.sweeper.Start()
}

// SubmitForDownload queues a URL for a guild, joining the requester's voice
// channel when not yet connected. The result reaches origin asynchronously.
func (m *Manager) SubmitForDownload(guildID, voiceChannelID, sourceURL string, kind track.SourceKind, origin track.Originator) error {
	session := m.registry.SessionFor(guildID)
	ctrl := m.controllerOrCreate(guildID, session)

	if voiceChannelID != "" && !ctrl.Connected() {
		if err := ctrl.Connect(voiceChannelID); err != nil {
			m.logger.Error("failed to join voice channel", err, map[string]interface{}{
				"guild_id": guildID,
				"channel":  voiceChannelID,
			})
			return err
		}
	}

	if m.store != nil {
		origin = m.recordFailures(sourceURL, origin)
	}
	session.Pipeline.Submit(track.NewRequest(guildID, sourceURL, kind, origin))
	return nil
}

// PauseCurrent gates the playing track; returns false when nothing plays
func (m *Manager) PauseCurrent(guildID string) bool {
	ctrl := m.controllerFor(guildID)
	if ctrl == nil {
		return false
	}
	return ctrl.Pause()
}

// ResumeCurrent reopens a paused track; returns false when nothing is paused
func (m *Manager) ResumeCurrent(guildID string) bool {
	ctrl := m.controllerFor(guildID)
	if ctrl == nil {
		return false
	}
	return ctrl.Resume()
}

// SkipCurrent skips the playing track; returns nil when nothing plays
func (m *Manager) SkipCurrent(guildID string) *track.Record {
	ctrl := m.controllerFor(guildID)
	if ctrl == nil {
		return nil
	}
	return ctrl.Skip()
}

// ClearQueue stops playback, cancels in-flight downloads, and releases all
// queued files. The voice connection stays up.
func (m *Manager) ClearQueue(guildID string) {
	if ctrl := m.controllerFor(guildID); ctrl != nil {
		ctrl.Stop(false)
	}
	if session, ok := m.registry.Peek(guildID); ok {
		session.Teardown()
	}
}

// Leave clears the guild's queue and disconnects from voice
func (m *Manager) Leave(guildID string) {
	if ctrl := m.controllerFor(guildID); ctrl != nil {
		ctrl.Stop(true)
	}
	if session, ok := m.registry.Peek(guildID); ok {
		session.Teardown()
	}
}

// QueueSnapshot returns a read-only view of the guild's queue
func (m *Manager) QueueSnapshot(guildID string) Snapshot {
	session, ok := m.registry.Peek(guildID)
	if !ok {
		return Snapshot{State: player.StateIdle}
	}

	snapshot := Snapshot{
		Current:       session.Queue.Current(),
		Ready:         session.Queue.ReadySnapshot(),
		PipelineDepth: session.Pipeline.Depth(),
		State:         player.StateIdle,
	}
	if ctrl := m.controllerFor(guildID); ctrl != nil {
		snapshot.State = ctrl.State()
	}
	return snapshot
}

// HandleVoiceDisconnect routes an unexpected voice drop to the guild's
// controller for bounded reconnection.
func (m *Manager) HandleVoiceDisconnect(guildID, channelID string) {
	if ctrl := m.controllerFor(guildID); ctrl != nil {
		ctrl.HandleVoiceDisconnect(channelID)
	}
}

// Shutdown tears down every guild session and stops the sweep
func (m *Manager) Shutdown() {
	m.sweeper.Stop()

	for _, session := range m.registry.All() {
		if ctrl := m.controllerFor(session.GuildID); ctrl != nil {
			ctrl.Stop(true)
		}
		session.Teardown()
		m.registry.Remove(session.GuildID)
	}

	m.mu.Lock()
	m.controllers = make(map[string]*player.Controller)
	m.mu.Unlock()

	m.logger.Info("music manager shut down", nil)
}

// handleTrackReady fires when a fetched track lands in a ready list. It
// starts playback only when the guild's sink is idle; a playing sink will
// reach the new track through its own completion chain.
func (m *Manager) handleTrackReady(guildID string) {
	ctrl := m.controllerFor(guildID)
	if ctrl == nil || ctrl.IsActive() {
		return
	}
	ctrl.PlayNext()
}

func (m *Manager) controllerFor(guildID string) *player.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controllers[guildID]
}

func (m *Manager) controllerOrCreate(guildID string, session *queue.GuildSession) *player.Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctrl, ok := m.controllers[guildID]; ok {
		return ctrl
	}
	ctrlOpts := player.ControllerOptions{
		LeaveGrace:      m.opts.LeaveGrace,
		LeaveChimePath:  m.opts.LeaveChimePath,
		MaxReconnects:   m.opts.MaxReconnects,
		ReconnectWindow: m.opts.ReconnectWindow,
	}
	if m.store != nil {
		ctrlOpts.OnTrackFinished = func(t *track.Record) { m.recordFinished(guildID, t) }
	}
	ctrl := player.NewController(guildID, session, m.sink, m.notifier, ctrlOpts, m.loggerFactory.CreatePlayerLogger(guildID))
	m.controllers[guildID] = ctrl
	return ctrl
}
