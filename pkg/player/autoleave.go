package player

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/latoulicious/Musho/pkg/logging"
	"github.com/latoulicious/Musho/pkg/queue"
)

const defaultAloneThreshold = 30 * time.Second

// OccupancyFunc reports how many non-bot members share the bot's voice
// channel. Negative means the channel could not be inspected.
type OccupancyFunc func(guildID, channelID string) int

// AutoLeaveSweeper periodically disconnects guilds where the bot has been
// alone and idle past a threshold. It runs every 15 seconds on the shared
// cron scheduler.
type AutoLeaveSweeper struct {
	registry   *queue.SessionRegistry
	controller func(guildID string) *Controller
	occupancy  OccupancyFunc
	threshold  time.Duration
	cron       *cron.Cron
	logger     logging.Logger
	now        func() time.Time
}

// NewAutoLeaveSweeper creates a sweeper; threshold <= 0 uses the 30s default
func NewAutoLeaveSweeper(registry *queue.SessionRegistry, controller func(guildID string) *Controller, occupancy OccupancyFunc, threshold time.Duration, logger logging.Logger) *AutoLeaveSweeper {
	if threshold <= 0 {
		threshold = defaultAloneThreshold
	}
	return &AutoLeaveSweeper{
		registry:   registry,
		controller: controller,
		occupancy:  occupancy,
		threshold:  threshold,
		logger:     logger,
		now:        time.Now,
	}
}

// Start schedules the sweep every 15 seconds
func (s *AutoLeaveSweeper) Start() error {
	s.cron = cron.New(cron.WithSeconds())
	if _, err := s.cron.AddFunc("*/15 * * * * *", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the periodic sweep
func (s *AutoLeaveSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// sweep checks every live session. The alone timestamp resets whenever the
// guild stops being alone-and-idle, so only a continuous stretch past the
// threshold triggers a disconnect.
func (s *AutoLeaveSweeper) sweep() {
	now := s.now()

	for _, session := range s.registry.All() {
		ctrl := s.controller(session.GuildID)
		if ctrl == nil || !ctrl.Connected() {
			session.ClearAlone()
			continue
		}

		idle := !ctrl.IsActive() &&
			session.Queue.IsEmpty() &&
			!session.Pipeline.HasWork()
		listeners := s.occupancy(session.GuildID, ctrl.ChannelID())

		if !idle || listeners != 0 {
			session.ClearAlone()
			continue
		}

		session.MarkAlone(now)
		since, _ := session.AloneSince()
		if now.Sub(since) <= s.threshold {
			continue
		}

		s.logger.Info("auto-leaving empty voice channel", map[string]interface{}{
			"guild_id":    session.GuildID,
			"alone_since": since.Format(time.RFC3339),
		})
		ctrl.LeaveIdle()
		session.ClearAlone()
	}
}
