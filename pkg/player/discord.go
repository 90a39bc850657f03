package player

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/latoulicious/Musho/pkg/logging"
)

// Audio frame constants for 48kHz stereo Opus at 20ms frames
const (
	sampleRate     = 48000
	channels       = 2
	audioFrameSize = 960                           // samples per channel per 20ms frame
	audioChunkSize = audioFrameSize * channels * 2 // bytes of s16le PCM per frame
	opusBitrate    = 128000
)

type discordVoiceHandle struct {
	vc *discordgo.VoiceConnection
}

func (h *discordVoiceHandle) GuildID() string {
	return h.vc.GuildID
}

func (h *discordVoiceHandle) ChannelID() string {
	return h.vc.ChannelID
}

func (h *discordVoiceHandle) Connected() bool {
	return h.vc != nil && h.vc.Ready
}

type playbackProc struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

func (p *playbackProc) pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	p.resume = make(chan struct{})
}

func (p *playbackProc) unpause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.resume)
}

// waitIfPaused blocks the streaming loop while the pause gate is closed.
// Cancellation always wins so a stop lands even mid-pause.
func (p *playbackProc) waitIfPaused(ctx context.Context) {
	p.mu.Lock()
	resume := p.resume
	paused := p.paused
	p.mu.Unlock()
	if !paused {
		return
	}
	select {
	case <-resume:
	case <-ctx.Done():
	}
}

// DiscordVoiceSink streams local audio files into Discord voice channels:
// ffmpeg decodes to raw PCM, gopus encodes 20ms Opus frames, and frames go
// out over the voice connection's send channel.
type DiscordVoiceSink struct {
	session *discordgo.Session
	logger  logging.Logger

	mu     sync.Mutex
	active map[string]*playbackProc
}

// NewDiscordVoiceSink creates a sink bound to the given Discord session
func NewDiscordVoiceSink(session *discordgo.Session, logger logging.Logger) *DiscordVoiceSink {
	return &DiscordVoiceSink{
		session: session,
		logger:  logger,
		active:  make(map[string]*playbackProc),
	}
}

// Connect joins the voice channel muted-deafened-off and returns its handle
func (s *DiscordVoiceSink) Connect(guildID, channelID string) (VoiceHandle, error) {
	vc, err := s.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	return &discordVoiceHandle{vc: vc}, nil
}

// Play starts streaming filePath on the handle's guild. Returns an error if
// that guild is already streaming; onComplete fires exactly once otherwise.
func (s *DiscordVoiceSink) Play(handle VoiceHandle, filePath string, onComplete func(err error)) error {
	h, ok := handle.(*discordVoiceHandle)
	if !ok {
		return fmt.Errorf("foreign voice handle")
	}
	guildID := h.GuildID()

	s.mu.Lock()
	if _, busy := s.active[guildID]; busy {
		s.mu.Unlock()
		return fmt.Errorf("guild %s is already streaming", guildID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	proc := &playbackProc{cancel: cancel, done: make(chan struct{})}
	s.active[guildID] = proc
	s.mu.Unlock()

	go func() {
		err := s.stream(ctx, h.vc, filePath, proc)

		s.mu.Lock()
		delete(s.active, guildID)
		s.mu.Unlock()
		close(proc.done)

		if ctx.Err() != nil {
			// Stopped deliberately; a skip is not a failure.
			err = nil
		}
		if onComplete != nil {
			onComplete(err)
		}
	}()

	return nil
}

// Pause gates the handle's active stream before its next frame, if any
func (s *DiscordVoiceSink) Pause(handle VoiceHandle) {
	s.mu.Lock()
	proc := s.active[handle.GuildID()]
	s.mu.Unlock()
	if proc != nil {
		proc.pause()
	}
}

// Resume reopens a paused stream, if any
func (s *DiscordVoiceSink) Resume(handle VoiceHandle) {
	s.mu.Lock()
	proc := s.active[handle.GuildID()]
	s.mu.Unlock()
	if proc != nil {
		proc.unpause()
	}
}

// Stop cancels the handle's active stream, if any
func (s *DiscordVoiceSink) Stop(handle VoiceHandle) {
	s.mu.Lock()
	proc := s.active[handle.GuildID()]
	s.mu.Unlock()
	if proc != nil {
		proc.cancel()
	}
}

// IsPlaying reports whether the handle's guild has an active stream
func (s *DiscordVoiceSink) IsPlaying(handle VoiceHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, playing := s.active[handle.GuildID()]
	return playing
}

// Disconnect leaves the voice channel
func (s *DiscordVoiceSink) Disconnect(handle VoiceHandle) error {
	h, ok := handle.(*discordVoiceHandle)
	if !ok || h.vc == nil {
		return nil
	}
	return h.vc.Disconnect()
}

// stream decodes the file with ffmpeg and pushes Opus frames until EOF,
// cancellation, or a pipeline error.
func (s *DiscordVoiceSink) stream(ctx context.Context, vc *discordgo.VoiceConnection, filePath string, proc *playbackProc) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", filePath,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &PlaybackError{Kind: ErrorKindSinkFailure, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &PlaybackError{Kind: ErrorKindSinkFailure, Err: err}
	}
	go s.consumeStderr(stderr)

	if err := cmd.Start(); err != nil {
		return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}
	defer cmd.Wait()

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("failed to create opus encoder: %w", err)}
	}
	encoder.SetBitrate(opusBitrate)

	if err := s.waitForVoiceReady(ctx, vc); err != nil {
		return err
	}

	vc.Speaking(true)
	defer vc.Speaking(false)

	reader := bufio.NewReaderSize(stdout, audioChunkSize*10)
	buffer := make([]byte, audioChunkSize)

	for {
		proc.waitIfPaused(ctx)

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(reader, buffer)
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			// Pad the trailing partial frame with silence.
			for i := n; i < audioChunkSize; i++ {
				buffer[i] = 0
			}
		} else if err != nil {
			return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("error reading PCM data: %w", err)}
		}

		samples := bytesToInt16(buffer)
		opusData, err := encoder.Encode(samples, audioFrameSize, audioChunkSize)
		if err != nil {
			return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("opus encoding error: %w", err)}
		}

		select {
		case vc.OpusSend <- opusData:
		case <-ctx.Done():
			return nil
		case <-time.After(1 * time.Second):
			return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("voice send channel blocked")}
		}
	}
}

func (s *DiscordVoiceSink) waitForVoiceReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if vc.Ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return &PlaybackError{Kind: ErrorKindSinkFailure, Err: fmt.Errorf("voice connection never became ready")}
		case <-ticker.C:
		}
	}
}

func (s *DiscordVoiceSink) consumeStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			s.logger.Debug("ffmpeg", map[string]interface{}{"line": line})
		}
	}
}

// bytesToInt16 reinterprets little-endian PCM bytes as int16 samples
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}
