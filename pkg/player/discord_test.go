package player

import (
	"context"
	"testing"
	"time"
)

func TestPlaybackProcPauseGate(t *testing.T) {
	proc := &playbackProc{done: make(chan struct{})}
	ctx := context.Background()

	// Without a pause the gate is transparent.
	passed := make(chan struct{})
	go func() {
		proc.waitIfPaused(ctx)
		close(passed)
	}()
	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("gate must be open while unpaused")
	}

	proc.pause()
	released := make(chan struct{})
	go func() {
		proc.waitIfPaused(ctx)
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("gate must hold while paused")
	case <-time.After(50 * time.Millisecond):
	}

	proc.unpause()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("resume must release the gate")
	}

	// Repeated transitions must not panic or deadlock.
	proc.pause()
	proc.pause()
	proc.unpause()
	proc.unpause()
}

func TestPlaybackProcPauseGateCancellation(t *testing.T) {
	proc := &playbackProc{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	proc.pause()
	released := make(chan struct{})
	go func() {
		proc.waitIfPaused(ctx)
		close(released)
	}()

	// A stop must land even while the stream is gated.
	cancel()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("cancellation must release a paused stream")
	}
}
