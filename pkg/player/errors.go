package player

import (
	"errors"
	"fmt"
)

// PlaybackErrorKind classifies playback-stage failures
type PlaybackErrorKind string

const (
	// ErrorKindFileMissing means a ready track's file vanished before play
	ErrorKindFileMissing PlaybackErrorKind = "file_missing"
	// ErrorKindSinkFailure means the audio sink failed during playback
	ErrorKindSinkFailure PlaybackErrorKind = "sink_failure"
)

// PlaybackError wraps a playback-stage failure with its classification
type PlaybackError struct {
	Kind PlaybackErrorKind
	Path string
	Err  error
}

func (e *PlaybackError) Error() string {
	switch e.Kind {
	case ErrorKindFileMissing:
		return fmt.Sprintf("audio file missing: %s", e.Path)
	case ErrorKindSinkFailure:
		if e.Err != nil {
			return fmt.Sprintf("audio sink failure: %v", e.Err)
		}
		return "audio sink failure"
	}
	return string(e.Kind)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// ErrReconnectExhausted signals that bounded voice reconnect attempts were
// used up within the rolling window.
var ErrReconnectExhausted = errors.New("voice reconnect attempts exhausted")
