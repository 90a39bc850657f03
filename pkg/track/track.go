package track

import (
	"time"
)

// SourceKind identifies which acquisition path a request prefers.
type SourceKind int

const (
	// SourceDirect resolves the URL through the primary extractor.
	SourceDirect SourceKind = iota
	// SourceAccelerated prefers the accelerator API over direct extraction.
	SourceAccelerated
)

func (k SourceKind) String() string {
	switch k {
	case SourceAccelerated:
		return "accelerated"
	default:
		return "direct"
	}
}

// Request is one playback request submitted by a user. It is immutable once
// created and consumed exactly once by the download pipeline worker.
type Request struct {
	GuildID     string
	SourceURL   string
	Kind        SourceKind
	Origin      Originator
	SubmittedAt time.Time
}

// NewRequest creates a Request stamped with the submission time.
func NewRequest(guildID, sourceURL string, kind SourceKind, origin Originator) *Request {
	return &Request{
		GuildID:     guildID,
		SourceURL:   sourceURL,
		Kind:        kind,
		Origin:      origin,
		SubmittedAt: time.Now(),
	}
}

// Record is one fetched audio item ready for playback. The record itself is a
// value; the file behind LocalFilePath is an externally owned resource whose
// lifetime is governed by the queue's reference count, never by the record.
type Record struct {
	LocalFilePath   string
	Title           string
	DurationDisplay string
	SourceURL       string
	ThumbnailURL    string
	PlaylistContext string
}

// Outcome is the asynchronous result delivered back to a request's originator.
// Exactly one of Track or Err is set.
type Outcome struct {
	GuildID string
	Track   *Record
	Err     error
}

// Originator is the opaque capability a request carries for reporting results
// back to whoever submitted it. Notification is best effort; implementations
// must not block the pipeline and must never panic.
type Originator interface {
	Notify(outcome Outcome)
}

// OriginatorFunc adapts a plain function to the Originator interface.
type OriginatorFunc func(outcome Outcome)

// Notify calls f.
func (f OriginatorFunc) Notify(outcome Outcome) {
	f(outcome)
}
