package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// FetchErrorKind classifies why an acquisition attempt failed
type FetchErrorKind string

const (
	// ErrorKindUnsupported means no provider could resolve the URL
	ErrorKindUnsupported FetchErrorKind = "unsupported"
	// ErrorKindNetworkFailure means a transient transport error occurred
	ErrorKindNetworkFailure FetchErrorKind = "network_failure"
	// ErrorKindProvider means the upstream returned a semantic error
	ErrorKindProvider FetchErrorKind = "provider_error"
	// ErrorKindNoStream means the provider answered but produced no media URL
	ErrorKindNoStream FetchErrorKind = "no_stream_found"
)

// FetchError is the classified failure surfaced to the request originator.
// Code and Context carry the upstream's own error vocabulary when the kind
// is ErrorKindProvider.
type FetchError struct {
	Kind    FetchErrorKind
	Code    string
	Context string
	Err     error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrorKindUnsupported:
		return "no provider could resolve this URL"
	case ErrorKindNetworkFailure:
		if e.Err != nil {
			return fmt.Sprintf("network failure during fetch: %v", e.Err)
		}
		return "network failure during fetch"
	case ErrorKindProvider:
		if e.Context != "" {
			return fmt.Sprintf("provider error %s: %s", e.Code, truncate(e.Context, 200))
		}
		return fmt.Sprintf("provider error %s", e.Code)
	case ErrorKindNoStream:
		return "provider returned no usable stream"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewUnsupportedError creates a FetchError for URLs no provider handles
func NewUnsupportedError(err error) *FetchError {
	return &FetchError{Kind: ErrorKindUnsupported, Err: err}
}

// NewNetworkError creates a FetchError for transient transport failures
func NewNetworkError(err error) *FetchError {
	return &FetchError{Kind: ErrorKindNetworkFailure, Err: err}
}

// NewProviderError creates a FetchError carrying the upstream's error code
func NewProviderError(code, context string) *FetchError {
	return &FetchError{Kind: ErrorKindProvider, Code: code, Context: context}
}

// NewNoStreamError creates a FetchError for responses lacking a media URL
func NewNoStreamError() *FetchError {
	return &FetchError{Kind: ErrorKindNoStream}
}

// AsFetchError extracts a *FetchError from an error chain
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsUnsupported reports whether err classifies as an unsupported-URL failure
func IsUnsupported(err error) bool {
	fe, ok := AsFetchError(err)
	return ok && fe.Kind == ErrorKindUnsupported
}

// IsNetworkFailure reports whether err classifies as a transport failure
func IsNetworkFailure(err error) bool {
	fe, ok := AsFetchError(err)
	return ok && fe.Kind == ErrorKindNetworkFailure
}

// ClassifyExtractionError maps raw yt-dlp output to the fetch error taxonomy
func ClassifyExtractionError(err error, stderr string) *FetchError {
	msg := strings.ToLower(stderr)
	if msg == "" && err != nil {
		msg = strings.ToLower(err.Error())
	}

	switch {
	case strings.Contains(msg, "unsupported url"),
		strings.Contains(msg, "is not a valid url"),
		strings.Contains(msg, "no suitable extractor"):
		return NewUnsupportedError(err)
	case strings.Contains(msg, "unable to download"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "temporary failure"),
		strings.Contains(msg, "network"):
		return NewNetworkError(err)
	case strings.Contains(msg, "no video formats"),
		strings.Contains(msg, "requested format is not available"):
		return NewNoStreamError()
	case strings.Contains(msg, "private video"),
		strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "not available in your country"),
		strings.Contains(msg, "sign in to confirm"):
		return NewProviderError("content_unavailable", truncate(stderr, 300))
	}
	return NewProviderError("extraction_failed", truncate(stderr, 300))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
