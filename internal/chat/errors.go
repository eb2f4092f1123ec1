package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies session errors surfaced to the presentation layer.
type ErrorKind string

const (
	// ErrorTransport is a live-connection fault. Individual drops are
	// absorbed by the retry machinery; this kind is only surfaced when the
	// retry budget is exhausted.
	ErrorTransport ErrorKind = "transport"
	// ErrorFetch is a recoverable history-page failure. The pagination
	// cursor is left unchanged so a retry re-requests the same page.
	ErrorFetch ErrorKind = "fetch"
	// ErrorSend is a failed outbound send; the message is marked failed in
	// the timeline, never silently dropped.
	ErrorSend ErrorKind = "send"
	// ErrorPermission is a media-access denial. It does not affect the
	// connection state.
	ErrorPermission ErrorKind = "permission"
)

// ErrNotConnected is returned by sends attempted without an open connection.
var ErrNotConnected = errors.New("no open connection")

// ErrSessionClosed is returned by commands issued after teardown.
var ErrSessionClosed = errors.New("session closed")

// SessionError pairs an error with its presentation-facing kind.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
