package chat

import "context"

// TokenProvider supplies the current session credential on demand.
//
// The session never caches a credential across connection attempts: it asks
// the provider again before every dial, so externally rotated credentials
// take effect without the session being told.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenProvider interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token implements TokenProvider.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a provider that always yields the same credential.
// Intended for tests and one-shot tools.
func StaticToken(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// FrameHandler receives raw inbound frames from a live connection.
type FrameHandler func(data []byte)

// CloseHandler is invoked once when a live connection terminates. err is
// nil for a locally requested close.
type CloseHandler func(err error)

// Conn is an established live room connection.
type Conn interface {
	// Send writes v as a JSON frame.
	Send(v any) error
	// Close tears the connection down. It must be idempotent.
	Close() error
}

// Dialer opens a live connection. Handlers must be installed before any
// frame is delivered, so they are part of the dial call.
type Dialer func(ctx context.Context, url string, onFrame FrameHandler, onClose CloseHandler) (Conn, error)
