// Package sdk is the embeddable client for the mobilechat server, shaped
// for gomobile bindings: string-based API, a Listener callback interface,
// and all work serialized on an internal dispatch queue.
package sdk

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Albinjegus10/mobilechat/internal/auth"
	"github.com/Albinjegus10/mobilechat/internal/chat"
	"github.com/Albinjegus10/mobilechat/internal/config"
	"github.com/Albinjegus10/mobilechat/internal/notify"
	"github.com/Albinjegus10/mobilechat/internal/websocket"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

const (
	// defaultHTTPTimeout is the per-request timeout used by the SDK HTTP client.
	defaultHTTPTimeout = 15 * time.Second
	// defaultDispatcherQueueSize is the mailbox size used by SDK dispatchers.
	defaultDispatcherQueueSize = 256
)

// Listener receives SDK events. Methods are invoked from a dedicated
// callback queue and must be safe to call from any goroutine.
type Listener interface {
	// OnTimelineChanged delivers the full ordered timeline for a room as a
	// JSON array, most recent first, after any merge.
	OnTimelineChanged(roomID string, timelineJSON string)
	// OnConnectionStateChanged reports a room session's lifecycle state:
	// connecting, open, retrying, or closed.
	OnConnectionStateChanged(roomID string, state string)
	// OnError delivers non-fatal errors: transport (terminal retry
	// exhaustion), fetch, send, or permission.
	OnError(roomID string, kind string, message string)
}

// Client owns the transport lifecycle and the per-room session engines.
//
// UI layers should be pure views over the Listener callbacks; they never
// observe or mutate session state directly.
type Client struct {
	cfg *config.Config

	mu         sync.Mutex
	listener   Listener
	sessions   map[string]*chat.Session
	httpClient *http.Client
	tokens     chat.TokenProvider
	notifier   *notify.PushoverNotifier

	dispatch  *dispatcher
	callbacks *dispatcher
}

// NewClient creates a new SDK client from resolved configuration.
func NewClient(cfg *config.Config) *Client {
	c := &Client{
		cfg:        cfg,
		sessions:   make(map[string]*chat.Session),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		tokens:     &auth.FileTokenProvider{Path: cfg.CredentialsPath},
		dispatch:   newDispatcher(),
		callbacks:  newDispatcher(),
	}
	if cfg.PushoverToken != "" && cfg.PushoverUser != "" {
		notifier, err := notify.NewPushoverNotifier(notify.PushoverConfig{
			Token:   cfg.PushoverToken,
			UserKey: cfg.PushoverUser,
		})
		if err != nil {
			logger.Warnf("pushover disabled: %v", err)
		} else {
			c.notifier = notifier
		}
	}
	return c
}

// SetListener registers the listener for SDK events.
func (c *Client) SetListener(listener Listener) {
	_, _ = c.dispatch.call(func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listener = listener
		return nil, nil
	})
}

// Shutdown tears down every open room session.
func (c *Client) Shutdown() {
	_, _ = c.dispatch.call(func() (any, error) {
		c.mu.Lock()
		sessions := make([]*chat.Session, 0, len(c.sessions))
		for _, s := range c.sessions {
			sessions = append(sessions, s)
		}
		c.sessions = make(map[string]*chat.Session)
		c.mu.Unlock()

		for _, s := range sessions {
			s.Close()
		}
		return nil, nil
	})
}

// serverURL returns the REST base URL without a trailing slash.
func (c *Client) serverURL() string {
	return strings.TrimRight(c.cfg.ServerURL, "/")
}

// sessionConfig assembles the per-room engine configuration.
func (c *Client) sessionConfig(username string) chat.Config {
	cfg := chat.Config{
		ServerURL:       c.serverURL(),
		SocketURL:       c.cfg.SocketURL,
		Username:        username,
		Dial:            websocket.Dial,
		Tokens:          c.tokens,
		HTTPClient:      c.httpClient,
		MaxRetries:      c.cfg.MaxRetries,
		RetryDelay:      c.cfg.RetryDelay,
		PageSize:        c.cfg.PageSize,
		PendingTimeout:  c.cfg.PendingTimeout,
		ReconcileWindow: c.cfg.ReconcileWindow,
	}
	if c.notifier != nil {
		notifier := c.notifier
		cfg.Notify = func(room, sender, body string) {
			go func() {
				if err := notifier.NotifyMessage(context.Background(), room, sender, body); err != nil {
					logger.Debugf("pushover: %v", err)
				}
			}()
		}
	}
	return cfg
}

func (c *Client) getListener() Listener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}
