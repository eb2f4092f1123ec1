package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Albinjegus10/mobilechat/internal/wire"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

// State is the connection lifecycle state of a room session.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateRetrying   State = "retrying"
)

const (
	// defaultMaxRetries is the reconnect budget per outage.
	defaultMaxRetries = 5
	// defaultRetryDelay is the fixed delay between reconnect attempts. No
	// growth, no jitter.
	defaultRetryDelay = 3 * time.Second
)

// Events receives session notifications.
//
// Methods are invoked on the session's event loop: implementations must
// return quickly and must not call back into the session synchronously.
type Events interface {
	// TimelineChanged delivers a fresh read-only snapshot after any merge.
	TimelineChanged(room string, messages []Message)
	// StateChanged reports connection lifecycle transitions.
	StateChanged(room string, state State)
	// SessionError reports user-visible, non-fatal faults.
	SessionError(room string, kind ErrorKind, err error)
}

// Config carries the collaborators and tuning knobs for a room session.
type Config struct {
	// ServerURL is the REST base URL (history, media upload).
	ServerURL string
	// SocketURL is the websocket base URL. Derived from ServerURL if empty.
	SocketURL string
	// Username is the local user's display name, stamped on outbound sends.
	Username string

	// Dial opens live connections. Required.
	Dial Dialer
	// Tokens supplies a fresh credential per connection attempt. Required.
	Tokens TokenProvider
	// HTTPClient is shared by the history fetcher and uploader.
	HTTPClient *http.Client

	// MaxRetries bounds reconnect attempts per outage (default 5).
	MaxRetries int
	// RetryDelay is the fixed backoff between attempts (default 3s).
	RetryDelay time.Duration
	// PageSize is the history page size (default 50).
	PageSize int
	// PendingTimeout, when positive, downgrades a pending entry to failed
	// if its confirmed echo never arrives. Zero keeps pending entries
	// indefinitely, matching observed app behavior.
	PendingTimeout time.Duration
	// ReconcileWindow bounds echo reconciliation timestamp skew.
	ReconcileWindow time.Duration

	// Notify, when set, is called for confirmed messages authored by other
	// senders. Failures are the callee's problem; the session ignores them.
	Notify func(room, sender, body string)
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.SocketURL == "" {
		c.SocketURL = deriveSocketURL(c.ServerURL)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}

// deriveSocketURL maps an http(s) REST base to its ws(s) counterpart.
func deriveSocketURL(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil {
		return serverURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// Session owns the live connection, timeline, pagination cursor, and
// in-flight sends for one open room view.
//
// All mutable state below the loop is owned by the loop goroutine.
type Session struct {
	room    string
	cfg     Config
	events  Events
	loop    *loop
	fetcher *HistoryFetcher
	upload  *Uploader

	state      State
	retryCount int
	retryTimer *time.Timer
	conn       Conn
	dialCancel context.CancelFunc

	// gen identifies the current session incarnation. Start and Close bump
	// it; async completions (fetches, retry timers, connection callbacks)
	// carry the gen they were issued under and are discarded on mismatch,
	// so a torn-down incarnation can never touch a newer timeline.
	gen    int
	closed bool

	timeline *Timeline
	cursor   string
	fetching bool

	// pendingTimers maps provisional ids to their optional expiry timers.
	pendingTimers map[string]*time.Timer
}

// NewSession creates a session for room. Call Start to begin syncing.
func NewSession(room string, cfg Config, events Events) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		room:          room,
		cfg:           cfg,
		events:        events,
		loop:          newLoop(defaultLoopQueueSize),
		fetcher:       NewHistoryFetcher(cfg.ServerURL, cfg.PageSize, cfg.Tokens, cfg.HTTPClient),
		upload:        NewUploader(cfg.ServerURL, cfg.Tokens, cfg.HTTPClient),
		state:         StateClosed,
		timeline:      NewTimeline(room, cfg.ReconcileWindow),
		pendingTimers: make(map[string]*time.Timer),
	}
}

// Room returns the session's room identifier.
func (s *Session) Room() string {
	return s.room
}

// Start opens the live connection and loads the first history page.
// Calling Start on a running session restarts it: the connection is
// re-dialed and the pagination cursor resets.
func (s *Session) Start() {
	_ = s.loop.do(func() {
		if s.closed {
			return
		}
		s.gen++
		s.cursor = ""
		s.fetching = false
		s.retryCount = 0
		s.cancelRetry()
		s.cancelDial()
		s.dropConn()
		s.connect()
		s.fetchPage("", true)
	})
}

// Close tears the session down: closes any live connection, cancels any
// scheduled retry, and expires the event loop. Idempotent.
func (s *Session) Close() {
	_ = s.loop.do(func() {
		if s.closed {
			return
		}
		s.closed = true
		s.gen++
		s.cancelRetry()
		s.cancelDial()
		s.dropConn()
		for id, timer := range s.pendingTimers {
			timer.Stop()
			delete(s.pendingTimers, id)
		}
		s.setState(StateClosed)
		s.loop.close()
	})
}

// State returns the current connection state.
func (s *Session) State() State {
	value, err := s.loop.call(func() (any, error) { return s.state, nil })
	if err != nil {
		return StateClosed
	}
	return value.(State)
}

// Snapshot returns a read-only copy of the timeline.
func (s *Session) Snapshot() []Message {
	value, err := s.loop.call(func() (any, error) { return s.timeline.Snapshot(), nil })
	if err != nil {
		return nil
	}
	return value.([]Message)
}

// LoadOlder requests the next older history page. Requests made while a
// fetch is outstanding are dropped, not queued.
func (s *Session) LoadOlder() {
	_ = s.loop.do(func() {
		if s.closed {
			return
		}
		s.fetchPage(s.cursor, true)
	})
}

// connect starts one connection attempt. Runs on the loop, but the dial
// itself runs off-loop: a slow handshake must not block commands or
// teardown. Close cancels the dial context, so a connecting session tears
// down without waiting out the handshake.
func (s *Session) connect() {
	if s.closed {
		return
	}
	s.setState(StateConnecting)

	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.dialCancel = cancel

	go func() {
		conn, err := s.dialOnce(ctx, gen)
		cancel()
		_ = s.loop.do(func() {
			if s.closed || gen != s.gen {
				if conn != nil {
					_ = conn.Close()
				}
				return
			}
			s.dialCancel = nil
			if err != nil {
				s.connectionLost(err)
				return
			}
			s.conn = conn
			s.retryCount = 0
			s.setState(StateOpen)
			logger.Debugf("session %s: connection open", s.room)
		})
	}()
}

// dialOnce performs a single dial attempt. Runs off-loop.
func (s *Session) dialOnce(ctx context.Context, gen int) (Conn, error) {
	// A stale credential must never be reused across attempts.
	token, err := s.cfg.Tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("credential: %w", err)
	}

	target := socketURL(s.cfg.SocketURL, s.room, token)
	return s.cfg.Dial(ctx, target,
		func(data []byte) {
			_ = s.loop.do(func() { s.handleFrame(gen, data) })
		},
		func(cause error) {
			_ = s.loop.do(func() { s.handleConnClosed(gen, cause) })
		},
	)
}

// socketURL builds the live connection address: room in the path, current
// credential in the query.
func socketURL(base, room, token string) string {
	return fmt.Sprintf("%s/ws/api/%s/?token=%s", base, url.PathEscape(room), url.QueryEscape(token))
}

// handleConnClosed reacts to a transport-initiated close.
func (s *Session) handleConnClosed(gen int, cause error) {
	if s.closed || gen != s.gen {
		return
	}
	if cause == nil {
		cause = fmt.Errorf("connection closed")
	}
	logger.Debugf("session %s: connection lost: %v", s.room, cause)
	s.connectionLost(cause)
}

// connectionLost transitions to closed and schedules a retry while budget
// remains. Exhausting the budget surfaces exactly one terminal transport
// error.
func (s *Session) connectionLost(cause error) {
	s.dropConn()
	s.setState(StateClosed)

	if s.retryCount >= s.cfg.MaxRetries {
		s.events.SessionError(s.room, ErrorTransport,
			fmt.Errorf("connection failed after %d attempts: %w", s.retryCount, cause))
		return
	}

	s.retryCount++
	s.setState(StateRetrying)
	gen := s.gen
	s.retryTimer = time.AfterFunc(s.cfg.RetryDelay, func() {
		_ = s.loop.do(func() {
			if s.closed || gen != s.gen {
				return
			}
			s.retryTimer = nil
			s.connect()
		})
	})
}

func (s *Session) cancelRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func (s *Session) cancelDial() {
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
}

func (s *Session) dropConn() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// handleFrame parses and merges one inbound live frame. Malformed frames
// are dropped and logged, never fatal.
func (s *Session) handleFrame(gen int, data []byte) {
	if s.closed || gen != s.gen {
		return
	}
	frame, err := wire.DecodeFrame(data)
	if err != nil {
		logger.Warnf("session %s: dropping malformed frame: %v", s.room, err)
		return
	}
	m, err := MessageFromFrame(frame, s.room, time.Now())
	if err != nil {
		logger.Warnf("session %s: dropping frame: %v", s.room, err)
		return
	}
	s.ingest(m)
}

// ingest merges a message and publishes the result. Runs on the loop.
func (s *Session) ingest(m Message) {
	res := s.timeline.Ingest(m)
	for _, provisionalID := range res.Reconciled {
		s.clearPendingTimer(provisionalID)
	}
	if !res.Changed {
		return
	}
	if s.cfg.Notify != nil && m.Status == StatusConfirmed && m.Sender != s.cfg.Username {
		s.cfg.Notify(s.room, m.Sender, m.Body)
	}
	s.publishTimeline()
}

// fetchPage runs one history fetch. advance controls whether the returned
// cursor replaces the session cursor: pagination advances it, the
// post-upload refresh does not.
func (s *Session) fetchPage(cursor string, advance bool) {
	if s.fetching {
		return
	}
	s.fetching = true
	gen := s.gen

	go func() {
		page, next, err := s.fetcher.FetchPage(context.Background(), s.room, cursor)
		_ = s.loop.do(func() {
			if s.closed || gen != s.gen {
				return
			}
			s.fetching = false
			if err != nil {
				// Cursor untouched: a retry re-requests the same page.
				s.events.SessionError(s.room, ErrorFetch, err)
				return
			}
			res := s.timeline.IngestBatch(page)
			for _, provisionalID := range res.Reconciled {
				s.clearPendingTimer(provisionalID)
			}
			if advance && next != "" {
				s.cursor = next
			}
			if res.Changed {
				s.publishTimeline()
			}
		})
	}()
}

func (s *Session) publishTimeline() {
	s.events.TimelineChanged(s.room, s.timeline.Snapshot())
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.state = state
	s.events.StateChanged(s.room, state)
}
