// Package notify delivers push notifications for chat activity via
// Pushover. Notification failures are logged by callers at most; they never
// affect session state.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// pushoverEndpoint is the Pushover API endpoint used for message delivery.
	pushoverEndpoint = "https://api.pushover.net/1/messages.json"
	// pushoverContentType is the HTTP form content type required by Pushover.
	pushoverContentType = "application/x-www-form-urlencoded"
	// defaultPushoverTimeout is the HTTP timeout used for Pushover requests.
	defaultPushoverTimeout = 10 * time.Second
	// defaultCooldown rate-limits notifications per room so a busy room
	// does not turn into a notification storm.
	defaultCooldown = 30 * time.Second
)

// PushoverConfig describes the credentials and defaults for Pushover delivery.
type PushoverConfig struct {
	// Token is the application API token.
	Token string
	// UserKey is the destination user key.
	UserKey string
	// Cooldown is the minimum interval between notifications per room.
	// Zero selects the default.
	Cooldown time.Duration
}

// PushoverNotifier sends chat-message notifications to the Pushover service.
type PushoverNotifier struct {
	token    string
	userKey  string
	cooldown time.Duration

	client *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewPushoverNotifier creates a new notifier using the supplied config.
func NewPushoverNotifier(cfg PushoverConfig) (*PushoverNotifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("pushover token is required")
	}
	if strings.TrimSpace(cfg.UserKey) == "" {
		return nil, fmt.Errorf("pushover user key is required")
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	return &PushoverNotifier{
		token:    cfg.Token,
		userKey:  cfg.UserKey,
		cooldown: cooldown,
		client: &http.Client{
			Timeout: defaultPushoverTimeout,
		},
		lastSent: make(map[string]time.Time),
	}, nil
}

// NotifyMessage pushes a notification for a message received in room,
// subject to the per-room cooldown.
func (n *PushoverNotifier) NotifyMessage(ctx context.Context, room, sender, body string) error {
	if strings.TrimSpace(room) == "" {
		return fmt.Errorf("room is required")
	}
	if !n.shouldSend(room, time.Now()) {
		return nil
	}

	message := strings.TrimSpace(body)
	if message == "" {
		message = "sent an image"
	}
	if err := n.send(ctx, fmt.Sprintf("%s (room %s)", sender, room), message); err != nil {
		return err
	}
	n.markSent(room, time.Now())
	return nil
}

// shouldSend returns whether a notification is allowed under cooldown rules.
func (n *PushoverNotifier) shouldSend(room string, now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.lastSent[room]
	if !ok {
		return true
	}
	return now.Sub(last) >= n.cooldown
}

// markSent records a successful send time for a room.
func (n *PushoverNotifier) markSent(room string, now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSent[room] = now
}

// send performs the HTTP request to Pushover.
func (n *PushoverNotifier) send(ctx context.Context, title, message string) error {
	form := url.Values{}
	form.Set("token", n.token)
	form.Set("user", n.userKey)
	form.Set("title", title)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pushoverEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover request build failed: %w", err)
	}
	req.Header.Set("Content-Type", pushoverContentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pushover response read failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("pushover response %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
