package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Albinjegus10/mobilechat/internal/chat"
	"github.com/Albinjegus10/mobilechat/internal/storage"
	"github.com/Albinjegus10/mobilechat/internal/wire"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

// ListRooms fetches the rooms visible to the logged-in user and returns
// them as a JSON array of {id, name} objects.
func (c *Client) ListRooms() (string, error) {
	value, err := c.dispatch.call(func() (any, error) {
		body, err := c.doRequest(context.Background(), http.MethodGet, "/api/rooms/")
		if err != nil {
			return "", err
		}
		var rooms []wire.RoomRecord
		if err := json.Unmarshal(body, &rooms); err != nil {
			return "", fmt.Errorf("decode rooms: %w", err)
		}
		out, err := json.Marshal(rooms)
		if err != nil {
			return "", err
		}
		return string(out), nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// StartRoom opens (or restarts) the sync session for a room. The timeline
// and connection state start flowing to the Listener immediately.
func (c *Client) StartRoom(roomID string) error {
	_, err := c.dispatch.call(func() (any, error) {
		return nil, c.startRoom(roomID)
	})
	return err
}

func (c *Client) startRoom(roomID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic("StartRoom", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if roomID == "" {
		return fmt.Errorf("room id is required")
	}

	c.mu.Lock()
	session, ok := c.sessions[roomID]
	c.mu.Unlock()
	if ok {
		// Restart re-dials and resets pagination on the existing session.
		session.Start()
		return nil
	}

	creds, err := storage.LoadCredentials(c.cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}

	session = chat.NewSession(roomID, c.sessionConfig(creds.Username), &sessionEvents{client: c})
	c.mu.Lock()
	c.sessions[roomID] = session
	c.mu.Unlock()

	session.Start()
	logLine(fmt.Sprintf("room %s started", roomID))
	return nil
}

// EndRoom closes the sync session for a room. Unknown rooms are a no-op.
func (c *Client) EndRoom(roomID string) {
	_, _ = c.dispatch.call(func() (any, error) {
		c.mu.Lock()
		session, ok := c.sessions[roomID]
		delete(c.sessions, roomID)
		c.mu.Unlock()

		if ok {
			session.Close()
			logLine(fmt.Sprintf("room %s ended", roomID))
		}
		return nil, nil
	})
}

// SendText sends a text message to a room the client has started.
func (c *Client) SendText(roomID, body string) error {
	session, err := c.session(roomID)
	if err != nil {
		return err
	}
	return session.SendText(body)
}

// SendImage uploads the image file at path to a room the client has
// started. The timeline refreshes once the server has persisted it.
func (c *Client) SendImage(roomID, path string) error {
	session, err := c.session(roomID)
	if err != nil {
		return err
	}
	return session.SendImage(path)
}

// LoadOlder requests the next older history page for a room.
func (c *Client) LoadOlder(roomID string) error {
	session, err := c.session(roomID)
	if err != nil {
		return err
	}
	session.LoadOlder()
	return nil
}

// RoomState returns a room session's connection state, or "closed" for
// rooms the client has not started.
func (c *Client) RoomState(roomID string) string {
	session, err := c.session(roomID)
	if err != nil {
		return string(chat.StateClosed)
	}
	return string(session.State())
}

// TimelineJSON returns the current timeline for a room as a JSON array,
// most recent first.
func (c *Client) TimelineJSON(roomID string) (string, error) {
	session, err := c.session(roomID)
	if err != nil {
		return "", err
	}
	return marshalTimeline(session.Snapshot())
}

func (c *Client) session(roomID string) (*chat.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.sessions[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s not started", roomID)
	}
	return session, nil
}

func marshalTimeline(messages []chat.Message) (string, error) {
	if messages == nil {
		messages = []chat.Message{}
	}
	out, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sessionEvents adapts session notifications onto the Listener, hopping to
// the callback queue so session loops never block on a slow host app.
type sessionEvents struct {
	client *Client
}

func (e *sessionEvents) TimelineChanged(room string, messages []chat.Message) {
	timelineJSON, err := marshalTimeline(messages)
	if err != nil {
		logger.Errorf("sdk: marshal timeline for room %s: %v", room, err)
		return
	}
	_ = e.client.callbacks.do(func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic("OnTimelineChanged", r)
			}
		}()
		if listener := e.client.getListener(); listener != nil {
			listener.OnTimelineChanged(room, timelineJSON)
		}
	})
}

func (e *sessionEvents) StateChanged(room string, state chat.State) {
	_ = e.client.callbacks.do(func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic("OnConnectionStateChanged", r)
			}
		}()
		if listener := e.client.getListener(); listener != nil {
			listener.OnConnectionStateChanged(room, string(state))
		}
	})
}

func (e *sessionEvents) SessionError(room string, kind chat.ErrorKind, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	_ = e.client.callbacks.do(func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic("OnError", r)
			}
		}()
		if listener := e.client.getListener(); listener != nil {
			listener.OnError(room, string(kind), message)
		}
	})
}
