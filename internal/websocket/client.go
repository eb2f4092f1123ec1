// Package websocket implements the live room connection over a plain
// WebSocket with JSON frames.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Albinjegus10/mobilechat/internal/chat"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

var dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}

// Client is an established live connection. It satisfies chat.Conn.
type Client struct {
	conn *websocket.Conn

	writeMu     sync.Mutex
	localClose  atomic.Bool
	closeOnce   sync.Once
	handlerOnce sync.Once
}

// Dial connects to target, installs the frame/close handlers, and starts
// the read loop. It satisfies chat.Dialer.
func Dial(ctx context.Context, target string, onFrame chat.FrameHandler, onClose chat.CloseHandler) (chat.Conn, error) {
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{conn: conn}
	go c.readLoop(onFrame, onClose)
	return c, nil
}

func (c *Client) readLoop(onFrame chat.FrameHandler, onClose chat.CloseHandler) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf("websocket: read loop ended: %v", err)
			}
			cause := err
			if c.localClose.Load() {
				cause = nil
			}
			c.handlerOnce.Do(func() {
				if onClose != nil {
					onClose(cause)
				}
			})
			return
		}
		if onFrame != nil {
			onFrame(data)
		}
	}
}

// Send writes v as a JSON frame.
func (c *Client) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close tears the connection down. Idempotent; the close handler fires
// with a nil cause for a locally requested close.
func (c *Client) Close() error {
	c.localClose.Store(true)
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}
