package chat

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Albinjegus10/mobilechat/internal/wire"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
)

// outboundFrame builds the client -> server text payload.
func (s *Session) outboundFrame(body string, ts time.Time) wire.OutboundFrame {
	return wire.OutboundFrame{
		Message:   body,
		RoomID:    s.room,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Sender:    s.cfg.Username,
	}
}

// SendText composes and transmits a text message.
//
// A provisional entry appears in the timeline immediately with status
// pending. Without an open connection the call fails synchronously with a
// send error, the entry is marked failed, and no network call is attempted.
// The pending entry transitions to confirmed when the server echo is
// reconciled by the merger.
func (s *Session) SendText(body string) error {
	_, err := s.loop.call(func() (any, error) {
		return nil, s.sendText(body)
	})
	return err
}

func (s *Session) sendText(body string) error {
	if s.closed {
		return ErrSessionClosed
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return &SessionError{Kind: ErrorSend, Err: errors.New("empty message")}
	}

	now := time.Now()
	m := Message{
		ID:        NewProvisionalID(),
		RoomID:    s.room,
		Sender:    s.cfg.Username,
		Body:      body,
		Timestamp: now,
		Status:    StatusPending,
	}

	if s.state != StateOpen || s.conn == nil {
		m.Status = StatusFailed
		s.timeline.Ingest(m)
		s.publishTimeline()
		s.events.SessionError(s.room, ErrorSend, ErrNotConnected)
		return &SessionError{Kind: ErrorSend, Err: ErrNotConnected}
	}

	s.timeline.Ingest(m)
	s.publishTimeline()

	frame := s.outboundFrame(body, now)
	if err := s.conn.Send(frame); err != nil {
		s.timeline.MarkFailed(m.ID)
		s.publishTimeline()
		s.events.SessionError(s.room, ErrorSend, err)
		return &SessionError{Kind: ErrorSend, Err: err}
	}

	s.armPendingTimer(m.ID)
	return nil
}

// SendImage uploads the image at path and refreshes the newest history
// page once the server has persisted it.
//
// The provisional entry convention does not apply to images: the upload
// result only becomes visible through the refresh, mirroring the app this
// protocol comes from.
func (s *Session) SendImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		kind := ErrorSend
		if errors.Is(err, fs.ErrPermission) {
			kind = ErrorPermission
		}
		_ = s.loop.do(func() {
			s.events.SessionError(s.room, kind, err)
		})
		return &SessionError{Kind: kind, Err: err}
	}

	_, err = s.loop.call(func() (any, error) {
		if s.closed {
			return nil, ErrSessionClosed
		}
		gen := s.gen
		go func() {
			uploadErr := s.upload.Upload(context.Background(), s.room, path, bytes.NewReader(data))
			_ = s.loop.do(func() {
				if s.closed || gen != s.gen {
					return
				}
				if uploadErr != nil {
					s.events.SessionError(s.room, ErrorSend, uploadErr)
					return
				}
				// Current server behavior: re-fetch the newest page instead
				// of ingesting the upload echo directly. The merger dedups,
				// so this only tops up the timeline.
				s.fetchPage("", false)
			})
		}()
		return nil, nil
	})
	return err
}

// armPendingTimer schedules the optional pending-entry expiry. With no
// timeout configured, an unacknowledged entry stays pending indefinitely,
// which the presentation layer must render distinctly from failed.
func (s *Session) armPendingTimer(provisionalID string) {
	if s.cfg.PendingTimeout <= 0 {
		return
	}
	gen := s.gen
	s.pendingTimers[provisionalID] = time.AfterFunc(s.cfg.PendingTimeout, func() {
		_ = s.loop.do(func() {
			if s.closed || gen != s.gen {
				return
			}
			delete(s.pendingTimers, provisionalID)
			if s.timeline.MarkFailed(provisionalID) {
				logger.Debugf("session %s: pending send %s expired", s.room, provisionalID)
				s.publishTimeline()
			}
		})
	})
}

func (s *Session) clearPendingTimer(provisionalID string) {
	if timer, ok := s.pendingTimers[provisionalID]; ok {
		timer.Stop()
		delete(s.pendingTimers, provisionalID)
	}
}
