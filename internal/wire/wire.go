// Package wire defines the JSON shapes exchanged with the chat server.
//
// The server speaks two dialects for the same logical message: the websocket
// consumer emits {"message","sender","timestamp","image","id","room_id"}
// while the REST serializer emits {"content","sender_name",...}. Decoders
// here are intentionally permissive: they accept either shape, tolerate
// missing optional fields, and never panic on malformed input.
package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Frame is a single inbound payload on the live room connection.
type Frame struct {
	// ID is the server-issued message id. It has been observed as both a
	// JSON string (uuid) and a JSON number (database pk), so it is kept raw
	// and normalized via IDString.
	ID json.RawMessage `json:"id,omitempty"`
	// Message is the text body. Optional; image-only messages omit it.
	Message string `json:"message,omitempty"`
	// Sender is the author's display name. Optional.
	Sender string `json:"sender,omitempty"`
	// Timestamp is an ISO instant. Optional.
	Timestamp string `json:"timestamp,omitempty"`
	// Image is an image resource URI. Optional.
	Image string `json:"image,omitempty"`
	// RoomID is the owning room. Optional; the connection is room-scoped.
	RoomID string `json:"room_id,omitempty"`
}

// DecodeFrame parses a raw websocket frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// IDString normalizes the raw id to a string, or "" when absent.
func (f Frame) IDString() string {
	return rawIDString(f.ID)
}

// OutboundFrame is the client -> server payload for a text send.
type OutboundFrame struct {
	Message   string `json:"message"`
	RoomID    string `json:"room_id"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
}

// HistoryRecord is one message record from the paginated history endpoint.
//
// The REST serializer uses "content" and "sender_name"; older responses and
// the upload echo use the frame field names. Accessors prefer the REST
// fields and fall back to the frame fields.
type HistoryRecord struct {
	ID         json.RawMessage `json:"id,omitempty"`
	Message    string          `json:"message,omitempty"`
	Content    string          `json:"content,omitempty"`
	Sender     string          `json:"sender,omitempty"`
	SenderName string          `json:"sender_name,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Image      string          `json:"image,omitempty"`
	RoomID     string          `json:"room_id,omitempty"`
}

// Body returns the text body of the record.
func (r HistoryRecord) Body() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Message
}

// Author returns the display name of the record's author.
func (r HistoryRecord) Author() string {
	if r.SenderName != "" {
		return r.SenderName
	}
	return r.Sender
}

// IDString normalizes the raw id to a string, or "" when absent.
func (r HistoryRecord) IDString() string {
	return rawIDString(r.ID)
}

// DecodeHistoryPage parses a history response body (a JSON array of
// records, most recent first).
func DecodeHistoryPage(data []byte) ([]HistoryRecord, error) {
	var records []HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history page: %w", err)
	}
	return records, nil
}

// RoomRecord is one room from the room list endpoint.
type RoomRecord struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Name      string          `json:"name"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// IDString normalizes the raw id to a string, or "" when absent.
func (r RoomRecord) IDString() string {
	return rawIDString(r.ID)
}

// LoginRequest is the credentials payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the login endpoint's success payload.
type LoginResponse struct {
	Message     string      `json:"message,omitempty"`
	AccessToken string      `json:"access_token"`
	UserID      json.Number `json:"user_id,omitempty"`
	Username    string      `json:"username,omitempty"`
}

// rawIDString converts a raw JSON id (string, number, or absent) into a
// stable string form.
func rawIDString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
