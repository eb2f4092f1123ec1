package chat

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Albinjegus10/mobilechat/internal/wire"
)

// Status is the delivery state of a timeline entry.
type Status int

const (
	// StatusFailed marks a message whose transmission was rejected.
	StatusFailed Status = iota
	// StatusPending marks an optimistic, unconfirmed local send.
	StatusPending
	// StatusConfirmed marks a server-acknowledged message.
	StatusConfirmed
)

var statusNames = map[Status]string{
	StatusFailed:    "failed",
	StatusPending:   "pending",
	StatusConfirmed: "confirmed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON encodes the status as its string name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its string name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

// Message is the unit of the timeline.
type Message struct {
	// ID is server-issued for confirmed messages and carries the reserved
	// "local-" prefix for provisional entries.
	ID string `json:"id"`
	// RoomID is the owning room.
	RoomID string `json:"roomId"`
	// Sender is the author's display name.
	Sender string `json:"sender"`
	// Body is the optional text content.
	Body string `json:"body,omitempty"`
	// Attachment is an optional image resource URI.
	Attachment string `json:"attachment,omitempty"`
	// Timestamp is the logical ordering key.
	Timestamp time.Time `json:"timestamp"`
	// Status is the delivery state.
	Status Status `json:"status"`
}

// Empty reports whether the message has neither body nor attachment.
func (m Message) Empty() bool {
	return m.Body == "" && m.Attachment == ""
}

const (
	// provisionalPrefix namespaces locally generated ids away from every
	// server-issued id space.
	provisionalPrefix = "local-"
	// fallbackPrefix namespaces synthesized ids for records the server sent
	// without an id.
	fallbackPrefix = "msg-"

	// defaultSender is used when a frame omits the sender field.
	defaultSender = "Anonymous"
)

// NewProvisionalID returns a fresh provisional message id.
func NewProvisionalID() string {
	return provisionalPrefix + uuid.NewString()
}

// IsProvisionalID reports whether id was generated locally.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}

// fallbackID derives a deterministic id from message content so repeated
// fetches of the same page synthesize the same id.
func fallbackID(sender, timestamp, body, image string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", sender, timestamp, body, image)
	return fmt.Sprintf("%s%016x", fallbackPrefix, h.Sum64())
}

// timestampLayouts are the wire timestamp formats seen from the server. The
// REST serializer emits zone-less ISO instants; the consumer emits the same
// via datetime.isoformat().
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return fallback
}

// MessageFromFrame converts an inbound live frame into a Message.
//
// Missing fields follow the wire contract: sender defaults to "Anonymous",
// timestamp to the receipt time, and a deterministic fallback id is
// synthesized when the frame carries none.
func MessageFromFrame(f wire.Frame, room string, receivedAt time.Time) (Message, error) {
	return newServerMessage(f.IDString(), room, f.Sender, f.Message, f.Image, f.Timestamp, receivedAt)
}

// MessageFromRecord converts a history record into a Message.
func MessageFromRecord(r wire.HistoryRecord, room string, receivedAt time.Time) (Message, error) {
	return newServerMessage(r.IDString(), room, r.Author(), r.Body(), r.Image, r.Timestamp, receivedAt)
}

func newServerMessage(id, room, sender, body, image, timestamp string, receivedAt time.Time) (Message, error) {
	if body == "" && image == "" {
		return Message{}, fmt.Errorf("message has neither body nor attachment")
	}
	if sender == "" {
		sender = defaultSender
	}
	if id == "" {
		id = fallbackID(sender, timestamp, body, image)
	}
	return Message{
		ID:         id,
		RoomID:     room,
		Sender:     sender,
		Body:       body,
		Attachment: image,
		Timestamp:  parseTimestamp(timestamp, receivedAt),
		Status:     StatusConfirmed,
	}, nil
}
