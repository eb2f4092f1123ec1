package chat

import (
	"sort"
	"time"
)

// defaultReconcileWindow bounds the timestamp distance between a pending
// entry and the confirmed echo that may replace it. Echoes normally arrive
// within a round trip; the window only needs to absorb clock skew between
// the client-assigned and server-assigned timestamps.
const defaultReconcileWindow = 2 * time.Minute

// Timeline is the merged, deduplicated, time-ordered message sequence for
// one room.
//
// Entries are kept most recent first. The Timeline is not goroutine safe;
// the owning session serializes all mutations through its event loop.
type Timeline struct {
	room            string
	reconcileWindow time.Duration

	// entries holds pointers so an in-place replacement (dedup upgrade or
	// pending/confirmed reconciliation) keeps the entry's position without
	// touching the rest of the sequence.
	entries []*Message
	index   map[string]*Message
}

// Result describes what an ingest changed.
type Result struct {
	// Changed reports whether the timeline differs from before the ingest.
	Changed bool
	// Reconciled lists provisional ids that were replaced in place by their
	// confirmed server counterparts.
	Reconciled []string
}

func (r *Result) merge(other Result) {
	r.Changed = r.Changed || other.Changed
	r.Reconciled = append(r.Reconciled, other.Reconciled...)
}

// NewTimeline creates an empty timeline for room. A reconcileWindow of zero
// selects the default.
func NewTimeline(room string, reconcileWindow time.Duration) *Timeline {
	if reconcileWindow <= 0 {
		reconcileWindow = defaultReconcileWindow
	}
	return &Timeline{
		room:            room,
		reconcileWindow: reconcileWindow,
		index:           make(map[string]*Message),
	}
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Snapshot returns a read-only copy of the timeline, most recent first.
func (t *Timeline) Snapshot() []Message {
	out := make([]Message, len(t.entries))
	for i, e := range t.entries {
		out[i] = *e
	}
	return out
}

// Ingest merges one message into the timeline.
//
// Dedup key is the id: an existing entry is replaced only by a message of
// equal or higher confirmation rank. A confirmed message with an unseen id
// first tries to reconcile against a matching pending entry before being
// inserted as new.
func (t *Timeline) Ingest(m Message) Result {
	if m.ID == "" || m.Empty() {
		return Result{}
	}

	if existing, ok := t.index[m.ID]; ok {
		if m.Status < existing.Status {
			return Result{}
		}
		if *existing == m {
			return Result{}
		}
		if existing.Timestamp.Equal(m.Timestamp) {
			*existing = m
			return Result{Changed: true}
		}
		// A replacement carrying a different timestamp (e.g. a history record
		// correcting a frame that arrived without one) must move to its
		// ordered position, or the sequence stops being descending.
		t.removeEntry(existing)
		t.insert(m)
		return Result{Changed: true}
	}

	if m.Status == StatusConfirmed {
		if pending := t.matchPending(m); pending != nil {
			provisionalID := pending.ID
			delete(t.index, provisionalID)
			*pending = m
			t.index[m.ID] = pending
			return Result{Changed: true, Reconciled: []string{provisionalID}}
		}
	}

	t.insert(m)
	return Result{Changed: true}
}

// IngestBatch merges an ordered batch (e.g. a history page).
func (t *Timeline) IngestBatch(msgs []Message) Result {
	var res Result
	for _, m := range msgs {
		res.merge(t.Ingest(m))
	}
	return res
}

// MarkFailed downgrades a non-confirmed entry to failed. This is the send
// coordinator's transition for rejected transmissions; the rank gate in
// Ingest intentionally does not allow it.
func (t *Timeline) MarkFailed(id string) bool {
	entry, ok := t.index[id]
	if !ok || entry.Status == StatusConfirmed || entry.Status == StatusFailed {
		return false
	}
	entry.Status = StatusFailed
	return true
}

// StatusOf returns the status of the entry with the given id.
func (t *Timeline) StatusOf(id string) (Status, bool) {
	entry, ok := t.index[id]
	if !ok {
		return 0, false
	}
	return entry.Status, true
}

// matchPending finds a provisional pending entry that m is the server echo
// of: same sender, same content, timestamps within the reconcile window.
func (t *Timeline) matchPending(m Message) *Message {
	for _, e := range t.entries {
		if e.Status != StatusPending || !IsProvisionalID(e.ID) {
			continue
		}
		if e.Sender != m.Sender || e.Body != m.Body || e.Attachment != m.Attachment {
			continue
		}
		delta := m.Timestamp.Sub(e.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= t.reconcileWindow {
			return e
		}
	}
	return nil
}

// removeEntry unlinks e from the sequence and the index.
func (t *Timeline) removeEntry(e *Message) {
	for i, entry := range t.entries {
		if entry == e {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	delete(t.index, e.ID)
}

// insert places m at its ordered position: descending timestamp, with ties
// going to the most recently observed entry. A single insert shifts one
// slice segment; the sequence is never re-sorted wholesale.
func (t *Timeline) insert(m Message) {
	entry := &m
	pos := sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Timestamp.After(m.Timestamp)
	})
	t.entries = append(t.entries, nil)
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = entry
	t.index[m.ID] = entry
}
