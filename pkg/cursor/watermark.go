package cursor

import "time"

// Watermark marks the fully-consumed prefix of a channel: every event
// strictly older than LastTimestamp has been applied, as has every event at
// exactly LastTimestamp whose id is in IDs. A zero LastTimestamp means
// nothing has been consumed yet.
type Watermark struct {
	LastTimestamp time.Time
	IDs           map[string]struct{}
}

// NewWatermark builds a watermark at ts covering the given ids.
func NewWatermark(ts time.Time, ids ...string) Watermark {
	w := Watermark{LastTimestamp: ts, IDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		w.IDs[id] = struct{}{}
	}
	return w
}

// IsZero reports whether the watermark covers nothing.
func (w Watermark) IsZero() bool {
	return w.LastTimestamp.IsZero()
}

// Covers reports whether an event with the given id and creation time has
// already been applied under this watermark.
func (w Watermark) Covers(id string, createdAt time.Time) bool {
	if w.IsZero() {
		return false
	}
	if createdAt.Before(w.LastTimestamp) {
		return true
	}
	if createdAt.Equal(w.LastTimestamp) {
		_, seen := w.IDs[id]
		return seen
	}
	return false
}

// clone returns a deep copy so a tick can build its candidate frontier
// without mutating the published watermark.
func (w Watermark) clone() Watermark {
	ids := make(map[string]struct{}, len(w.IDs))
	for id := range w.IDs {
		ids[id] = struct{}{}
	}
	return Watermark{LastTimestamp: w.LastTimestamp, IDs: ids}
}
