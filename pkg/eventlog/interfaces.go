package eventlog

import (
	"context"
	"io"
	"time"
)

// EventStore defines the interface for channel-scoped append-only event storage.
// Appends assign the event id and service-clock timestamp; reads return a
// channel's events in non-decreasing CreatedAt order, which is the one
// ordering guarantee the consumption protocol depends on.
type EventStore interface {
	io.Closer

	// Append validates channel and payload, assigns a fresh id and
	// timestamp, persists exactly one record and returns it.
	Append(ctx context.Context, channel, payload string) (*Event, error)

	// Read returns a channel's events with CreatedAt >= from (inclusive),
	// ascending by CreatedAt. A nil from means the whole channel. An
	// unknown channel yields an empty slice, not an error.
	Read(ctx context.Context, channel string, from *time.Time) ([]*Event, error)
}
