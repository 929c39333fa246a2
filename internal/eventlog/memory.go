package eventlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("event store is closed")

// MemoryStore implements eventlog.EventStore with in-memory channel-partitioned
// storage. Each channel holds an independent append slice. Timestamps are
// assigned under the append lock and truncated to millisecond precision, so a
// channel's slice is always sorted by CreatedAt and same-millisecond events
// keep their append order.
//
// Close purges everything: the store is an ephemeral fixture and durability
// is an explicit opt-in via SQLiteStore. It is safe for concurrent use.
type MemoryStore struct {
	mu              sync.RWMutex
	eventsByChannel map[string][]*eventlog.Event
	closed          bool

	now func() time.Time // test hook
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		eventsByChannel: make(map[string][]*eventlog.Event),
		now:             time.Now,
	}
}

// Append validates channel and payload, assigns a fresh id and timestamp and
// persists exactly one record.
func (s *MemoryStore) Append(ctx context.Context, channel, payload string) (*eventlog.Event, error) {
	channel, err := eventlog.SanitizeChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := eventlog.ValidatePayload(payload); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	event := &eventlog.Event{
		ID:        eventlog.NewID(),
		Channel:   channel,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		Payload:   payload,
	}
	s.eventsByChannel[channel] = append(s.eventsByChannel[channel], event)

	return event, nil
}

// Read returns a channel's events with CreatedAt >= from, ascending by
// CreatedAt. An unknown channel yields an empty slice.
func (s *MemoryStore) Read(ctx context.Context, channel string, from *time.Time) ([]*eventlog.Event, error) {
	channel, err := eventlog.SanitizeChannel(channel)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	channelEvents := s.eventsByChannel[channel]
	results := make([]*eventlog.Event, 0, len(channelEvents))
	for _, event := range channelEvents {
		if from != nil && event.CreatedAt.Before(*from) {
			continue
		}
		results = append(results, event)
	}

	return results, nil
}

// Close purges all channels and marks the store closed. Idempotent.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.eventsByChannel = make(map[string][]*eventlog.Event)
	s.closed = true

	return nil
}

var _ eventlog.EventStore = (*MemoryStore)(nil)
