package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

// runStoreSuite exercises the EventStore contract shared by both
// implementations.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) eventlog.EventStore) {
	ctx := context.Background()

	t.Run("append_assigns_id_and_timestamp", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		before := time.Now().Add(-time.Second)
		event, err := store.Append(ctx, "ecommerce", `{"orderId":"o-1"}`)
		require.NoError(t, err)
		require.NotEmpty(t, event.ID)
		require.Equal(t, "ecommerce", event.Channel)
		require.True(t, event.CreatedAt.After(before))
		require.Equal(t, `{"orderId":"o-1"}`, event.Payload)
	})

	t.Run("append_validates_channel_and_payload", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Append(ctx, "", "data")
		require.ErrorIs(t, err, eventlog.ErrChannelRequired)

		_, err = store.Append(ctx, "bad channel!", "data")
		require.ErrorIs(t, err, eventlog.ErrChannelInvalid)

		_, err = store.Append(ctx, "ecommerce", "")
		require.ErrorIs(t, err, eventlog.ErrPayloadRequired)
	})

	t.Run("read_unknown_channel_returns_empty", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		events, err := store.Read(ctx, "nonexistent", nil)
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("read_returns_ascending_created_at", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		for i := 0; i < 10; i++ {
			_, err := store.Append(ctx, "ecommerce", `{"n":1}`)
			require.NoError(t, err)
		}

		events, err := store.Read(ctx, "ecommerce", nil)
		require.NoError(t, err)
		require.Len(t, events, 10)
		for i := 1; i < len(events); i++ {
			require.False(t, events[i].CreatedAt.Before(events[i-1].CreatedAt),
				"event %d older than event %d", i, i-1)
		}
	})

	t.Run("read_from_is_inclusive", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		first, err := store.Append(ctx, "clientapp", `{"n":1}`)
		require.NoError(t, err)
		second, err := store.Append(ctx, "clientapp", `{"n":2}`)
		require.NoError(t, err)

		// The boundary event itself must come back.
		events, err := store.Read(ctx, "clientapp", &second.CreatedAt)
		require.NoError(t, err)
		require.NotEmpty(t, events)
		ids := make(map[string]bool)
		for _, e := range events {
			ids[e.ID] = true
		}
		require.True(t, ids[second.ID])

		// Result for from=t1 is a superset of the result for from=t2, t1 < t2.
		all, err := store.Read(ctx, "clientapp", &first.CreatedAt)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(all), len(events))
		for _, e := range events {
			found := false
			for _, a := range all {
				if a.ID == e.ID {
					found = true
					break
				}
			}
			require.True(t, found, "event %s missing from wider read", e.ID)
		}
	})

	t.Run("channels_are_independent", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		_, err := store.Append(ctx, "ecommerce", `{"a":1}`)
		require.NoError(t, err)
		_, err = store.Append(ctx, "clientapp", `{"b":2}`)
		require.NoError(t, err)

		a, err := store.Read(ctx, "ecommerce", nil)
		require.NoError(t, err)
		require.Len(t, a, 1)

		b, err := store.Read(ctx, "clientapp", nil)
		require.NoError(t, err)
		require.Len(t, b, 1)
		require.NotEqual(t, a[0].ID, b[0].ID)
	})
}
