package eventlog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

func TestSQLiteStore_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) eventlog.EventStore {
		store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
		require.NoError(t, err)
		return store
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	published, err := store.Append(ctx, "ecommerce", `{"orderId":"o-1"}`)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Read(ctx, "ecommerce", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, published.ID, events[0].ID)
	require.Equal(t, published.CreatedAt, events[0].CreatedAt)
	require.Equal(t, published.Payload, events[0].Payload)
}

func TestSQLiteStore_ConcurrentAppendsAssignUniqueIDs(t *testing.T) {
	const (
		goroutines = 8
		perRoutine = 50
	)

	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perRoutine; j++ {
				if _, err := store.Append(ctx, "ecommerce",
					fmt.Sprintf(`{"writer":%d,"seq":%d}`, n, j)); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	events, err := store.Read(ctx, "ecommerce", nil)
	require.NoError(t, err)
	require.Len(t, events, goroutines*perRoutine)

	seen := make(map[string]struct{}, len(events))
	for _, event := range events {
		_, dup := seen[event.ID]
		require.False(t, dup, "duplicate id %s", event.ID)
		seen[event.ID] = struct{}{}
	}
}
