package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	storeimpl "github.com/gridlog/gridlog-go/internal/eventlog"
	"github.com/gridlog/gridlog-go/internal/httpapi"
	"github.com/gridlog/gridlog-go/pkg/logclient"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := storeimpl.NewMemoryStore()
	srv := httpapi.NewServer(store, httpapi.Config{}, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return ts
}

func useTestClient(t *testing.T, ts *httptest.Server) {
	t.Helper()

	c, err := logclient.NewClient(logclient.Config{BaseURL: ts.URL})
	require.NoError(t, err)

	prevClient, prevTimeout := client, timeout
	client, timeout = c, 5*time.Second
	t.Cleanup(func() { client, timeout = prevClient, prevTimeout })
}

func TestPublishAndQueryCommands(t *testing.T) {
	ts := startTestServer(t)
	useTestClient(t, ts)

	require.NoError(t, runPublish("ecommerce", `{"hello":"world"}`))
	require.NoError(t, runPublish("ecommerce", `{"hello":"again"}`))

	require.NoError(t, runQuery("ecommerce", ""))
	require.NoError(t, runQuery("ecommerce", time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)))

	t.Run("rejects_bad_from_timestamp", func(t *testing.T) {
		require.Error(t, runQuery("ecommerce", "yesterday"))
	})

	t.Run("rejects_invalid_channel", func(t *testing.T) {
		require.Error(t, runPublish("no spaces allowed", "x"))
	})
}

func TestProduceOrdersCommand(t *testing.T) {
	ts := startTestServer(t)
	useTestClient(t, ts)

	require.NoError(t, runProduceOrders("ecommerce", 3, 0))

	raw, err := client.Query(context.Background(), "ecommerce", nil)
	require.NoError(t, err)
	require.Len(t, raw, 3)
}
