package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/internal/config"
	storeimpl "github.com/gridlog/gridlog-go/internal/eventlog"
	"github.com/gridlog/gridlog-go/internal/httpapi"
	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

const (
	appName    = "gridlog"
	appVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", appName).Logger()

	cfg, err := config.LoadEventLog()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	store, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event store")
		}
	}()

	server := httpapi.NewServer(store, httpapi.Config{Addr: cfg.Addr()}, log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Str("version", appVersion).Str("addr", cfg.Addr()).Msg("event log started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
	log.Info().Msg("stopped")
}

func openStore(cfg config.EventLog, log zerolog.Logger) (eventlog.EventStore, error) {
	if cfg.DBPath == "" {
		log.Info().Msg("using in-memory event store; events are lost on shutdown")
		return storeimpl.NewMemoryStore(), nil
	}

	log.Info().Str("path", cfg.DBPath).Msg("using sqlite event store")
	store, err := storeimpl.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store at %s: %w", cfg.DBPath, err)
	}
	return store, nil
}
