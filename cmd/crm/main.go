package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/internal/config"
	"github.com/gridlog/gridlog-go/internal/crm"
	"github.com/gridlog/gridlog-go/pkg/cursor"
	"github.com/gridlog/gridlog-go/pkg/logclient"
)

const (
	appName    = "crm"
	appVersion = "0.1.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", appName).Logger()

	cfg, err := config.LoadCRM()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	client, err := logclient.NewClient(logclient.Config{BaseURL: cfg.EventLogEndpoint})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event log client")
	}

	registrar := crm.NewBundleRegistrar(cfg.MaxClients, log)
	applier := crm.NewProductChangeApplier(registrar.Contracts, log)

	orders, err := cursor.New(client, registrar.Apply, cursor.Config{
		Channel:    cfg.EcommerceChannel,
		Interval:   cfg.EcommerceInterval(),
		MaxPerPoll: cfg.EcommerceMaxPerPoll,
		Initial:    cursor.NewWatermark(cfg.EcommerceFromTime()),
		StopWhen:   registrar.AtCapacity,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create order consumer")
	}

	changes, err := cursor.New(client, applier.Apply, cursor.Config{
		Channel:    cfg.ClientAppChannel,
		Interval:   cfg.ClientAppInterval(),
		MaxPerPoll: cfg.ClientAppMaxPerPoll,
		Initial:    cursor.NewWatermark(cfg.ClientAppFromTime()),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create product-change consumer")
	}

	ctx := context.Background()
	if err := orders.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start order consumer")
	}
	defer orders.Stop()
	if err := changes.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start product-change consumer")
	}
	defer changes.Stop()

	api := crm.NewAPIServer(registrar, crm.APIConfig{Addr: cfg.Addr()}, log)

	errCh := make(chan error, 1)
	go func() {
		if err := api.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().
		Str("version", appVersion).
		Str("addr", cfg.Addr()).
		Str("eventlog", cfg.EventLogEndpoint).
		Int("maxClients", cfg.MaxClients).
		Msg("crm started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Fatal().Err(err).Msg("read api failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
	}
	log.Info().Msg("stopped")
}
