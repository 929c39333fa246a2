package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

// Server is the HTTP request/response layer over an EventStore.
type Server struct {
	store    eventlog.EventStore
	handlers *Handlers
	server   *http.Server
	log      zerolog.Logger
}

// Config holds server configuration.
type Config struct {
	Addr string
}

// SetDefaults fills unset fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3050"
	}
}

// NewServer creates an event log HTTP server over store.
func NewServer(store eventlog.EventStore, config Config, log zerolog.Logger) *Server {
	config.SetDefaults()

	handlers := NewHandlers(store, log)
	middleware := NewMiddleware(log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/events", handlers.PublishEvent)
	r.Get("/events", handlers.QueryEvents)

	httpServer := &http.Server{
		Addr:           config.Addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return &Server{
		store:    store,
		handlers: handlers,
		server:   httpServer,
		log:      log,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("event log listening")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
