package crm

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Read API over the CRM entity collections: paginated, GET-only. This is
// a presentation surface; all writes happen through the event appliers.

const (
	defaultPage    = 1
	defaultPerPage = 25
)

// Pagination describes one page of a collection.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// CollectionResponse is the envelope of every collection endpoint.
type CollectionResponse[E Entity] struct {
	Data       []E        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// MessageResponse is the error body of the read API.
type MessageResponse struct {
	Message string `json:"message"`
}

// APIServer serves the CRM read API.
type APIServer struct {
	registrar *BundleRegistrar
	server    *http.Server
	log       zerolog.Logger
}

// APIConfig holds read API configuration.
type APIConfig struct {
	Addr string
}

// SetDefaults fills unset fields with sensible defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
}

// NewAPIServer creates the read API over the registrar's repositories.
func NewAPIServer(registrar *BundleRegistrar, config APIConfig, log zerolog.Logger) *APIServer {
	config.SetDefaults()

	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/clients", collectionHandler(registrar.Clients))
	r.Get("/billing-accounts", collectionHandler(registrar.BillingAccounts))
	r.Get("/supply-points", collectionHandler(registrar.SupplyPoints))
	r.Get("/contracts", collectionHandler(registrar.Contracts))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, MessageResponse{Message: "resource not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		render.Status(req, http.StatusMethodNotAllowed)
		render.JSON(w, req, MessageResponse{Message: "method not allowed"})
	})

	return &APIServer{
		registrar: registrar,
		log:       log,
		server: &http.Server{
			Addr:           config.Addr,
			Handler:        r,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the read API and blocks until it stops.
func (s *APIServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("crm read api listening")
	return s.server.ListenAndServe()
}

// Stop gracefully stops the read API.
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// collectionHandler serves one repository as a paginated collection.
func collectionHandler[E Entity](repo *Repository[E]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := positiveIntParam(r, "page", defaultPage)
		perPage := positiveIntParam(r, "perPage", defaultPerPage)

		items := repo.List()
		totalItems := len(items)
		totalPages := (totalItems + perPage - 1) / perPage

		start := (page - 1) * perPage
		end := start + perPage
		if start > totalItems {
			start = totalItems
		}
		if end > totalItems {
			end = totalItems
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, CollectionResponse[E]{
			Data: items[start:end],
			Pagination: Pagination{
				Page:       page,
				PerPage:    perPage,
				TotalItems: totalItems,
				TotalPages: totalPages,
			},
		})
	}
}

// positiveIntParam parses a positive integer query parameter, falling back
// to a default on anything unusable.
func positiveIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
