package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

// Middleware provides the HTTP middleware for the event log API.
type Middleware struct {
	log zerolog.Logger
}

// NewMiddleware creates a middleware instance logging through log.
func NewMiddleware(log zerolog.Logger) *Middleware {
	return &Middleware{log: log}
}

// Logging records method, path, status and duration for every request.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Recovery converts handler panics into a 500 with the standard error body.
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, ErrorResponse{Error: "internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
