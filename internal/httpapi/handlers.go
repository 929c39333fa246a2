package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/pkg/eventlog"
)

// maxBodyBytes bounds a publish request body. Oversized bodies abort the
// read instead of buffering without limit; the small margin covers the
// JSON envelope around a payload at the ceiling.
const maxBodyBytes = eventlog.MaxPayloadBytes + 4*1024

// Handlers contains the HTTP request handlers for the event log API.
type Handlers struct {
	store eventlog.EventStore
	log   zerolog.Logger
}

// NewHandlers creates handlers backed by the given store.
func NewHandlers(store eventlog.EventStore, log zerolog.Logger) *Handlers {
	return &Handlers{store: store, log: log}
}

// PublishEvent handles POST /events.
func (h *Handlers) PublishEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, http.StatusBadRequest, eventlog.ErrPayloadTooLarge.Error())
			return
		}
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := h.store.Append(r.Context(), req.Channel, req.Payload)
	if err != nil {
		if isValidationError(err) {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("channel", req.Channel).Msg("append failed")
		h.writeError(w, r, http.StatusInternalServerError, "could not store event")
		return
	}

	h.log.Debug().Str("channel", event.Channel).Str("id", event.ID).Msg("event published")

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PublishResponse{
		ID:        event.ID,
		Channel:   event.Channel,
		CreatedAt: event.CreatedAt,
	})
}

// QueryEvents handles GET /events?channel=<name>&from=<timestamp>.
func (h *Handlers) QueryEvents(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")

	var from *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		from = &parsed
	}

	events, err := h.store.Read(r.Context(), channel, from)
	if err != nil {
		if isValidationError(err) {
			h.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("channel", channel).Msg("read failed")
		h.writeError(w, r, http.StatusInternalServerError, "could not read events")
		return
	}

	response := make([]WireEvent, 0, len(events))
	for _, event := range events {
		response = append(response, WireEvent{
			ID:        event.ID,
			CreatedAt: event.CreatedAt,
			Payload:   event.Payload,
		})
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// isValidationError reports whether err is a malformed-request error the
// caller must fix, as opposed to an internal failure.
func isValidationError(err error) bool {
	return errors.Is(err, eventlog.ErrChannelRequired) ||
		errors.Is(err, eventlog.ErrChannelInvalid) ||
		errors.Is(err, eventlog.ErrPayloadRequired) ||
		errors.Is(err, eventlog.ErrPayloadTooLarge)
}
