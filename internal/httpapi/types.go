package httpapi

import "time"

// Request/Response types for the event log HTTP API

// PublishRequest is the body of POST /events.
type PublishRequest struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// PublishResponse acknowledges a published event.
type PublishResponse struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
}

// WireEvent is a single event as served by GET /events.
type WireEvent struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Payload   string    `json:"payload"`
}

// ErrorResponse is the structured body of every 4xx/5xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
