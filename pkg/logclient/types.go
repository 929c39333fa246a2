package logclient

import (
	"time"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the event log endpoint, e.g. http://localhost:3050.
	BaseURL string

	// Timeout bounds each HTTP round-trip.
	Timeout time.Duration
}

// SetDefaults fills unset fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// PublishResponse acknowledges a published event.
type PublishResponse struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a decoded wire event from a range query. Payload stays opaque
// text; consumers decode it to their own typed events.
type Event struct {
	ID        string
	CreatedAt time.Time
	Payload   string
}

// ErrorResponse is the structured error body returned by the event log.
type ErrorResponse struct {
	Error string `json:"error"`
}
