package eventlog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxPayloadBytes is the ceiling on a single event payload.
const MaxPayloadBytes = 1 << 20

var (
	// ErrChannelRequired is returned when a channel name is empty or blank.
	ErrChannelRequired = errors.New("channel is required")
	// ErrChannelInvalid is returned when a channel name contains characters
	// outside letters, digits, hyphens and underscores.
	ErrChannelInvalid = errors.New("channel may only contain letters, digits, hyphens and underscores")
	// ErrPayloadRequired is returned when a payload is empty.
	ErrPayloadRequired = errors.New("payload must be non-empty text")
	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadBytes.
	ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d bytes", MaxPayloadBytes)
)

var channelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Event is a single immutable record in the event log.
// Identity is ID, unique within a channel. Payload is opaque text; the
// log itself enforces no schema.
type Event struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"createdAt"`
	Payload   string    `json:"payload"`
}

// NewID returns a fresh globally unique event id. Safe for concurrent use.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

// SanitizeChannel trims and validates a channel name.
func SanitizeChannel(channel string) (string, error) {
	trimmed := strings.TrimSpace(channel)
	if trimmed == "" {
		return "", ErrChannelRequired
	}
	if !channelPattern.MatchString(trimmed) {
		return "", ErrChannelInvalid
	}
	return trimmed, nil
}

// ValidatePayload checks that a payload is non-empty text within the size ceiling.
func ValidatePayload(payload string) error {
	if len(payload) == 0 {
		return ErrPayloadRequired
	}
	if len(payload) > MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	return nil
}
