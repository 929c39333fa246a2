// Package logclient provides the HTTP client for the event log service.
//
// The client speaks the two operations of the pull protocol: publish an
// event to a channel and range-query a channel from an inclusive lower
// bound. Query results are returned as raw JSON elements so that a single
// malformed event never poisons a whole batch; callers decode each element
// with ParseEvent and decide what to skip.
package logclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformedEvent is returned by ParseEvent for elements missing a usable
// id, timestamp or payload.
var ErrMalformedEvent = errors.New("malformed wire event")

// Client is an HTTP client for the event log API.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    *url.URL
}

// NewClient creates a new event log client.
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Publish publishes a payload to a channel and returns the assigned
// id/channel/timestamp triple.
func (c *Client) Publish(ctx context.Context, channel, payload string) (*PublishResponse, error) {
	req := struct {
		Channel string `json:"channel"`
		Payload string `json:"payload"`
	}{Channel: channel, Payload: payload}

	var resp PublishResponse
	if err := c.doRequest(ctx, http.MethodPost, "/events", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}
	return &resp, nil
}

// Query returns a channel's events with createdAt >= from, ascending, as
// raw JSON elements. A nil from asks for the whole channel.
func (c *Client) Query(ctx context.Context, channel string, from *time.Time) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("channel", channel)
	if from != nil {
		params.Set("from", from.UTC().Format(time.RFC3339Nano))
	}

	var raw []json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/events", params, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return raw, nil
}

// ParseEvent decodes one raw query element into an Event. Elements with a
// missing or non-string id/createdAt/payload, or an unparsable timestamp,
// yield ErrMalformedEvent.
func ParseEvent(raw []byte) (*Event, error) {
	var wire struct {
		ID        string `json:"id"`
		CreatedAt string `json:"createdAt"`
		Payload   string `json:"payload"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if wire.ID == "" || wire.CreatedAt == "" || wire.Payload == "" {
		return nil, ErrMalformedEvent
	}

	createdAt, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad createdAt: %v", ErrMalformedEvent, err)
	}

	return &Event{ID: wire.ID, CreatedAt: createdAt, Payload: wire.Payload}, nil
}

// doRequest performs an HTTP request with optional query parameters and
// JSON request/response bodies.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, reqBody, respBody interface{}) error {
	u := &url.URL{Path: path}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	fullURL := c.baseURL.ResolveReference(u)

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
