// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EventLog configures the event log daemon.
type EventLog struct {
	// Host is the listen interface.
	Host string `env:"EVENTLOG_HOST" envDefault:"0.0.0.0"`
	// Port is the listen port.
	Port int `env:"EVENTLOG_PORT" envDefault:"3050"`
	// DBPath is the sqlite database file; empty keeps everything in
	// memory and events vanish on shutdown.
	DBPath string `env:"EVENTLOG_DB"`
}

// Addr returns the listen address in host:port form.
func (c EventLog) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for errors.
func (c EventLog) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("EVENTLOG_PORT out of range: %d", c.Port)
	}
	return nil
}

// LoadEventLog reads the event log configuration from the environment.
func LoadEventLog() (EventLog, error) {
	var cfg EventLog
	if err := env.Parse(&cfg); err != nil {
		return EventLog{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return EventLog{}, err
	}
	return cfg, nil
}

// CRM configures the CRM daemon: its read API and the two channel pollers.
type CRM struct {
	// Port is the read API listen port.
	Port int `env:"PORT" envDefault:"3000"`
	// EventLogEndpoint is the base URL of the event log service.
	EventLogEndpoint string `env:"CRM_EVENTLOG_ENDPOINT" envDefault:"http://localhost:3050"`
	// MaxClients caps distinct registered clients; 0 means unlimited.
	MaxClients int `env:"CRM_MAX_CLIENTS" envDefault:"100"`

	EcommerceChannel        string `env:"CRM_ECOMMERCE_CHANNEL" envDefault:"ecommerce"`
	EcommercePollIntervalMS int    `env:"CRM_ECOMMERCE_POLL_INTERVAL_MS" envDefault:"5000"`
	EcommerceMaxPerPoll     int    `env:"CRM_ECOMMERCE_MAX_PER_POLL" envDefault:"25"`
	// EcommerceFrom is the initial resume point for the order poller,
	// RFC3339; empty starts from the beginning of the channel.
	EcommerceFrom string `env:"CRM_ECOMMERCE_FROM"`

	ClientAppChannel        string `env:"CRM_CLIENTAPP_CHANNEL" envDefault:"clientapp"`
	ClientAppPollIntervalMS int    `env:"CRM_CLIENTAPP_POLL_INTERVAL_MS" envDefault:"5000"`
	ClientAppMaxPerPoll     int    `env:"CRM_CLIENTAPP_MAX_PER_POLL" envDefault:"50"`
	// ClientAppFrom is the initial resume point for the product-change
	// poller, RFC3339; empty starts from the beginning of the channel.
	ClientAppFrom string `env:"CRM_CLIENTAPP_FROM"`
}

// Addr returns the read API listen address.
func (c CRM) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// EcommerceInterval returns the order poll cadence.
func (c CRM) EcommerceInterval() time.Duration {
	return time.Duration(c.EcommercePollIntervalMS) * time.Millisecond
}

// ClientAppInterval returns the product-change poll cadence.
func (c CRM) ClientAppInterval() time.Duration {
	return time.Duration(c.ClientAppPollIntervalMS) * time.Millisecond
}

// EcommerceFromTime returns the order poller's initial resume point; the
// zero time means the whole channel.
func (c CRM) EcommerceFromTime() time.Time {
	return parseFrom(c.EcommerceFrom)
}

// ClientAppFromTime returns the product-change poller's initial resume
// point; the zero time means the whole channel.
func (c CRM) ClientAppFromTime() time.Time {
	return parseFrom(c.ClientAppFrom)
}

// parseFrom assumes Validate already ran; unset or unparsable values map
// to the zero time.
func parseFrom(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Validate checks the configuration for errors.
func (c CRM) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.EventLogEndpoint == "" {
		return fmt.Errorf("CRM_EVENTLOG_ENDPOINT is required")
	}
	if c.MaxClients < 0 {
		return fmt.Errorf("CRM_MAX_CLIENTS cannot be negative: %d", c.MaxClients)
	}
	if c.EcommercePollIntervalMS <= 0 || c.ClientAppPollIntervalMS <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	if c.EcommerceFrom != "" {
		if _, err := time.Parse(time.RFC3339, c.EcommerceFrom); err != nil {
			return fmt.Errorf("invalid CRM_ECOMMERCE_FROM: %w", err)
		}
	}
	if c.ClientAppFrom != "" {
		if _, err := time.Parse(time.RFC3339, c.ClientAppFrom); err != nil {
			return fmt.Errorf("invalid CRM_CLIENTAPP_FROM: %w", err)
		}
	}
	return nil
}

// LoadCRM reads the CRM configuration from the environment.
func LoadCRM() (CRM, error) {
	var cfg CRM
	if err := env.Parse(&cfg); err != nil {
		return CRM{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return CRM{}, err
	}
	return cfg, nil
}
