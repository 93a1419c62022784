package config

import "fmt"

// SentryConfig enables error reporting of failed search runs. An empty DSN
// disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	// ServerName tags every event; the host name is used when empty.
	ServerName string `json:"server_name"`
}

// SetDefaults names the environment when reporting is enabled.
func (c *SentryConfig) SetDefaults() {
	if c.DSN != "" && c.Environment == "" {
		c.Environment = "production"
	}
}

// Validate checks the sample rate.
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("sentry: traces_sample_rate must be within [0, 1], got %v", c.TracesSampleRate)
	}
	return nil
}
