package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// LoggingConfig sets the default log level and output format. LOG_LEVEL and
// APP_ENV still take precedence.
type LoggingConfig struct {
	// Level is a zerolog level name.
	Level string `json:"level"`
	// Console switches from JSON lines to human readable output.
	Console bool `json:"console"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	return nil
}
