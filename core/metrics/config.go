package metrics

import (
	"errors"
	"fmt"

	"github.com/kilianp07/timetabler/core/factory"
)

// DefaultCollectorBuffer is the number of search events held for slow sinks.
const DefaultCollectorBuffer = 1024

// Config lists the sinks that record search progress.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks"`
	PrometheusPort string                 `json:"prometheus_port"`
	// Namespace prefixes Prometheus metric names.
	Namespace string `json:"namespace"`
	// CollectorBuffer bounds the events queued between the search and the
	// sinks; events beyond it are dropped and counted.
	CollectorBuffer int `json:"collector_buffer"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.CollectorBuffer == 0 {
		c.CollectorBuffer = DefaultCollectorBuffer
	}
}

// Validate checks the buffer and that every sink names a type.
func (c Config) Validate() error {
	var errs []error
	if c.CollectorBuffer < 0 {
		errs = append(errs, fmt.Errorf("metrics: collector_buffer must not be negative, got %d", c.CollectorBuffer))
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics: sink %d has no type", i))
		}
	}
	return errors.Join(errs...)
}
