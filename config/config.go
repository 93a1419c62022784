// Package config loads the timetabler configuration from a YAML or JSON file
// with K_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/timetabler/core/factory"
	"github.com/kilianp07/timetabler/core/loader"
	"github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/core/search"
	"github.com/kilianp07/timetabler/core/search/journal"
	"github.com/kilianp07/timetabler/pkg/export"
)

// DefaultDatabase is the feed database used when no provider is configured.
const DefaultDatabase = "timetabler.db"

type Config struct {
	Search   search.Config        `json:"search"`
	Session  loader.Config        `json:"session"`
	Provider factory.ModuleConfig `json:"provider"`
	Metrics  metrics.Config       `json:"metrics"`
	Journal  journal.Config       `json:"journal"`
	Sentry   SentryConfig         `json:"sentry"`
	Export   export.Config        `json:"export"`
	Logging  LoggingConfig        `json:"logging"`
}

// Load reads path, applies K_ overrides (K_SEARCH__SEED=7 sets search.seed),
// fills defaults and validates every section except session, which only
// the optimise command needs. An empty path loads defaults and overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Search.SetDefaults()
	c.Session.SetDefaults()
	c.Journal.SetDefaults()
	c.Export.SetDefaults()
	c.Logging.SetDefaults()
	c.Sentry.SetDefaults()
	c.Metrics.SetDefaults()
	if c.Provider.Type == "" {
		c.Provider.Type = "sqlite"
	}
	if c.Provider.Type == "sqlite" {
		if c.Provider.Conf == nil {
			c.Provider.Conf = map[string]any{}
		}
		if _, ok := c.Provider.Conf["path"]; !ok {
			c.Provider.Conf["path"] = DefaultDatabase
		}
		if _, ok := c.Provider.Conf["timezone"]; !ok {
			c.Provider.Conf["timezone"] = c.Session.Timezone
		}
	}
}

// Validate checks every section except session.
func (c Config) Validate() error {
	return errors.Join(
		c.Search.Validate(),
		c.Journal.Validate(),
		c.Export.Validate(),
		c.Logging.Validate(),
		c.Sentry.Validate(),
		c.Metrics.Validate(),
	)
}
