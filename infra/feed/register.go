package feed

import (
	"fmt"
	"time"

	"github.com/kilianp07/timetabler/core/factory"
	"github.com/kilianp07/timetabler/core/provider"
	"github.com/kilianp07/timetabler/infra/logger"
)

// Config selects the database file and the time zone of the timetable.
type Config struct {
	Path     string `json:"path"`
	Timezone string `json:"timezone"`
}

func init() {
	_ = provider.Register("sqlite", func(conf map[string]any) (provider.DataProvider, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return OpenConfig(c)
	})
}

// OpenConfig opens the store described by c.
func OpenConfig(c Config) (*Store, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("feed: path required")
	}
	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("feed: timezone: %w", err)
		}
		loc = l
	}
	return Open(c.Path, loc, logger.New("feed"))
}
