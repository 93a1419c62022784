// Package journal persists the moves a search run accepts so a run can be
// audited or replayed after the fact.
package journal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/timetabler/core/solution"
)

// Entry captures one accepted move.
type Entry struct {
	RunID             string    `json:"run_id"`
	Timestamp         time.Time `json:"timestamp"`
	Iteration         int       `json:"iteration"`
	Service           string    `json:"service"`
	Target            string    `json:"target"`
	ProposedArrival   time.Time `json:"proposed_arrival"`
	ProposedDeparture time.Time `json:"proposed_departure"`
	ChangeMinutes     float64   `json:"change_minutes"`
	Changed           []string  `json:"changed"`
	Objective         float64   `json:"objective"`
	Adjusted          float64   `json:"adjusted"`
	Best              float64   `json:"best"`
	Cohesion          float64   `json:"cohesion"`
	Candidates        int       `json:"candidates"`
}

// FromMove fills the move related fields of an entry.
func FromMove(m solution.Move) Entry {
	ids := m.ChangedIDs()
	changed := make([]string, len(ids))
	for i, id := range ids {
		changed[i] = id.String()
	}
	return Entry{
		Service:           m.Service,
		Target:            m.Target.String(),
		ProposedArrival:   m.ProposedArrival,
		ProposedDeparture: m.ProposedDeparture,
		ChangeMinutes:     m.ChangeMinutes,
		Changed:           changed,
	}
}

// Query defines filters for retrieving entries. Zero values match anything.
type Query struct {
	RunID   string
	Service string
	Start   time.Time
	End     time.Time
}

func (q Query) match(e Entry) bool {
	if q.RunID != "" && e.RunID != q.RunID {
		return false
	}
	if q.Service != "" && e.Service != q.Service {
		return false
	}
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists entries and supports querying.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

// NopStore discards entries.
type NopStore struct{}

func (NopStore) Append(context.Context, Entry) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }

// Config selects and configures a Store.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills unset rotation options.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the backend and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("journal: path required for %s backend", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("journal: unknown backend %q", c.Backend)
	}
}

// New opens the configured store. An empty backend yields a NopStore.
func New(c Config) (Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.SetDefaults()
	switch c.Backend {
	case "jsonl":
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	default:
		return NopStore{}, nil
	}
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].RunID != es[j].RunID {
			return es[i].RunID < es[j].RunID
		}
		return es[i].Iteration < es[j].Iteration
	})
}
