package search

import (
	"errors"
	"fmt"
)

// Exhaustion names what a run does when an iteration finds no legal move.
type Exhaustion string

const (
	// ExhaustionStop ends the run.
	ExhaustionStop Exhaustion = "stop"
	// ExhaustionFreeUp expires the oldest tabu entry and tries again.
	ExhaustionFreeUp Exhaustion = "free_up"
)

// Config holds the search tuning values.
type Config struct {
	SlackDominance    float64    `json:"slack_dominance"`
	CohesionDominance float64    `json:"cohesion_dominance"`
	MinSegmentLength  int        `json:"min_segment_length"`
	TabuTenure        int        `json:"tabu_tenure"`
	NeighbourhoodSize int        `json:"neighbourhood_size"`
	CandidateListSize int        `json:"candidate_list_size"`
	Iterations        int        `json:"iterations"`
	Seed              int64      `json:"seed"`
	Workers           int        `json:"workers"`
	Exhaustion        Exhaustion `json:"exhaustion"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.SlackDominance == 0 {
		c.SlackDominance = 1
	}
	if c.CohesionDominance == 0 {
		c.CohesionDominance = 1
	}
	if c.MinSegmentLength == 0 {
		c.MinSegmentLength = 3
	}
	if c.TabuTenure == 0 {
		c.TabuTenure = 10
	}
	if c.NeighbourhoodSize == 0 {
		c.NeighbourhoodSize = 10
	}
	if c.CandidateListSize == 0 {
		c.CandidateListSize = 5
	}
	if c.Iterations == 0 {
		c.Iterations = 100
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.Exhaustion == "" {
		c.Exhaustion = ExhaustionFreeUp
	}
}

// Validate checks that every tuning value is positive.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("search: %s must be positive, got %v", name, v))
		}
	}
	positive("slack_dominance", c.SlackDominance)
	positive("cohesion_dominance", c.CohesionDominance)
	positive("min_segment_length", float64(c.MinSegmentLength))
	positive("tabu_tenure", float64(c.TabuTenure))
	positive("neighbourhood_size", float64(c.NeighbourhoodSize))
	positive("candidate_list_size", float64(c.CandidateListSize))
	positive("iterations", float64(c.Iterations))
	positive("workers", float64(c.Workers))
	switch c.Exhaustion {
	case ExhaustionStop, ExhaustionFreeUp:
	default:
		errs = append(errs, fmt.Errorf("search: unknown exhaustion policy %q", c.Exhaustion))
	}
	return errors.Join(errs...)
}
