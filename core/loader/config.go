package loader

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in configuration.
const DateLayout = "2006-01-02"

// AllSecondaries opts every discovered secondary service in.
const AllSecondaries = "*"

// Config describes which timetable to optimise and which history to learn
// from.
type Config struct {
	PrimaryService     string   `json:"primary_service"`
	Date               string   `json:"date"`
	SampleDates        []string `json:"sample_dates"`
	SecondaryServices  []string `json:"secondary_services"`
	Timezone           string   `json:"timezone"`
	FetchConcurrency   int      `json:"fetch_concurrency"`
	FetchRatePerSecond float64  `json:"fetch_rate_per_second"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.FetchConcurrency == 0 {
		c.FetchConcurrency = 4
	}
	if c.FetchRatePerSecond == 0 {
		c.FetchRatePerSecond = 20
	}
}

// Validate checks the service, the dates and the fetch limits.
func (c Config) Validate() error {
	var errs []error
	if c.PrimaryService == "" {
		errs = append(errs, errors.New("session: primary_service required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := c.Dates(); err != nil {
		errs = append(errs, err)
	}
	if c.FetchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("session: fetch_concurrency must be positive, got %d", c.FetchConcurrency))
	}
	if c.FetchRatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("session: fetch_rate_per_second must be positive, got %v", c.FetchRatePerSecond))
	}
	return errors.Join(errs...)
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("session: timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Dates parses the representative date and the sample dates. Without sample
// dates the representative date is used alone.
func (c Config) Dates() (time.Time, []time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, nil, err
	}
	date, err := time.ParseInLocation(DateLayout, c.Date, loc)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("session: date %q: %w", c.Date, err)
	}
	if len(c.SampleDates) == 0 {
		return date, []time.Time{date}, nil
	}
	samples := make([]time.Time, 0, len(c.SampleDates))
	for _, s := range c.SampleDates {
		d, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("session: sample date %q: %w", s, err)
		}
		samples = append(samples, d)
	}
	return date, samples, nil
}
