package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/provider"
	"github.com/kilianp07/timetabler/infra/logger"
)

var (
	date   = time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	sample = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	gap    = time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
)

func scheduled(service string, day time.Time, stops ...string) []model.ScheduledVisit {
	out := make([]model.ScheduledVisit, len(stops))
	for i, s := range stops {
		at := day.Add(8*time.Hour + time.Duration(i)*5*time.Minute)
		out[i] = model.ScheduledVisit{
			ServiceID: service, StopID: s, Sequence: i + 1, JourneyCode: service + "-j1",
			RunningBoard: service + "-b1", ScheduledArrival: at, ScheduledDeparture: at,
		}
	}
	return out
}

func historic(visits []model.ScheduledVisit, late time.Duration) []model.HistoricVisit {
	out := make([]model.HistoricVisit, len(visits))
	for i, v := range visits {
		arr := v.ScheduledArrival.Add(late)
		dep := arr.Add(20 * time.Second)
		out[i] = model.HistoricVisit{ScheduledVisit: v, ActualArrival: &arr, ActualDeparture: &dep}
	}
	return out
}

func fixture() *provider.Memory {
	m := provider.NewMemory()
	m.SetRoute("1", model.Outbound, "A", "B", "C", "D")
	m.SetRoute("2", model.Outbound, "A", "B", "C", "D")
	m.SetRoute("3", model.Outbound, "X", "Y")
	m.AddScheduled("1", date, scheduled("1", date, "A", "B", "C", "D")...)
	m.AddScheduled("2", date, scheduled("2", date, "A", "B", "C", "D")...)
	m.AddHistoric("1", sample, historic(scheduled("1", sample, "A", "B", "C", "D"), time.Minute)...)
	return m
}

func baseConfig() Config {
	return Config{
		PrimaryService:    "1",
		Date:              "2024-04-08",
		SampleDates:       []string{"2024-04-02", "2024-04-01"},
		SecondaryServices: []string{AllSecondaries},
		FetchConcurrency:  2,
	}
}

func TestLoadSession(t *testing.T) {
	l := New(fixture(), 2, baseConfig(), logger.NopLogger{})
	s, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, s.Segments, 1)
	assert.Equal(t, "2", s.Segments[0].Secondary)
	assert.Equal(t, 4, s.Segments[0].Len())
	assert.Equal(t, []string{"1", "2"}, s.Collection.Services())
	assert.Equal(t, []string{"1", "2"}, s.Initial.Services())
	assert.Equal(t, 8, s.Initial.Len())
	assert.Equal(t, 1, s.History.Days())
	assert.Contains(t, s.Skipped, "history:1:2024-04-02")
	assert.Contains(t, s.Skipped, "history:2:2024-04-01")

	// the model learns from the sample day: 5 minutes between stops, minus 20s dwell
	d, ok := s.Model.Travel(date.Add(8*time.Hour), "1", "A", "B")
	require.True(t, ok)
	assert.Equal(t, 4*time.Minute+40*time.Second, d)
}

func TestLoadWithoutOptIn(t *testing.T) {
	cfg := baseConfig()
	cfg.SecondaryServices = nil
	s, err := New(fixture(), 2, cfg, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, s.Initial.Services())
	assert.Equal(t, []string{"2"}, s.Collection.Secondaries())
}

func TestLoadDropsSecondaryWithoutSchedule(t *testing.T) {
	m := fixture()
	m.SetRoute("4", model.Outbound, "B", "C", "D")
	s, err := New(m, 2, baseConfig(), nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, s.Collection.Services())
	assert.Contains(t, s.Skipped, "scheduled:4")
}

func TestLoadPrimaryWithoutSchedule(t *testing.T) {
	cfg := baseConfig()
	cfg.Date = "2024-05-01"
	_, err := New(fixture(), 2, cfg, nil).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrNoData))
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Date: "08/04/2024", Timezone: "Mars/Olympus"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary_service")
	assert.Contains(t, err.Error(), "timezone")

	cfg = baseConfig()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	d, samples, err := cfg.Dates()
	require.NoError(t, err)
	assert.True(t, d.Equal(date))
	assert.Len(t, samples, 2)
}
