package simulation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/timetabler/core/model"
)

// minDistance floors the distance used for accuracy weights so that a sample
// exactly at the target time does not dominate through a division by zero.
const minDistance = 1.0

// combine returns the accuracy-weighted mean of every day's estimate.
func combine(all []series, at float64) (float64, bool) {
	values := make([]float64, 0, len(all))
	weights := make([]float64, 0, len(all))
	for _, s := range all {
		v, dist, ok := s.interpolate(at)
		if !ok {
			continue
		}
		values = append(values, v)
		weights = append(weights, 1/math.Max(dist, minDistance))
	}
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, weights), true
}

func seconds(f float64) time.Duration {
	return time.Duration(math.Round(f)) * time.Second
}

// JourneySimulator estimates travel times between consecutive stops.
type JourneySimulator struct {
	history *History
}

// NewJourneySimulator returns a simulator reading h.
func NewJourneySimulator(h *History) JourneySimulator { return JourneySimulator{history: h} }

// Estimate returns the expected travel time from one stop to the next when
// departing at the clock time of at, using the given comparison services.
// The boolean is false when no historic pair exists.
func (j JourneySimulator) Estimate(at time.Time, from, to string, services []string) (time.Duration, bool) {
	var all []series
	for _, svc := range services {
		all = append(all, j.history.travelSeries(svc, from, to)...)
	}
	v, ok := combine(all, model.ClockSeconds(at))
	if !ok {
		return 0, false
	}
	return seconds(v), true
}

// DwellSimulator estimates time spent at a stop.
type DwellSimulator struct {
	history *History
}

// NewDwellSimulator returns a simulator reading h.
func NewDwellSimulator(h *History) DwellSimulator { return DwellSimulator{history: h} }

// Estimate returns the expected dwell at stop for a vehicle arriving at the
// clock time of at.
func (d DwellSimulator) Estimate(at time.Time, stop string, services []string) (time.Duration, bool) {
	var all []series
	for _, svc := range services {
		all = append(all, d.history.dwellSeries(svc, stop)...)
	}
	v, ok := combine(all, model.ClockSeconds(at))
	if !ok {
		return 0, false
	}
	return seconds(v), true
}
