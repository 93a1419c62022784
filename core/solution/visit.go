// Package solution holds the working state of a timetable search: blamed
// visits, the per-service timetables of one representative day, and the
// moves that rewrite them.
package solution

import (
	"math"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// Weight is the blame one objective assigns to a visit.
type Weight struct {
	// Value is the standardised, non-negative blame. Only meaningful once
	// standardised over a whole Solution.
	Value    float64
	HasValue bool
	// Raw is the signed blame in minutes.
	Raw    float64
	HasRaw bool

	TargetArrival   time.Time
	TargetDeparture time.Time
}

// SetRaw records a raw blame and the times that would remove it.
func (w *Weight) SetRaw(raw float64, targetArr, targetDep time.Time) {
	w.Raw, w.HasRaw = raw, true
	w.Value, w.HasValue = math.Abs(raw), false
	w.TargetArrival, w.TargetDeparture = targetArr, targetDep
}

// Magnitude returns the standardised value, or zero when unset.
func (w Weight) Magnitude() float64 {
	if !w.HasValue {
		return 0
	}
	return w.Value
}

// BlamedVisit wraps a scheduled visit with the slack and cohesion blame the
// evaluators assign to it.
type BlamedVisit struct {
	Visit    model.ScheduledVisit
	Slack    Weight
	Cohesion Weight
}

// NewBlamedVisit wraps v with unset weights.
func NewBlamedVisit(v model.ScheduledVisit) BlamedVisit { return BlamedVisit{Visit: v} }

// ID returns the identity of the underlying visit.
func (b BlamedVisit) ID() model.VisitID { return b.Visit.ID() }

// Arrival is the current scheduled arrival.
func (b BlamedVisit) Arrival() time.Time { return b.Visit.ScheduledArrival }

// Departure is the current scheduled departure.
func (b BlamedVisit) Departure() time.Time { return b.Visit.ScheduledDeparture }

// SetTimes rewrites the scheduled times. Blame is a function of the times,
// so both weights are reset.
func (b *BlamedVisit) SetTimes(arr, dep time.Time) {
	b.Visit.ScheduledArrival = arr
	b.Visit.ScheduledDeparture = dep
	b.Slack = Weight{}
	b.Cohesion = Weight{}
}

// TotalWeight sums the standardised blame of both objectives.
func (b BlamedVisit) TotalWeight() float64 {
	return b.Slack.Magnitude() + b.Cohesion.Magnitude()
}
