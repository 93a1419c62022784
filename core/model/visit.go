package model

import (
	"fmt"
	"time"
)

// VisitID identifies one scheduled visit across clones of a timetable.
type VisitID struct {
	Service      string
	Stop         string
	Journey      string
	Sequence     int
	RunningBoard string
}

func (id VisitID) String() string {
	return fmt.Sprintf("%s/%s/%s/%d/%s", id.Service, id.Stop, id.Journey, id.Sequence, id.RunningBoard)
}

// ScheduledVisit is one (service, stop) occurrence of a published timetable.
type ScheduledVisit struct {
	ServiceID          string
	StopID             string
	Sequence           int
	Direction          Direction
	JourneyCode        string // groups visits into one vehicle trip
	RunningBoard       string // groups journeys into one vehicle duty
	TimingPoint        bool
	ScheduledArrival   time.Time
	ScheduledDeparture time.Time
}

// ID returns the identity of the visit.
func (v ScheduledVisit) ID() VisitID {
	return VisitID{
		Service:      v.ServiceID,
		Stop:         v.StopID,
		Journey:      v.JourneyCode,
		Sequence:     v.Sequence,
		RunningBoard: v.RunningBoard,
	}
}

// SameStop is a weak equality: both visits are made by the same service at the
// same stop.
func (v ScheduledVisit) SameStop(o ScheduledVisit) bool {
	return v.ServiceID == o.ServiceID && v.StopID == o.StopID
}

// MatchDirection reports whether the visit runs in direction d.
func (v ScheduledVisit) MatchDirection(d Direction) bool { return v.Direction == d }

// Dwell is the scheduled time spent at the stop.
func (v ScheduledVisit) Dwell() time.Duration {
	return v.ScheduledDeparture.Sub(v.ScheduledArrival)
}

// HistoricVisit is a scheduled visit with the times the vehicle actually
// arrived and departed, when recorded.
type HistoricVisit struct {
	ScheduledVisit
	ActualArrival   *time.Time
	ActualDeparture *time.Time
}

// Solid reports whether both actual times are known.
func (v HistoricVisit) Solid() bool {
	return v.ActualArrival != nil && v.ActualDeparture != nil
}

// SolidOnly keeps the visits usable for simulation.
func SolidOnly(visits []HistoricVisit) []HistoricVisit {
	out := make([]HistoricVisit, 0, len(visits))
	for _, v := range visits {
		if v.Solid() {
			out = append(out, v)
		}
	}
	return out
}

// ClockSeconds returns the number of seconds elapsed since midnight of t's day
// in t's location.
func ClockSeconds(t time.Time) float64 {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return t.Sub(midnight).Seconds()
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtClock places a clock offset on the given day.
func AtClock(day time.Time, offset time.Duration) time.Time {
	return Day(day).Add(offset)
}
