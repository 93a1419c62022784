package metrics

import "time"

// SessionEvent describes the timetable a search run starts from.
type SessionEvent struct {
	RunID     string
	Primary   string
	Services  int
	Visits    int
	Segments  int
	Objective float64
	Time      time.Time
}

// IterationEvent is emitted once per accepted move.
type IterationEvent struct {
	RunID         string
	Primary       string
	Iteration     int
	Objective     float64
	Adjusted      float64
	Best          float64
	Cohesion      float64
	Candidates    int
	TabuSize      int
	Service       string
	Target        string
	Changed       int
	ChangeMinutes float64
	Time          time.Time
}

// ExhaustionEvent records an iteration that found no legal move.
type ExhaustionEvent struct {
	RunID     string
	Primary   string
	Iteration int
	TabuSize  int
	FreedUp   bool
	Time      time.Time
}

// MetricsSink records search iterations.
type MetricsSink interface {
	RecordIteration(ev IterationEvent) error
}

// SessionRecorder records the start of a run.
type SessionRecorder interface {
	RecordSession(ev SessionEvent) error
}

// ExhaustionRecorder records iterations without a legal move.
type ExhaustionRecorder interface {
	RecordExhaustion(ev ExhaustionEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordIteration(IterationEvent) error   { return nil }
func (NopSink) RecordSession(SessionEvent) error       { return nil }
func (NopSink) RecordExhaustion(ExhaustionEvent) error { return nil }
