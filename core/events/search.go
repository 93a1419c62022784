package events

import (
	"github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/core/solution"
)

// Event is any search event.
type Event interface {
	Run() string
}

// RunStarted is published once before the first iteration.
type RunStarted struct {
	metrics.SessionEvent
}

// MoveAccepted is published for every applied move.
type MoveAccepted struct {
	metrics.IterationEvent
	Move solution.Move
}

// SearchExhausted is published when no legal move was found.
type SearchExhausted struct {
	metrics.ExhaustionEvent
}

func (e RunStarted) Run() string      { return e.SessionEvent.RunID }
func (e MoveAccepted) Run() string    { return e.IterationEvent.RunID }
func (e SearchExhausted) Run() string { return e.ExhaustionEvent.RunID }
