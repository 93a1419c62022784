package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/timetabler/core/blame"
	"github.com/kilianp07/timetabler/core/events"
	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/core/monitoring"
	"github.com/kilianp07/timetabler/core/search/journal"
	"github.com/kilianp07/timetabler/core/solution"
	"github.com/kilianp07/timetabler/core/tabu"
	"github.com/kilianp07/timetabler/internal/eventbus"
)

// Decision is a caller's answer to an iteration without a legal move.
type Decision int

const (
	// Stop ends the run.
	Stop Decision = iota
	// FreeUp expires part of the tabu list and retries.
	FreeUp
)

// ExhaustionHandler is asked what to do when no legal move exists.
type ExhaustionHandler func(iteration, tabuSize int) Decision

// HandlerFor returns the handler implementing a configured policy.
func HandlerFor(e Exhaustion) ExhaustionHandler {
	return func(int, int) Decision {
		if e == ExhaustionFreeUp {
			return FreeUp
		}
		return Stop
	}
}

// Record is one accepted iteration.
type Record struct {
	Iteration  int
	Move       solution.Move
	Objective  float64
	Adjusted   float64
	Best       float64
	Cohesion   float64
	Candidates int
}

// StopReason explains why Run returned.
type StopReason string

const (
	StopBudget    StopReason = "budget"
	StopExhausted StopReason = "exhausted"
	StopCancelled StopReason = "cancelled"
)

// Result summarises a run.
type Result struct {
	RunID            string
	Iterations       int
	InitialObjective float64
	BestObjective    float64
	Best             *solution.Solution
	Current          *solution.Solution
	History          []Record
	Reason           StopReason
}

// TimeTableEvaluator runs the tabu search over a Solution. It is not safe
// for concurrent use.
type TimeTableEvaluator struct {
	cfg       Config
	primary   string
	runID     string
	slack     *blame.SlackEvaluator
	cohesion  *blame.CohesionEvaluator
	generator *NeighbourhoodGenerator
	selector  *MoveSelector
	tabu      *tabu.List

	current       *solution.Solution
	best          *solution.Solution
	initial       float64
	bestObjective float64
	blamed        bool
	iteration     int
	history       []Record

	sink    metrics.MetricsSink
	bus     *eventbus.TypedBus[events.Event]
	journal journal.Store
	monitor monitoring.Monitor
	log     logger.Logger
}

// NewTimeTableEvaluator prepares a run starting from initial. The sink, bus,
// journal, monitor and logger are optional.
func NewTimeTableEvaluator(cfg Config, primary string, initial *solution.Solution, m blame.TimeModel, interest blame.Interest,
	sink metrics.MetricsSink, bus *eventbus.TypedBus[events.Event], store journal.Store, mon monitoring.Monitor, log logger.Logger) (*TimeTableEvaluator, error) {
	if initial == nil || m == nil || interest == nil {
		return nil, fmt.Errorf("search: nil parameter provided to NewTimeTableEvaluator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if store == nil {
		store = journal.NopStore{}
	}
	log = logger.OrNop(log)
	rng := rand.New(rand.NewSource(cfg.Seed))
	slack := blame.NewSlackEvaluator(m, cfg.SlackDominance, cfg.Workers, log)
	cohesion := blame.NewCohesionEvaluator(interest, cfg.CohesionDominance)
	return &TimeTableEvaluator{
		cfg:       cfg,
		primary:   primary,
		runID:     uuid.NewString(),
		slack:     slack,
		cohesion:  cohesion,
		generator: NewNeighbourhoodGenerator(m, cfg.NeighbourhoodSize, cfg.CandidateListSize, rng, log),
		selector:  NewMoveSelector(slack, cohesion, log),
		tabu:      tabu.New(cfg.TabuTenure),
		current:   initial.Clone(),
		sink:      sink,
		bus:       bus,
		journal:   store,
		monitor:   monitoring.OrNop(mon),
		log:       log,
	}, nil
}

// RunID identifies this run in metrics, events and the journal.
func (e *TimeTableEvaluator) RunID() string { return e.runID }

// Current returns the Solution of the latest iteration.
func (e *TimeTableEvaluator) Current() *solution.Solution { return e.current }

// Best returns the lowest objective Solution seen so far.
func (e *TimeTableEvaluator) Best() *solution.Solution {
	if e.best == nil {
		return e.current
	}
	return e.best
}

// BestObjective returns the objective of Best.
func (e *TimeTableEvaluator) BestObjective() float64 { return e.bestObjective }

// History returns the accepted iterations in order.
func (e *TimeTableEvaluator) History() []Record { return e.history }

// Iteration returns the number of accepted moves.
func (e *TimeTableEvaluator) Iteration() int { return e.iteration }

// TabuSize returns the number of live tabu entries.
func (e *TimeTableEvaluator) TabuSize() int { return e.tabu.Len() }

// FreeUpTabu expires part of the tabu list. It reports false when there was
// nothing to free.
func (e *TimeTableEvaluator) FreeUpTabu() bool { return e.tabu.FreeUpEarly() }

// init blames the starting Solution once.
func (e *TimeTableEvaluator) init(ctx context.Context) error {
	if e.blamed {
		return nil
	}
	if err := e.slack.Evaluate(ctx, e.current); err != nil {
		return err
	}
	e.blamed = true
	e.initial = e.current.Objective()
	e.bestObjective = e.initial
	e.best = e.current.Clone()
	ev := metrics.SessionEvent{
		RunID:     e.runID,
		Primary:   e.primary,
		Services:  len(e.current.Services()),
		Visits:    e.current.Len(),
		Objective: e.initial,
		Time:      time.Now(),
	}
	if rec, ok := e.sink.(metrics.SessionRecorder); ok {
		if err := rec.RecordSession(ev); err != nil {
			e.log.Warnf("record session: %v", err)
		}
	}
	e.publish(events.RunStarted{SessionEvent: ev})
	e.log.Infof("run %s: %d visits over %d services, initial objective %.2f", e.runID, ev.Visits, ev.Services, e.initial)
	return nil
}

// Step performs one iteration. It returns ErrNoMove when no legal move
// exists and an ErrInvariant wrapped error when the run must abort.
// Once started, an iteration ignores cancellation of ctx.
func (e *TimeTableEvaluator) Step(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	ctx = context.WithoutCancel(ctx)
	if err := e.init(ctx); err != nil {
		return Record{}, e.fail(err)
	}
	e.cohesion.Evaluate(e.current)

	moves, err := e.generator.Generate(e.current, e.tabu)
	if err != nil {
		return Record{}, e.fail(err)
	}
	if len(moves) == 0 {
		return Record{}, ErrNoMove
	}
	sel, err := e.selector.Select(ctx, e.current, moves, e.tabu)
	if err != nil {
		if errors.Is(err, ErrNoMove) {
			return Record{}, err
		}
		return Record{}, e.fail(err)
	}

	e.current = sel.Solution
	e.iteration++
	if sel.Objective < e.bestObjective {
		e.bestObjective = sel.Objective
		e.best = e.current.Clone()
	}
	rec := Record{
		Iteration:  e.iteration,
		Move:       sel.Move,
		Objective:  sel.Objective,
		Adjusted:   sel.Adjusted,
		Best:       e.bestObjective,
		Cohesion:   sel.Cohesion,
		Candidates: len(moves),
	}
	e.history = append(e.history, rec)
	e.report(ctx, rec)
	return rec, nil
}

// Run iterates until budget moves have been accepted, the handler stops an
// exhausted search, or ctx is cancelled between iterations. A nil handler
// stops on exhaustion.
func (e *TimeTableEvaluator) Run(ctx context.Context, budget int, onExhausted ExhaustionHandler) (Result, error) {
	if onExhausted == nil {
		onExhausted = HandlerFor(ExhaustionStop)
	}
	reason := StopBudget
	for e.iteration < budget {
		if ctx.Err() != nil {
			reason = StopCancelled
			break
		}
		_, err := e.Step(ctx)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNoMove) {
			return e.result(reason), err
		}
		decision := onExhausted(e.iteration, e.tabu.Len())
		freed := decision == FreeUp && e.FreeUpTabu()
		e.exhausted(freed)
		if !freed {
			reason = StopExhausted
			break
		}
	}
	res := e.result(reason)
	e.log.Infof("run %s stopped (%s) after %d iterations: objective %.2f -> best %.2f",
		e.runID, reason, e.iteration, res.InitialObjective, res.BestObjective)
	return res, nil
}

func (e *TimeTableEvaluator) result(reason StopReason) Result {
	return Result{
		RunID:            e.runID,
		Iterations:       e.iteration,
		InitialObjective: e.initial,
		BestObjective:    e.bestObjective,
		Best:             e.Best(),
		Current:          e.current,
		History:          e.history,
		Reason:           reason,
	}
}

func (e *TimeTableEvaluator) fail(err error) error {
	e.monitor.CaptureException(err, map[string]string{"run_id": e.runID, "primary": e.primary})
	e.log.Errorf("run %s: %v", e.runID, err)
	return err
}

func (e *TimeTableEvaluator) exhausted(freed bool) {
	ev := metrics.ExhaustionEvent{RunID: e.runID, Primary: e.primary, Iteration: e.iteration, TabuSize: e.tabu.Len(), FreedUp: freed, Time: time.Now()}
	if rec, ok := e.sink.(metrics.ExhaustionRecorder); ok {
		if err := rec.RecordExhaustion(ev); err != nil {
			e.log.Warnf("record exhaustion: %v", err)
		}
	}
	e.publish(events.SearchExhausted{ExhaustionEvent: ev})
	e.log.Warnf("run %s: no legal move at iteration %d (tabu %d, freed %t)", e.runID, e.iteration, ev.TabuSize, freed)
}

func (e *TimeTableEvaluator) report(ctx context.Context, rec Record) {
	now := time.Now()
	ev := metrics.IterationEvent{
		RunID:         e.runID,
		Primary:       e.primary,
		Iteration:     rec.Iteration,
		Objective:     rec.Objective,
		Adjusted:      rec.Adjusted,
		Best:          rec.Best,
		Cohesion:      rec.Cohesion,
		Candidates:    rec.Candidates,
		TabuSize:      e.tabu.Len(),
		Service:       rec.Move.Service,
		Target:        rec.Move.Target.String(),
		Changed:       len(rec.Move.Changed),
		ChangeMinutes: rec.Move.ChangeMinutes,
		Time:          now,
	}
	if err := e.sink.RecordIteration(ev); err != nil {
		e.log.Warnf("record iteration: %v", err)
	}
	entry := journal.FromMove(rec.Move)
	entry.RunID = e.runID
	entry.Timestamp = now
	entry.Iteration = rec.Iteration
	entry.Objective = rec.Objective
	entry.Adjusted = rec.Adjusted
	entry.Best = rec.Best
	entry.Cohesion = rec.Cohesion
	entry.Candidates = rec.Candidates
	if err := e.journal.Append(ctx, entry); err != nil {
		e.log.Warnf("journal append: %v", err)
	}
	e.publish(events.MoveAccepted{IterationEvent: ev, Move: rec.Move})
	e.log.Debugf("iteration %d: %s moved %.1f min, objective %.2f (best %.2f)",
		rec.Iteration, rec.Move.Target, rec.Move.ChangeMinutes, rec.Objective, rec.Best)
}

func (e *TimeTableEvaluator) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
