package blame

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/solution"
)

// TimeModel estimates travel and dwell durations for one service. The bool
// result is false when no history backs the estimate.
type TimeModel interface {
	Travel(at time.Time, service, from, to string) (time.Duration, bool)
	Dwell(at time.Time, service, stop string) (time.Duration, bool)
}

// SlackEvaluator blames each visit for the time its vehicle would spend
// waiting compared with a chain of simulated minimum running times.
type SlackEvaluator struct {
	model     TimeModel
	dominance float64
	workers   int
	log       logger.Logger
}

// NewSlackEvaluator builds an evaluator running at most workers chains at
// once.
func NewSlackEvaluator(m TimeModel, dominance float64, workers int, log logger.Logger) *SlackEvaluator {
	if workers < 1 {
		workers = 1
	}
	return &SlackEvaluator{model: m, dominance: dominance, workers: workers, log: logger.OrNop(log)}
}

// Evaluate blames every service of sol and standardises the result.
func (e *SlackEvaluator) Evaluate(ctx context.Context, sol *solution.Solution) error {
	for _, svc := range sol.Services() {
		if err := e.blameService(ctx, sol, svc); err != nil {
			return err
		}
	}
	standardiseSolution(sol, slackKind, e.dominance)
	return nil
}

// EvaluateService blames one service and standardises over the whole of sol.
func (e *SlackEvaluator) EvaluateService(ctx context.Context, sol *solution.Solution, service string) error {
	if err := e.blameService(ctx, sol, service); err != nil {
		return err
	}
	standardiseSolution(sol, slackKind, e.dominance)
	return nil
}

func (e *SlackEvaluator) blameService(ctx context.Context, sol *solution.Solution, service string) error {
	tt := sol.Mutable(service)
	if len(tt) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, chain := range Boards(tt) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.blameChain(service, tt[chain.Start:chain.End])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("slack for service %s: %w", service, err)
	}
	return nil
}

// blameChain writes slack blame along one running board. Visit 0 keeps its
// times and every later visit, across journey boundaries, chains from the
// theoretical departure before it.
func (e *SlackEvaluator) blameChain(service string, chain []solution.BlamedVisit) {
	theo := TheoreticalTimes(e.model, service, chain, chain[0].Arrival(), chain[0].Departure())
	for i := range chain {
		b := &chain[i]
		raw := theo[i].Arrival.Sub(b.Arrival()) + theo[i].Departure.Sub(b.Departure())
		b.Slack.SetRaw(raw.Minutes(), theo[i].Arrival, theo[i].Departure)
	}
}

// Span is a half-open index range of a timetable.
type Span struct{ Start, End int }

// Boards splits an ordered timetable into runs of one running board.
// Timetables built by solution.New keep those runs contiguous.
func Boards(tt []solution.BlamedVisit) []Span {
	var out []Span
	start := 0
	for i := 1; i <= len(tt); i++ {
		if i == len(tt) || tt[i].Visit.RunningBoard != tt[start].Visit.RunningBoard {
			out = append(out, Span{Start: start, End: i})
			start = i
		}
	}
	return out
}

// Chains splits an ordered timetable into runs of one journey on one running
// board.
func Chains(tt []solution.BlamedVisit) []Span {
	var out []Span
	start := 0
	for i := 1; i <= len(tt); i++ {
		if i == len(tt) ||
			tt[i].Visit.RunningBoard != tt[start].Visit.RunningBoard ||
			tt[i].Visit.JourneyCode != tt[start].Visit.JourneyCode {
			out = append(out, Span{Start: start, End: i})
			start = i
		}
	}
	return out
}

// Times is an arrival and departure pair.
type Times struct {
	Arrival   time.Time
	Departure time.Time
}

// TheoreticalTimes chains simulated durations along run, starting from the
// given times of run[0]. An edge or dwell with no history keeps its scheduled
// duration.
func TheoreticalTimes(m TimeModel, service string, run []solution.BlamedVisit, arr0, dep0 time.Time) []Times {
	out := make([]Times, len(run))
	if len(run) == 0 {
		return out
	}
	out[0] = Times{Arrival: arr0, Departure: dep0}
	for i := 1; i < len(run); i++ {
		prev, cur := run[i-1].Visit, run[i].Visit
		travel, ok := m.Travel(out[i-1].Departure, service, prev.StopID, cur.StopID)
		if !ok {
			travel = cur.ScheduledArrival.Sub(prev.ScheduledDeparture)
		}
		arr := out[i-1].Departure.Add(travel)
		dwell, ok := m.Dwell(arr, service, cur.StopID)
		if !ok {
			dwell = cur.Dwell()
		}
		out[i] = Times{Arrival: arr, Departure: arr.Add(dwell)}
	}
	return out
}
