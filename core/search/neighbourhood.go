package search

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/kilianp07/timetabler/core/blame"
	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/solution"
	"github.com/kilianp07/timetabler/core/tabu"
)

const (
	minHorizon     = 20 * time.Minute
	horizonMinutes = 26 // horizon lies 20 to 45 minutes after the target
)

// NeighbourhoodGenerator proposes candidate moves around the most blamed
// visits of a Solution.
type NeighbourhoodGenerator struct {
	model      blame.TimeModel
	areas      int
	candidates int
	rng        *rand.Rand
	log        logger.Logger
}

// NewNeighbourhoodGenerator builds a generator. rng drives both the target
// draw and the drop-off horizon, so a seeded rng makes generation
// reproducible.
func NewNeighbourhoodGenerator(m blame.TimeModel, neighbourhoodSize, candidateListSize int, rng *rand.Rand, log logger.Logger) *NeighbourhoodGenerator {
	return &NeighbourhoodGenerator{
		model:      m,
		areas:      neighbourhoodSize,
		candidates: candidateListSize,
		rng:        rng,
		log:        logger.OrNop(log),
	}
}

type ranked struct {
	ref    solution.Ref
	id     model.VisitID
	weight float64
}

// Generate returns up to candidateListSize moves. Fewer are returned only
// when every blamed visit has been tried.
func (g *NeighbourhoodGenerator) Generate(sol *solution.Solution, tl *tabu.List) ([]solution.Move, error) {
	list := g.rank(sol, tl)
	drawn := make(map[model.VisitID]bool)
	var moves []solution.Move
	for len(moves) < g.candidates {
		areas := g.targetAreas(list, drawn)
		if len(areas) == 0 {
			break
		}
		for len(areas) > 0 && len(moves) < g.candidates {
			i := g.rng.Intn(len(areas))
			target := areas[i]
			areas = append(areas[:i], areas[i+1:]...)
			drawn[target.id] = true

			mv, err := g.buildMove(sol, target.ref)
			if err != nil {
				return nil, err
			}
			if len(mv.Changed) == 0 || tl.IsTabu(mv.ChangedIDs()) {
				continue
			}
			moves = append(moves, mv)
		}
	}
	g.log.Debugf("neighbourhood: %d moves from %d blamed visits", len(moves), len(list))
	return moves, nil
}

// rank orders the movable visits by total blame, highest first.
func (g *NeighbourhoodGenerator) rank(sol *solution.Solution, tl *tabu.List) []ranked {
	var out []ranked
	for _, svc := range sol.Services() {
		tt := sol.Timetable(svc)
		for _, span := range blame.Chains(tt) {
			// first and last visits of a journey cannot be estimated
			for i := span.Start + 1; i < span.End-1; i++ {
				b := tt[i]
				w := b.TotalWeight()
				if w <= 0 || tl.Contains(b.ID()) {
					continue
				}
				if !b.Slack.HasRaw && !b.Cohesion.HasRaw {
					continue
				}
				out = append(out, ranked{ref: solution.Ref{Service: svc, Index: i}, id: b.ID(), weight: w})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].weight > out[j].weight })
	return out
}

// targetAreas picks the highest blamed visits not yet drawn, at most one per
// journey of a service.
func (g *NeighbourhoodGenerator) targetAreas(list []ranked, drawn map[model.VisitID]bool) []ranked {
	type journey struct{ service, code string }
	seen := make(map[journey]bool)
	var out []ranked
	for _, r := range list {
		if len(out) == g.areas {
			break
		}
		if drawn[r.id] {
			continue
		}
		k := journey{service: r.id.Service, code: r.id.Journey}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// buildMove moves the target to its blame targets and lets the change decay
// along the running board up to a random drop-off horizon.
func (g *NeighbourhoodGenerator) buildMove(sol *solution.Solution, ref solution.Ref) (solution.Move, error) {
	id := sol.Visit(ref).ID()
	tt := sol.CopyTimetable(ref.Service)
	idx := -1
	for i := range tt {
		if tt[i].ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return solution.Move{}, fmt.Errorf("%w: target %s missing from cloned timetable", ErrInvariant, id)
	}
	orig := make([]blame.Times, len(tt))
	for i, b := range tt {
		orig[i] = blame.Times{Arrival: b.Arrival(), Departure: b.Departure()}
	}

	target := tt[idx]
	w := target.Slack
	if !w.HasRaw {
		w = target.Cohesion
	}
	newArr, newDep := w.TargetArrival.Round(time.Second), w.TargetDeparture.Round(time.Second)
	if newDep.Before(newArr) {
		newDep = newArr
	}
	board := target.Visit.RunningBoard
	if idx > 0 && tt[idx-1].Visit.RunningBoard == board && newArr.Before(tt[idx-1].Departure()) {
		shift := tt[idx-1].Departure().Sub(newArr)
		newArr, newDep = newArr.Add(shift), newDep.Add(shift)
	}

	changed := make(map[model.VisitID]struct{})
	set := func(i int, arr, dep time.Time) {
		if arr.Equal(orig[i].Arrival) && dep.Equal(orig[i].Departure) {
			return
		}
		tt[i].SetTimes(arr, dep)
		changed[tt[i].ID()] = struct{}{}
	}
	set(idx, newArr, newDep)

	horizon := orig[idx].Arrival.Add(minHorizon + time.Duration(g.rng.Intn(horizonMinutes))*time.Minute)
	end := idx + 1
	for end < len(tt) && tt[end].Visit.RunningBoard == board && !orig[end].Arrival.After(horizon) {
		end++
	}
	theo := blame.TheoreticalTimes(g.model, ref.Service, tt[idx:end], newArr, newDep)
	window := horizon.Sub(orig[idx].Arrival).Seconds()
	for j := idx + 1; j < end; j++ {
		frac := orig[j].Arrival.Sub(orig[idx].Arrival).Seconds() / window
		frac = math.Max(0, math.Min(1, frac))
		arr := blend(theo[j-idx].Arrival, orig[j].Arrival, frac)
		dep := blend(theo[j-idx].Departure, orig[j].Departure, frac)
		if prev := tt[j-1].Departure(); arr.Before(prev) {
			arr = prev
		}
		if dep.Before(arr) {
			dep = arr
		}
		set(j, arr, dep)
	}
	// visits beyond the horizon only move when they would otherwise overlap
	for k := end; k < len(tt) && tt[k].Visit.RunningBoard == board; k++ {
		gap := tt[k-1].Departure().Sub(tt[k].Arrival())
		if gap <= 0 {
			break
		}
		set(k, tt[k].Arrival().Add(gap), tt[k].Departure().Add(gap))
	}

	change := math.Max(math.Abs(newArr.Sub(orig[idx].Arrival).Minutes()), math.Abs(newDep.Sub(orig[idx].Departure).Minutes()))
	return solution.Move{
		Service:           ref.Service,
		Timetable:         tt,
		Changed:           changed,
		Target:            id,
		ProposedArrival:   newArr,
		ProposedDeparture: newDep,
		ChangeMinutes:     change,
	}, nil
}

// blend weighs the theoretical time by 1-frac and the original by frac.
func blend(theo, orig time.Time, frac float64) time.Time {
	d := theo.Sub(orig)
	return orig.Add(time.Duration(float64(d) * (1 - frac))).Round(time.Second)
}
