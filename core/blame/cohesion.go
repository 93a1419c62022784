package blame

import (
	"sort"
	"time"

	"github.com/kilianp07/timetabler/core/solution"
)

// Interest reports which services matter at which stops.
// segment.Collection implements it.
type Interest interface {
	SharedStops() []string
	ServicesAt(stop string) []string
}

// CohesionEvaluator blames visits at shared stops for uneven spacing between
// the services calling there within each clock hour.
type CohesionEvaluator struct {
	interest  Interest
	dominance float64
}

// NewCohesionEvaluator builds a CohesionEvaluator.
func NewCohesionEvaluator(interest Interest, dominance float64) *CohesionEvaluator {
	return &CohesionEvaluator{interest: interest, dominance: dominance}
}

type hourKey struct {
	stop string
	hour time.Time
}

type cohesionBlame struct {
	raw      float64
	arr, dep time.Time
}

// Evaluate recomputes cohesion blame for every visit of sol and standardises
// it. Visits that no longer fall in a group of two or more lose their blame.
func (e *CohesionEvaluator) Evaluate(sol *solution.Solution) {
	shared := make(map[string]map[string]struct{})
	for _, stop := range e.interest.SharedStops() {
		set := make(map[string]struct{})
		for _, svc := range e.interest.ServicesAt(stop) {
			set[svc] = struct{}{}
		}
		shared[stop] = set
	}

	groups := make(map[hourKey][]solution.Ref)
	for _, r := range sol.Refs() {
		v := sol.Visit(r).Visit
		set, ok := shared[v.StopID]
		if !ok {
			continue
		}
		if _, ok := set[v.ServiceID]; !ok {
			continue
		}
		k := hourKey{stop: v.StopID, hour: hourStart(v.ScheduledArrival)}
		groups[k] = append(groups[k], r)
	}

	blamed := make(map[solution.Ref]cohesionBlame)
	for k, refs := range groups {
		if len(refs) <= 1 {
			continue
		}
		sort.SliceStable(refs, func(i, j int) bool {
			return sol.Visit(refs[i]).Arrival().Before(sol.Visit(refs[j]).Arrival())
		})
		n := len(refs)
		offsets := make([]float64, n)
		mean := 0.0
		for i, r := range refs {
			slot := k.hour.Add(time.Duration(float64(i) * float64(time.Hour) / float64(n)))
			offsets[i] = sol.Visit(r).Arrival().Sub(slot).Minutes()
			mean += offsets[i]
		}
		mean /= float64(n)
		for i, r := range refs {
			raw := offsets[i] - mean
			shift := -time.Duration(raw * float64(time.Minute)).Round(time.Second)
			b := sol.Visit(r)
			blamed[r] = cohesionBlame{raw: raw, arr: b.Arrival().Add(shift), dep: b.Departure().Add(shift)}
		}
	}

	for _, r := range sol.Refs() {
		cur := sol.Visit(r).Cohesion
		nb, ok := blamed[r]
		switch {
		case !ok && !cur.HasRaw:
			continue
		case ok && cur.HasRaw && cur.Raw == nb.raw && cur.TargetArrival.Equal(nb.arr):
			continue
		}
		tt := sol.Mutable(r.Service)
		if !ok {
			tt[r.Index].Cohesion = solution.Weight{}
			continue
		}
		tt[r.Index].Cohesion.SetRaw(nb.raw, nb.arr, nb.dep)
	}
	standardiseSolution(sol, cohesionKind, e.dominance)
}

func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
