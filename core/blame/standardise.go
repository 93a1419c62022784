// Package blame assigns slack and cohesion blame to the visits of a
// Solution and scales it so the two objectives can be compared.
package blame

import (
	"math"
	"sort"

	"github.com/kilianp07/timetabler/core/solution"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	lowerPercentile = 0.05
	upperPercentile = 0.95
)

// Standardise suppresses outliers and scales values into [0, dominance].
// Values outside the 5th to 95th percentile are replaced by the mean of the
// values inside it, then the result is min-max scaled. Fewer than two values,
// or a constant input, scale to zero.
func Standardise(values []float64, dominance float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 {
		return out
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo := stat.Quantile(lowerPercentile, stat.Empirical, sorted, nil)
	hi := stat.Quantile(upperPercentile, stat.Empirical, sorted, nil)

	var kept []float64
	for _, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	fill := stat.Mean(kept, nil)
	for i, v := range values {
		if v < lo || v > hi {
			v = fill
		}
		out[i] = v
	}

	min, max := floats.Min(out), floats.Max(out)
	span := max - min
	for i, v := range out {
		if span <= 0 || math.IsNaN(span) {
			out[i] = 0
			continue
		}
		out[i] = (v - min) / span * dominance
	}
	return out
}

// kind selects which weight of a visit is being standardised.
type kind int

const (
	slackKind kind = iota
	cohesionKind
)

func weightOf(b *solution.BlamedVisit, k kind) *solution.Weight {
	if k == slackKind {
		return &b.Slack
	}
	return &b.Cohesion
}

// standardiseSolution rescales one weight kind across every visit of sol that
// carries a raw value. Only services whose values change are written.
func standardiseSolution(sol *solution.Solution, k kind, dominance float64) {
	var (
		refs   []solution.Ref
		values []float64
	)
	for _, r := range sol.Refs() {
		b := sol.Visit(r)
		w := weightOf(&b, k)
		if w.HasRaw {
			refs = append(refs, r)
			values = append(values, math.Abs(w.Raw))
		}
	}
	scaled := Standardise(values, dominance)
	for i, r := range refs {
		cur := sol.Visit(r)
		w := weightOf(&cur, k)
		if w.HasValue && w.Value == scaled[i] {
			continue
		}
		tt := sol.Mutable(r.Service)
		w = weightOf(&tt[r.Index], k)
		w.Value, w.HasValue = scaled[i], true
	}
}
