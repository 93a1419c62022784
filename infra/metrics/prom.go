package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
)

// PromSink records search progress in Prometheus metrics.
type PromSink struct {
	iterations *prometheus.CounterVec
	exhausted  *prometheus.CounterVec
	objective  *prometheus.GaugeVec
	best       *prometheus.GaugeVec
	cohesion   *prometheus.GaugeVec
	tabu       *prometheus.GaugeVec
	visits     *prometheus.GaugeVec
	change     *prometheus.HistogramVec
}

// NewPromSink registers search metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer,
// prefixed by cfg.Namespace. A nil registerer defaults to the global
// Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	s := &PromSink{
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "timetable_search_iterations_total",
			Help:      "Accepted moves",
		}, []string{"primary"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "timetable_search_exhausted_total",
			Help:      "Iterations that found no legal move",
		}, []string{"primary", "freed_up"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timetable_search_objective_minutes",
			Help:      "Slack objective of the current solution",
		}, []string{"primary"}),
		best: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timetable_search_best_objective_minutes",
			Help:      "Lowest slack objective seen in the run",
		}, []string{"primary"}),
		cohesion: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timetable_search_cohesion_minutes",
			Help:      "Cohesion total of the current solution",
		}, []string{"primary"}),
		tabu: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timetable_search_tabu_size",
			Help:      "Entries in the tabu list",
		}, []string{"primary"}),
		visits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "timetable_search_visits",
			Help:      "Visits in the optimised timetable",
		}, []string{"primary"}),
		change: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "timetable_search_move_change_minutes",
			Help:      "Largest time change of each accepted move",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45},
		}, []string{"primary"}),
	}
	var err error
	if s.iterations, err = register(reg, s.iterations); err != nil {
		return nil, err
	}
	if s.exhausted, err = register(reg, s.exhausted); err != nil {
		return nil, err
	}
	for _, g := range []**prometheus.GaugeVec{&s.objective, &s.best, &s.cohesion, &s.tabu, &s.visits} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	if s.change, err = register(reg, s.change); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSession resets the gauges for a new run.
func (s *PromSink) RecordSession(ev coremetrics.SessionEvent) error {
	s.objective.WithLabelValues(ev.Primary).Set(ev.Objective)
	s.best.WithLabelValues(ev.Primary).Set(ev.Objective)
	s.visits.WithLabelValues(ev.Primary).Set(float64(ev.Visits))
	s.tabu.WithLabelValues(ev.Primary).Set(0)
	return nil
}

// RecordIteration updates the gauges and counts the move.
func (s *PromSink) RecordIteration(ev coremetrics.IterationEvent) error {
	s.iterations.WithLabelValues(ev.Primary).Inc()
	s.objective.WithLabelValues(ev.Primary).Set(ev.Objective)
	s.best.WithLabelValues(ev.Primary).Set(ev.Best)
	s.cohesion.WithLabelValues(ev.Primary).Set(ev.Cohesion)
	s.tabu.WithLabelValues(ev.Primary).Set(float64(ev.TabuSize))
	s.change.WithLabelValues(ev.Primary).Observe(ev.ChangeMinutes)
	return nil
}

// RecordExhaustion counts iterations without a legal move.
func (s *PromSink) RecordExhaustion(ev coremetrics.ExhaustionEvent) error {
	s.exhausted.WithLabelValues(ev.Primary, strconv.FormatBool(ev.FreedUp)).Inc()
	s.tabu.WithLabelValues(ev.Primary).Set(float64(ev.TabuSize))
	return nil
}
