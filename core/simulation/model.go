package simulation

import (
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// ServiceSelector picks the comparison services for a stop or stop pair.
// segment.Collection implements it.
type ServiceSelector interface {
	CommonServices(a, b string) []string
	ServicesAt(stop string) []string
}

// Model answers travel and dwell questions for one visit's service, drawing
// on every service of interest that shares the stop or edge. Answers are
// memoised and Model is safe for concurrent use.
type Model struct {
	journey  JourneySimulator
	dwell    DwellSimulator
	services ServiceSelector
	cache    sync.Map
}

type cacheKey struct {
	kind     byte
	services string
	from     string
	to       string
	at       int64
}

type cached struct {
	d  time.Duration
	ok bool
}

// NewModel builds a Model over h. A nil selector compares each visit with
// its own service only.
func NewModel(h *History, services ServiceSelector) *Model {
	return &Model{journey: NewJourneySimulator(h), dwell: NewDwellSimulator(h), services: services}
}

// Travel estimates the running time of service from one stop to the next.
func (m *Model) Travel(at time.Time, service, from, to string) (time.Duration, bool) {
	var svcs []string
	if m.services != nil {
		svcs = m.services.CommonServices(from, to)
	}
	svcs = withService(svcs, service)
	k := cacheKey{kind: 't', services: strings.Join(svcs, ","), from: from, to: to, at: int64(model.ClockSeconds(at))}
	if v, ok := m.cache.Load(k); ok {
		c := v.(cached)
		return c.d, c.ok
	}
	d, ok := m.journey.Estimate(at, from, to, svcs)
	m.cache.Store(k, cached{d: d, ok: ok})
	return d, ok
}

// Dwell estimates the dwell of service at stop.
func (m *Model) Dwell(at time.Time, service, stop string) (time.Duration, bool) {
	var svcs []string
	if m.services != nil {
		svcs = m.services.ServicesAt(stop)
	}
	svcs = withService(svcs, service)
	k := cacheKey{kind: 'd', services: strings.Join(svcs, ","), from: stop, at: int64(model.ClockSeconds(at))}
	if v, ok := m.cache.Load(k); ok {
		c := v.(cached)
		return c.d, c.ok
	}
	d, ok := m.dwell.Estimate(at, stop, svcs)
	m.cache.Store(k, cached{d: d, ok: ok})
	return d, ok
}

func withService(svcs []string, service string) []string {
	for _, s := range svcs {
		if s == service {
			return svcs
		}
	}
	return append(append([]string(nil), svcs...), service)
}
