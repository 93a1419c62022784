package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// Memory is an in-memory DataProvider. It backs tests and small fixtures and
// is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	stops     map[string]model.Stop
	routes    map[routeKey][]string
	scheduled map[dayKey][]model.ScheduledVisit
	historic  map[dayKey][]model.HistoricVisit
}

type routeKey struct {
	service string
	dir     model.Direction
}

type dayKey struct {
	service string
	day     string
}

// NewMemory returns an empty provider.
func NewMemory() *Memory {
	return &Memory{
		stops:     make(map[string]model.Stop),
		routes:    make(map[routeKey][]string),
		scheduled: make(map[dayKey][]model.ScheduledVisit),
		historic:  make(map[dayKey][]model.HistoricVisit),
	}
}

func dayString(t time.Time) string { return t.Format("2006-01-02") }

// AddStop registers or replaces a stop.
func (m *Memory) AddStop(s model.Stop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.stops[s.ID]; ok && len(s.Services) == 0 {
		s.Services = old.Services
	}
	m.stops[s.ID] = s
}

// SetRoute sets the ordered stops of service in dir. Unknown stops are
// created with no coordinates.
func (m *Memory) SetRoute(service string, dir model.Direction, stopIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[routeKey{service, dir}] = append([]string(nil), stopIDs...)
	for _, id := range stopIDs {
		s, ok := m.stops[id]
		if !ok {
			s = model.Stop{ID: id, Name: id}
		}
		if !s.Serves(service) {
			s.Services = append(s.Services, service)
		}
		m.stops[id] = s
	}
}

// AddScheduled appends scheduled visits for service on date.
func (m *Memory) AddScheduled(service string, date time.Time, visits ...model.ScheduledVisit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey{service, dayString(date)}
	m.scheduled[k] = append(m.scheduled[k], visits...)
}

// AddHistoric appends historic visits for service on date.
func (m *Memory) AddHistoric(service string, date time.Time, visits ...model.HistoricVisit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey{service, dayString(date)}
	m.historic[k] = append(m.historic[k], visits...)
}

// Stops implements DataProvider.
func (m *Memory) Stops(_ context.Context, service string, dir model.Direction) ([]model.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, ok := m.routes[routeKey{service, dir}]
	if !ok || len(ids) == 0 {
		return nil, ErrNoData
	}
	out := make([]model.Stop, len(ids))
	for i, id := range ids {
		s := m.stops[id]
		s.Services = append([]string(nil), s.Services...)
		out[i] = s
	}
	return out, nil
}

// ScheduledTimetable implements DataProvider.
func (m *Memory) ScheduledTimetable(_ context.Context, service string, date time.Time) ([]model.ScheduledVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.scheduled[dayKey{service, dayString(date)}]
	if !ok || len(v) == 0 {
		return nil, ErrNoData
	}
	return append([]model.ScheduledVisit(nil), v...), nil
}

// HistoricTimetable implements DataProvider.
func (m *Memory) HistoricTimetable(_ context.Context, service string, date time.Time) ([]model.HistoricVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.historic[dayKey{service, dayString(date)}]
	if !ok || len(v) == 0 {
		return nil, ErrNoData
	}
	return append([]model.HistoricVisit(nil), v...), nil
}

// HistoricTimetableAtStop implements DataProvider.
func (m *Memory) HistoricTimetableAtStop(_ context.Context, stop string, date time.Time) ([]model.HistoricVisit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	day := dayString(date)
	var out []model.HistoricVisit
	for k, visits := range m.historic {
		if k.day != day {
			continue
		}
		for _, v := range visits {
			if v.StopID == stop {
				out = append(out, v)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledArrival.Before(out[j].ScheduledArrival)
	})
	return out, nil
}

// ServicesAt implements DataProvider.
func (m *Memory) ServicesAt(_ context.Context, stop string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stops[stop]
	if !ok {
		return nil, ErrNoData
	}
	out := append([]string(nil), s.Services...)
	sort.Strings(out)
	return out, nil
}
