package segment

import (
	"sort"
	"sync"

	"github.com/kilianp07/timetabler/core/model"
)

// Collection tracks, per stop, the services whose timetables the search
// should consider. The primary service is always of interest at its own
// stops; secondary services are opted in with Add.
type Collection struct {
	primary  string
	segments map[string][]RouteSegment

	mu       sync.RWMutex
	enabled  map[string]bool
	interest map[string]map[string]struct{}
}

// NewCollection builds a collection for primary over its stops and the
// segments found for it.
func NewCollection(primary string, primaryStops []model.Stop, segments []RouteSegment) *Collection {
	c := &Collection{
		primary:  primary,
		segments: make(map[string][]RouteSegment),
		enabled:  make(map[string]bool),
		interest: make(map[string]map[string]struct{}),
	}
	for _, s := range primaryStops {
		c.mark(s.ID, primary)
	}
	for _, seg := range segments {
		c.segments[seg.Secondary] = append(c.segments[seg.Secondary], seg)
		for _, s := range seg.Stops {
			c.mark(s.ID, primary)
		}
	}
	return c
}

func (c *Collection) mark(stop, service string) {
	set, ok := c.interest[stop]
	if !ok {
		set = make(map[string]struct{})
		c.interest[stop] = set
	}
	set[service] = struct{}{}
}

// Primary returns the primary service identifier.
func (c *Collection) Primary() string { return c.primary }

// Add opts a secondary service in at every stop of its segments. Adding a
// service without segments or the primary is a no-op.
func (c *Collection) Add(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if service == c.primary || c.enabled[service] {
		return
	}
	segs, ok := c.segments[service]
	if !ok {
		return
	}
	c.enabled[service] = true
	for _, seg := range segs {
		for _, s := range seg.Stops {
			c.mark(s.ID, service)
		}
	}
}

// Remove opts a secondary service out again.
func (c *Collection) Remove(service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if service == c.primary || !c.enabled[service] {
		return
	}
	delete(c.enabled, service)
	for _, seg := range c.segments[service] {
		for _, s := range seg.Stops {
			if set, ok := c.interest[s.ID]; ok {
				delete(set, service)
			}
		}
	}
}

// Services returns the primary followed by the enabled secondaries, sorted.
func (c *Collection) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.enabled)+1)
	for s := range c.enabled {
		out = append(out, s)
	}
	sort.Strings(out)
	return append([]string{c.primary}, out...)
}

// Secondaries lists every service sharing at least one segment, enabled or not.
func (c *Collection) Secondaries() []string {
	out := make([]string, 0, len(c.segments))
	for s := range c.segments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Segments returns the segments shared with service.
func (c *Collection) Segments(service string) []RouteSegment {
	return c.segments[service]
}

// ServicesAt lists the services of interest at stop.
func (c *Collection) ServicesAt(stop string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return setToSlice(c.interest[stop])
}

// CommonServices lists the services of interest at both stops.
func (c *Collection) CommonServices(a, b string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sa, sb := c.interest[a], c.interest[b]
	var out []string
	for s := range sa {
		if _, ok := sb[s]; ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// SharedStops lists the stops with at least two services of interest.
func (c *Collection) SharedStops() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for stop, set := range c.interest {
		if len(set) >= 2 {
			out = append(out, stop)
		}
	}
	sort.Strings(out)
	return out
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
