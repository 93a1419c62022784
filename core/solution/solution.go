package solution

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// Solution maps each service to its timetable for one day. Timetables are
// ordered by running board, then journey start, then sequence, so that one
// vehicle's duty is a contiguous run.
//
// Solutions are copy-on-write: Clone shares every timetable with its parent
// and a timetable is copied the first time it is written through Mutable.
// Timetables returned by Timetable must be treated as read-only.
type Solution struct {
	services map[string][]BlamedVisit
	owned    map[string]bool
}

// New builds a Solution from scheduled visits grouped by service.
func New(visits map[string][]model.ScheduledVisit) *Solution {
	s := &Solution{services: make(map[string][]BlamedVisit, len(visits)), owned: make(map[string]bool, len(visits))}
	for svc, vs := range visits {
		tt := make([]BlamedVisit, len(vs))
		for i, v := range vs {
			tt[i] = NewBlamedVisit(v)
		}
		Order(tt)
		s.services[svc] = tt
		s.owned[svc] = true
	}
	return s
}

// Order sorts a timetable by running board, journey start and sequence.
func Order(tt []BlamedVisit) {
	starts := make(map[string]time.Time)
	for _, b := range tt {
		k := b.Visit.RunningBoard + "\x00" + b.Visit.JourneyCode
		if cur, ok := starts[k]; !ok || b.Departure().Before(cur) {
			starts[k] = b.Departure()
		}
	}
	sort.SliceStable(tt, func(i, j int) bool {
		a, b := tt[i].Visit, tt[j].Visit
		if a.RunningBoard != b.RunningBoard {
			return a.RunningBoard < b.RunningBoard
		}
		sa := starts[a.RunningBoard+"\x00"+a.JourneyCode]
		sb := starts[b.RunningBoard+"\x00"+b.JourneyCode]
		if !sa.Equal(sb) {
			return sa.Before(sb)
		}
		if a.JourneyCode != b.JourneyCode {
			return a.JourneyCode < b.JourneyCode
		}
		return a.Sequence < b.Sequence
	})
}

// Clone returns a Solution sharing all timetables with s. Writes to either
// copy never affect the other.
func (s *Solution) Clone() *Solution {
	c := &Solution{services: make(map[string][]BlamedVisit, len(s.services)), owned: make(map[string]bool)}
	for svc, tt := range s.services {
		c.services[svc] = tt
	}
	// the parent no longer owns its arrays exclusively either
	s.owned = make(map[string]bool)
	return c
}

// Services lists the service identifiers in lexical order.
func (s *Solution) Services() []string {
	out := make([]string, 0, len(s.services))
	for svc := range s.services {
		out = append(out, svc)
	}
	sort.Strings(out)
	return out
}

// Timetable returns the read-only timetable of service.
func (s *Solution) Timetable(service string) []BlamedVisit { return s.services[service] }

// CopyTimetable returns a private copy of service's timetable.
func (s *Solution) CopyTimetable(service string) []BlamedVisit {
	return append([]BlamedVisit(nil), s.services[service]...)
}

// Mutable returns service's timetable for writing, copying it first if it is
// shared with another Solution.
func (s *Solution) Mutable(service string) []BlamedVisit {
	tt, ok := s.services[service]
	if !ok {
		return nil
	}
	if !s.owned[service] {
		tt = append([]BlamedVisit(nil), tt...)
		s.services[service] = tt
		s.owned[service] = true
	}
	return tt
}

// Replace installs tt as service's timetable. The Solution takes ownership.
func (s *Solution) Replace(service string, tt []BlamedVisit) {
	s.services[service] = tt
	s.owned[service] = true
}

// Find locates a visit by identity.
func (s *Solution) Find(id model.VisitID) (int, bool) {
	for i, b := range s.services[id.Service] {
		if b.ID() == id {
			return i, true
		}
	}
	return -1, false
}

// Len counts every visit of every service.
func (s *Solution) Len() int {
	n := 0
	for _, tt := range s.services {
		n += len(tt)
	}
	return n
}

// Objective is the sum of absolute raw slack blame, accumulated in service
// name order so equal solutions compare equal. Lower is better.
func (s *Solution) Objective() float64 {
	total := 0.0
	for _, svc := range s.Services() {
		for _, b := range s.services[svc] {
			if b.Slack.HasRaw {
				total += math.Abs(b.Slack.Raw)
			}
		}
	}
	return total
}

// CohesionTotal is the sum of absolute raw cohesion blame. It is reported
// alongside the objective but does not drive the search.
func (s *Solution) CohesionTotal() float64 {
	total := 0.0
	for _, svc := range s.Services() {
		for _, b := range s.services[svc] {
			if b.Cohesion.HasRaw {
				total += math.Abs(b.Cohesion.Raw)
			}
		}
	}
	return total
}

// Ref addresses one visit of a Solution.
type Ref struct {
	Service string
	Index   int
}

func (r Ref) String() string { return fmt.Sprintf("%s[%d]", r.Service, r.Index) }

// Visit dereferences r.
func (s *Solution) Visit(r Ref) BlamedVisit { return s.services[r.Service][r.Index] }

// Refs returns a reference to every visit, services in lexical order.
func (s *Solution) Refs() []Ref {
	refs := make([]Ref, 0, s.Len())
	for _, svc := range s.Services() {
		for i := range s.services[svc] {
			refs = append(refs, Ref{Service: svc, Index: i})
		}
	}
	return refs
}
