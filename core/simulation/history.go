package simulation

import (
	"sort"
	"sync"

	"github.com/kilianp07/timetabler/core/model"
)

type edgeKey struct {
	service string
	from    string
	to      string
}

type stopKey struct {
	service string
	stop    string
}

type journeyKey struct {
	service string
	journey string
}

// sample is one observed duration, in seconds, at a clock time in seconds.
type sample struct {
	at       float64
	duration float64
}

// series holds one day's samples sorted by clock time.
type series []sample

// History indexes the solid historic visits of every sample day.
type History struct {
	mu     sync.RWMutex
	days   int
	travel map[edgeKey][]series
	dwell  map[stopKey][]series
}

// NewHistory returns an empty index.
func NewHistory() *History {
	return &History{travel: make(map[edgeKey][]series), dwell: make(map[stopKey][]series)}
}

// Days reports how many sample days were added.
func (h *History) Days() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.days
}

// AddDay indexes the visits of one sample day. All services observed that
// day must be passed in a single call. Non-solid visits are ignored.
func (h *History) AddDay(visits []model.HistoricVisit) {
	journeys := make(map[journeyKey][]model.HistoricVisit)
	travel := make(map[edgeKey]series)
	dwell := make(map[stopKey]series)

	for _, v := range visits {
		if !v.Solid() {
			continue
		}
		k := journeyKey{service: v.ServiceID, journey: v.JourneyCode}
		journeys[k] = append(journeys[k], v)
		sk := stopKey{service: v.ServiceID, stop: v.StopID}
		dwell[sk] = append(dwell[sk], sample{at: model.ClockSeconds(*v.ActualArrival), duration: measuredDwell(v)})
	}
	for _, j := range journeys {
		sort.Slice(j, func(a, b int) bool { return j[a].Sequence < j[b].Sequence })
		for i := 1; i < len(j); i++ {
			prev, cur := j[i-1], j[i]
			d := cur.ActualArrival.Sub(*prev.ActualDeparture).Seconds()
			if d < 0 {
				continue
			}
			ek := edgeKey{service: cur.ServiceID, from: prev.StopID, to: cur.StopID}
			travel[ek] = append(travel[ek], sample{at: model.ClockSeconds(*prev.ActualDeparture), duration: d})
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.days++
	for k, s := range travel {
		sortSeries(s)
		h.travel[k] = append(h.travel[k], s)
	}
	for k, s := range dwell {
		sortSeries(s)
		h.dwell[k] = append(h.dwell[k], s)
	}
}

// measuredDwell is the time spent at the stop. At a timing point a vehicle
// may not leave before its scheduled time, so waiting caused by an early
// arrival is not counted as dwell.
func measuredDwell(v model.HistoricVisit) float64 {
	start := *v.ActualArrival
	if v.TimingPoint && v.ScheduledArrival.After(start) {
		start = v.ScheduledArrival
	}
	d := v.ActualDeparture.Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

func sortSeries(s series) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].at < s[j].at })
}

func (h *History) travelSeries(service, from, to string) []series {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.travel[edgeKey{service: service, from: from, to: to}]
}

func (h *History) dwellSeries(service, stop string) []series {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dwell[stopKey{service: service, stop: stop}]
}

// interpolate estimates the duration at clock time at from the samples
// around it. It also returns the distance to the nearest sample used.
func (s series) interpolate(at float64) (value, distance float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].at >= at })
	switch {
	case i == len(s):
		b := s[i-1]
		return b.duration, at - b.at, true
	case s[i].at == at:
		return s[i].duration, 0, true
	case i == 0:
		a := s[0]
		return a.duration, a.at - at, true
	}
	b, a := s[i-1], s[i]
	frac := (at - b.at) / (a.at - b.at)
	value = b.duration + frac*(a.duration-b.duration)
	distance = at - b.at
	if a.at-at < distance {
		distance = a.at - at
	}
	return value, distance, true
}
