// Package segment discovers the stretches of road a primary service shares
// with other services and tracks which of those services are of interest at
// each stop.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/provider"
)

// RouteSegment is a maximal run of stops visited consecutively by both the
// primary service and Secondary.
type RouteSegment struct {
	Secondary string
	Direction model.Direction
	Stops     []model.Stop
}

// Len is the number of stops in the segment.
func (s RouteSegment) Len() int { return len(s.Stops) }

// StopIDs returns the ordered stop identifiers.
func (s RouteSegment) StopIDs() []string { return model.StopIDs(s.Stops) }

// Finder discovers route segments. Results are memoised per primary service.
type Finder struct {
	data      provider.DataProvider
	minLength int
	log       logger.Logger

	mu   sync.Mutex
	memo map[string][]RouteSegment
}

// NewFinder returns a Finder committing segments of at least minLength stops.
func NewFinder(data provider.DataProvider, minLength int, log logger.Logger) *Finder {
	if minLength < 1 {
		minLength = 1
	}
	return &Finder{data: data, minLength: minLength, log: logger.OrNop(log), memo: make(map[string][]RouteSegment)}
}

// Find returns every validated segment between primary and any other service.
func (f *Finder) Find(ctx context.Context, primary string) ([]RouteSegment, error) {
	f.mu.Lock()
	if segs, ok := f.memo[primary]; ok {
		f.mu.Unlock()
		return segs, nil
	}
	f.mu.Unlock()

	var (
		candidates []RouteSegment
		walked     int
	)
	for _, dir := range model.Directions {
		stops, err := f.data.Stops(ctx, primary, dir)
		if err != nil {
			if errors.Is(err, provider.ErrNoData) {
				f.log.Debugf("service %s has no %s stops", primary, dir)
				continue
			}
			return nil, fmt.Errorf("stops of %s %s: %w", primary, dir, err)
		}
		walked++
		found, err := f.streaks(ctx, primary, dir, stops)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	if walked == 0 {
		return nil, fmt.Errorf("service %s: %w", primary, provider.ErrNoData)
	}

	segs := f.validate(ctx, candidates)
	sort.SliceStable(segs, func(i, j int) bool {
		if segs[i].Secondary != segs[j].Secondary {
			return segs[i].Secondary < segs[j].Secondary
		}
		return segs[i].Direction < segs[j].Direction
	})
	f.log.Infof("found %d route segments for service %s", len(segs), primary)

	f.mu.Lock()
	f.memo[primary] = segs
	f.mu.Unlock()
	return segs, nil
}

// streaks walks the primary's stops once, extending a running segment for
// each secondary service that also calls at the current stop.
func (f *Finder) streaks(ctx context.Context, primary string, dir model.Direction, stops []model.Stop) ([]RouteSegment, error) {
	var committed []RouteSegment
	continuing := make(map[string][]model.Stop)
	commit := func(svc string, run []model.Stop) {
		if len(run) >= f.minLength {
			committed = append(committed, RouteSegment{Secondary: svc, Direction: dir, Stops: run})
		}
	}

	for _, stop := range stops {
		services, err := f.servicesAt(ctx, stop)
		if err != nil {
			return nil, err
		}
		next := make(map[string][]model.Stop, len(services))
		for _, svc := range services {
			if svc == primary {
				continue
			}
			next[svc] = append(continuing[svc], stop)
		}
		for _, svc := range sortedKeys(continuing) {
			if _, ok := next[svc]; !ok {
				commit(svc, continuing[svc])
			}
		}
		continuing = next
	}
	for _, svc := range sortedKeys(continuing) {
		commit(svc, continuing[svc])
	}
	return committed, nil
}

func (f *Finder) servicesAt(ctx context.Context, stop model.Stop) ([]string, error) {
	if len(stop.Services) > 0 {
		return stop.Services, nil
	}
	svcs, err := f.data.ServicesAt(ctx, stop.ID)
	if errors.Is(err, provider.ErrNoData) {
		return nil, nil
	}
	return svcs, err
}

// validate re-walks each segment along the secondary service's own stop
// order, splitting it where the secondary diverges.
func (f *Finder) validate(ctx context.Context, segs []RouteSegment) []RouteSegment {
	orders := make(map[string][]map[string]int)
	var out []RouteSegment
	for _, seg := range segs {
		idx, ok := orders[seg.Secondary]
		if !ok {
			idx = f.stopOrders(ctx, seg.Secondary)
			orders[seg.Secondary] = idx
		}
		if len(idx) == 0 {
			f.log.Warnf("dropping segment with %s: stop list unavailable", seg.Secondary)
			continue
		}
		pieces := f.split(seg, idx)
		if len(pieces) == 0 {
			f.log.Warnf("dropping segment %v with %s: does not follow its route", seg.StopIDs(), seg.Secondary)
			continue
		}
		if len(pieces) > 1 || pieces[0].Len() != seg.Len() {
			f.log.Warnf("segment %v with %s diverges, kept %d piece(s)", seg.StopIDs(), seg.Secondary, len(pieces))
		}
		out = append(out, pieces...)
	}
	return out
}

func (f *Finder) stopOrders(ctx context.Context, service string) []map[string]int {
	var idx []map[string]int
	for _, dir := range model.Directions {
		stops, err := f.data.Stops(ctx, service, dir)
		if err != nil {
			if !errors.Is(err, provider.ErrNoData) {
				f.log.Warnf("stops of %s %s: %v", service, dir, err)
			}
			continue
		}
		pos := make(map[string]int, len(stops))
		for i, s := range stops {
			if _, seen := pos[s.ID]; !seen {
				pos[s.ID] = i
			}
		}
		idx = append(idx, pos)
	}
	return idx
}

// split matches seg against every known direction of the secondary and keeps
// the direction covering the most stops.
func (f *Finder) split(seg RouteSegment, orders []map[string]int) []RouteSegment {
	var best []RouteSegment
	bestCover := 0
	for _, pos := range orders {
		var (
			pieces []RouteSegment
			run    []model.Stop
			cover  int
		)
		flush := func() {
			if len(run) >= f.minLength {
				pieces = append(pieces, RouteSegment{Secondary: seg.Secondary, Direction: seg.Direction, Stops: run})
				cover += len(run)
			}
			run = nil
		}
		prev := -2
		for _, stop := range seg.Stops {
			p, ok := pos[stop.ID]
			switch {
			case !ok:
				flush()
				prev = -2
				continue
			case p != prev+1:
				flush()
			}
			run = append(run, stop)
			prev = p
		}
		flush()
		if cover > bestCover {
			best, bestCover = pieces, cover
		}
	}
	return best
}

func sortedKeys(m map[string][]model.Stop) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
