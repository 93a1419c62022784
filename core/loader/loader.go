// Package loader assembles everything a search run needs for one primary
// service: its route segments, the services of interest, the history the
// simulators learn from and the initial Solution.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/provider"
	"github.com/kilianp07/timetabler/core/segment"
	"github.com/kilianp07/timetabler/core/simulation"
	"github.com/kilianp07/timetabler/core/solution"
)

// Session is the loaded input of a search run.
type Session struct {
	Primary    string
	Date       time.Time
	Segments   []segment.RouteSegment
	Collection *segment.Collection
	History    *simulation.History
	Model      *simulation.Model
	Initial    *solution.Solution
	// Skipped lists the units that had no data, for reporting.
	Skipped []string
}

// Loader reads a Session from a DataProvider.
type Loader struct {
	data    provider.DataProvider
	finder  *segment.Finder
	cfg     Config
	limiter *rate.Limiter
	log     logger.Logger
}

// New builds a Loader. History requests are limited to cfg.FetchConcurrency
// in flight and cfg.FetchRatePerSecond started per second.
func New(data provider.DataProvider, minSegmentLength int, cfg Config, log logger.Logger) *Loader {
	cfg.SetDefaults()
	log = logger.OrNop(log)
	burst := cfg.FetchConcurrency
	return &Loader{
		data:    data,
		finder:  segment.NewFinder(data, minSegmentLength, log),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.FetchRatePerSecond), burst),
		log:     log,
	}
}

// Finder exposes the memoising segment finder.
func (l *Loader) Finder() *segment.Finder { return l.finder }

// Load builds the Session. Missing data for secondary services or sample
// days is logged and skipped; missing data for the primary service is an
// error.
func (l *Loader) Load(ctx context.Context) (*Session, error) {
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	date, samples, err := l.cfg.Dates()
	if err != nil {
		return nil, err
	}
	primary := l.cfg.PrimaryService

	segs, err := l.finder.Find(ctx, primary)
	if err != nil {
		return nil, err
	}
	stops, err := l.primaryStops(ctx, primary)
	if err != nil {
		return nil, err
	}
	coll := segment.NewCollection(primary, stops, segs)
	for _, svc := range l.optedIn(coll) {
		coll.Add(svc)
	}
	s := &Session{Primary: primary, Date: date, Segments: segs, Collection: coll}

	scheduled := make(map[string][]model.ScheduledVisit)
	for _, svc := range coll.Services() {
		visits, err := l.data.ScheduledTimetable(ctx, svc, date)
		switch {
		case err == nil && len(visits) > 0:
			scheduled[svc] = visits
		case svc == primary:
			if err == nil {
				err = provider.ErrNoData
			}
			return nil, fmt.Errorf("scheduled timetable of primary %s on %s: %w", primary, date.Format(DateLayout), err)
		case err == nil || errors.Is(err, provider.ErrNoData):
			l.log.Warnf("no scheduled timetable for %s on %s, leaving it out", svc, date.Format(DateLayout))
			coll.Remove(svc)
			s.Skipped = append(s.Skipped, "scheduled:"+svc)
		default:
			return nil, fmt.Errorf("scheduled timetable of %s: %w", svc, err)
		}
	}
	s.Initial = solution.New(scheduled)

	hist, skipped, err := l.history(ctx, coll.Services(), samples)
	if err != nil {
		return nil, err
	}
	s.History = hist
	s.Skipped = append(s.Skipped, skipped...)
	s.Model = simulation.NewModel(hist, coll)
	l.log.Infof("session %s on %s: %d segments, %d services, %d visits, %d sample days",
		primary, date.Format(DateLayout), len(segs), len(scheduled), s.Initial.Len(), hist.Days())
	return s, nil
}

func (l *Loader) optedIn(coll *segment.Collection) []string {
	for _, svc := range l.cfg.SecondaryServices {
		if svc == AllSecondaries {
			return coll.Secondaries()
		}
	}
	return l.cfg.SecondaryServices
}

func (l *Loader) primaryStops(ctx context.Context, primary string) ([]model.Stop, error) {
	seen := make(map[string]bool)
	var out []model.Stop
	for _, dir := range model.Directions {
		stops, err := l.data.Stops(ctx, primary, dir)
		if err != nil {
			if errors.Is(err, provider.ErrNoData) {
				continue
			}
			return nil, err
		}
		for _, s := range stops {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("stops of primary %s: %w", primary, provider.ErrNoData)
	}
	return out, nil
}

// history fetches the solid history of every service on every sample day
// with bounded concurrency and indexes it one day at a time.
func (l *Loader) history(ctx context.Context, services []string, days []time.Time) (*simulation.History, []string, error) {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	results := make([][][]model.HistoricVisit, len(days))
	missing := make([][]bool, len(days))
	for i := range days {
		results[i] = make([][]model.HistoricVisit, len(services))
		missing[i] = make([]bool, len(services))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.FetchConcurrency)
	for di, day := range days {
		for si, svc := range services {
			g.Go(func() error {
				if err := l.limiter.Wait(gctx); err != nil {
					return err
				}
				visits, err := provider.SolidHistory(gctx, l.data, svc, day)
				if err != nil {
					if errors.Is(err, provider.ErrNoData) {
						missing[di][si] = true
						return nil
					}
					return fmt.Errorf("history of %s on %s: %w", svc, day.Format(DateLayout), err)
				}
				results[di][si] = visits
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	h := simulation.NewHistory()
	var skipped []string
	for di, day := range days {
		var all []model.HistoricVisit
		for si, svc := range services {
			if missing[di][si] {
				l.log.Warnf("no solid history for %s on %s", svc, day.Format(DateLayout))
				skipped = append(skipped, fmt.Sprintf("history:%s:%s", svc, day.Format(DateLayout)))
				continue
			}
			all = append(all, results[di][si]...)
		}
		if len(all) > 0 {
			h.AddDay(all)
		}
	}
	return h, skipped, nil
}
