// Package app wires the configured data source, search and outputs together.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/timetabler/config"
	"github.com/kilianp07/timetabler/core/blame"
	"github.com/kilianp07/timetabler/core/events"
	"github.com/kilianp07/timetabler/core/loader"
	coremetrics "github.com/kilianp07/timetabler/core/metrics"
	coremon "github.com/kilianp07/timetabler/core/monitoring"
	"github.com/kilianp07/timetabler/core/provider"
	"github.com/kilianp07/timetabler/core/search"
	"github.com/kilianp07/timetabler/core/search/journal"
	"github.com/kilianp07/timetabler/core/segment"
	"github.com/kilianp07/timetabler/infra/logger"
	"github.com/kilianp07/timetabler/infra/metrics"
	"github.com/kilianp07/timetabler/infra/monitoring"
	"github.com/kilianp07/timetabler/internal/eventbus"
	"github.com/kilianp07/timetabler/pkg/export"
)

// Service runs optimisations against one data source.
type Service struct {
	cfg     *config.Config
	data    provider.DataProvider
	sink    coremetrics.MetricsSink
	journal journal.Store
	monitor coremon.Monitor
	log     logger.Logger
}

// Report summarises one optimisation.
type Report struct {
	Session *loader.Session
	Result  search.Result
	Rows    []export.Row
	Changed int
	Files   []string
}

// New creates a Service from the configuration, building the provider it
// names.
func New(cfg *config.Config) (*Service, error) {
	data, err := provider.New(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}
	return NewWithProvider(cfg, data)
}

// NewWithProvider creates a Service reading from data.
func NewWithProvider(cfg *config.Config, data provider.DataProvider) (*Service, error) {
	if cfg == nil || data == nil {
		return nil, fmt.Errorf("app: nil parameter provided to NewWithProvider")
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Console)
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := journal.New(cfg.Journal)
	if err != nil {
		closeSink(sink)
		return nil, fmt.Errorf("journal: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = store.Close()
		closeSink(sink)
		return nil, fmt.Errorf("sentry: %w", err)
	}
	return &Service{
		cfg:     cfg,
		data:    data,
		sink:    sink,
		journal: store,
		monitor: mon,
		log:     logger.New("service"),
	}, nil
}

// Segments lists the segments a primary service shares with others.
func (s *Service) Segments(ctx context.Context, primary string) ([]segment.RouteSegment, error) {
	return segment.NewFinder(s.data, s.cfg.Search.MinSegmentLength, logger.New("segments")).Find(ctx, primary)
}

// Optimise loads the configured session, runs the search and exports the
// best timetable found. Metrics are recorded from the event bus so slow
// sinks never hold up an iteration.
func (s *Service) Optimise(ctx context.Context) (*Report, error) {
	defer s.monitor.Flush(2 * time.Second)
	if err := s.cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.Metrics.PrometheusPort != "" {
		promCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.StartPromServer(promCtx, s.cfg.Metrics.PrometheusPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	sess, err := loader.New(s.data, s.cfg.Search.MinSegmentLength, s.cfg.Session, logger.New("loader")).Load(ctx)
	if err != nil {
		s.monitor.CaptureException(err, map[string]string{"stage": "load", "primary": s.cfg.Session.PrimaryService})
		return nil, fmt.Errorf("load session: %w", err)
	}
	for _, skip := range sess.Skipped {
		s.log.Debugf("skipped %s", skip)
	}

	bus := eventbus.NewTyped[events.Event]()
	done := metrics.StartEventCollector(context.WithoutCancel(ctx), bus, s.sink, s.cfg.Metrics.CollectorBuffer, s.log)
	evaluator, err := search.NewTimeTableEvaluator(s.cfg.Search, sess.Primary, sess.Initial, sess.Model, sess.Collection,
		nil, bus, s.journal, s.monitor, logger.New("search"))
	if err != nil {
		bus.Close()
		<-done
		return nil, err
	}
	res, runErr := evaluator.Run(ctx, s.cfg.Search.Iterations, search.HandlerFor(s.cfg.Search.Exhaustion))
	bus.Close()
	<-done
	if dropped := bus.Dropped(); dropped > 0 {
		s.log.Warnf("run %s: %d events were not recorded", res.RunID, dropped)
	}
	if runErr != nil {
		return nil, runErr
	}

	rows := export.Rows(sess.Initial, res.Best)
	rep := &Report{Session: sess, Result: res, Rows: rows, Changed: export.Changed(rows)}
	name := fileName(sess)
	files, err := export.WriteFiles(s.cfg.Export, name, rows, s.points(res, sess))
	if err != nil {
		return rep, fmt.Errorf("export: %w", err)
	}
	rep.Files = files
	s.log.Infof("run %s: %d of %d visits changed, exported %s", res.RunID, rep.Changed, len(rows), strings.Join(files, ", "))
	return rep, nil
}

// points charts iteration 0 as the published timetable, then every accepted
// move.
func (s *Service) points(res search.Result, sess *loader.Session) []export.Point {
	published := sess.Initial.Clone()
	blame.NewCohesionEvaluator(sess.Collection, s.cfg.Search.CohesionDominance).Evaluate(published)
	pts := make([]export.Point, 0, len(res.History)+1)
	pts = append(pts, export.Point{
		Iteration: 0,
		Objective: res.InitialObjective,
		Best:      res.InitialObjective,
		Cohesion:  published.CohesionTotal(),
	})
	for _, r := range res.History {
		pts = append(pts, export.Point{Iteration: r.Iteration, Objective: r.Objective, Best: r.Best, Cohesion: r.Cohesion})
	}
	return pts
}

func fileName(sess *loader.Session) string {
	return fmt.Sprintf("timetable-%s-%s", sess.Primary, sess.Date.Format(loader.DateLayout))
}

// Close releases the journal, the sinks and the data source.
func (s *Service) Close() error {
	var errs []error
	errs = append(errs, s.journal.Close())
	closeSink(s.sink)
	if c, ok := s.data.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func closeSink(sink coremetrics.MetricsSink) {
	if c, ok := sink.(interface{ Close() }); ok {
		c.Close()
	}
}
