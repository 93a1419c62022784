// Package provider defines the data the optimisation core consumes from the
// transit data source. Implementations are injected into every component;
// the core never reaches for a process-wide data singleton.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// ErrNoData marks a date, service or stop for which the source has nothing.
// Callers treat it as a recoverable data gap.
var ErrNoData = errors.New("provider: no data")

// DataProvider supplies stops, published timetables and AVL history.
type DataProvider interface {
	// Stops returns the stops of service in direction dir, in visiting order.
	Stops(ctx context.Context, service string, dir model.Direction) ([]model.Stop, error)
	// ScheduledTimetable returns every visit scheduled for service on date.
	ScheduledTimetable(ctx context.Context, service string, date time.Time) ([]model.ScheduledVisit, error)
	// HistoricTimetable returns the visits of service on date with actuals.
	HistoricTimetable(ctx context.Context, service string, date time.Time) ([]model.HistoricVisit, error)
	// HistoricTimetableAtStop returns every service's visits at stop on date.
	HistoricTimetableAtStop(ctx context.Context, stop string, date time.Time) ([]model.HistoricVisit, error)
	// ServicesAt lists the services calling at stop.
	ServicesAt(ctx context.Context, stop string) ([]string, error)
}

// SolidHistory fetches the historic timetable of service on date and keeps
// only visits with both actual times recorded.
func SolidHistory(ctx context.Context, p DataProvider, service string, date time.Time) ([]model.HistoricVisit, error) {
	visits, err := p.HistoricTimetable(ctx, service, date)
	if err != nil {
		return nil, err
	}
	solid := model.SolidOnly(visits)
	if len(solid) == 0 {
		return nil, ErrNoData
	}
	return solid, nil
}
