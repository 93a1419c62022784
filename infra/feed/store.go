// Package feed stores a GTFS timetable and recorded AVL actuals in SQLite and
// serves them as a provider.DataProvider.
package feed

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/provider"
	"github.com/kilianp07/timetabler/infra/logger"
)

//go:embed schema.sql
var schemaSQL string

const dateKey = "20060102"

// Store is a SQLite-backed DataProvider. Times are stored as seconds past
// midnight and placed on the requested date in the store's location.
type Store struct {
	db  *sql.DB
	loc *time.Location
	log logger.Logger
}

// Open opens or creates the database at path and applies the schema.
// A nil location means UTC.
func Open(path string, loc *time.Location, log logger.Logger) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply feed schema: %w", err)
	}
	return &Store{db: db, loc: loc, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Location returns the time zone timetables are placed in.
func (s *Store) Location() *time.Location { return s.loc }

// Services lists the imported services ordered by id.
func (s *Store) Services(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM services ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// Stops implements provider.DataProvider.
func (s *Store) Stops(ctx context.Context, service string, dir model.Direction) ([]model.Stop, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT st.id, st.name, st.lat, st.lon
        FROM route_stops rs JOIN stops st ON st.id = rs.stop_id
        WHERE rs.service_id = ? AND rs.direction = ?
        ORDER BY rs.position`, service, int(dir))
	if err != nil {
		return nil, err
	}
	var out []model.Stop
	for rows.Next() {
		var st model.Stop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon); err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, st)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, provider.ErrNoData
	}
	for i := range out {
		svcs, err := s.ServicesAt(ctx, out[i].ID)
		if err != nil && !errors.Is(err, provider.ErrNoData) {
			return nil, err
		}
		out[i].Services = svcs
	}
	return out, nil
}

// ServicesAt implements provider.DataProvider.
func (s *Store) ServicesAt(ctx context.Context, stop string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT service_id FROM route_stops WHERE stop_id = ? ORDER BY service_id`, stop)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, provider.ErrNoData
	}
	return out, nil
}

// ScheduledTimetable implements provider.DataProvider.
func (s *Store) ScheduledTimetable(ctx context.Context, service string, date time.Time) ([]model.ScheduledVisit, error) {
	active, err := s.activeCalendars(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, provider.ErrNoData
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT t.id, t.calendar_id, t.direction, t.block_id,
               st.stop_id, st.stop_sequence, st.arrival_s, st.departure_s, st.timepoint
        FROM trips t JOIN stop_times st ON st.trip_id = t.id
        WHERE t.service_id = ?
        ORDER BY t.id, st.stop_sequence`, service)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	day := s.day(date)
	var out []model.ScheduledVisit
	for rows.Next() {
		var (
			trip, cal, block, stop string
			dir, seq, timepoint    int
			arr, dep               int64
		)
		if err := rows.Scan(&trip, &cal, &dir, &block, &stop, &seq, &arr, &dep, &timepoint); err != nil {
			return nil, err
		}
		if !active[cal] {
			continue
		}
		if block == "" {
			block = trip
		}
		out = append(out, model.ScheduledVisit{
			ServiceID:          service,
			StopID:             stop,
			Sequence:           seq,
			Direction:          model.Direction(dir),
			JourneyCode:        trip,
			RunningBoard:       block,
			TimingPoint:        timepoint != 0,
			ScheduledArrival:   day.Add(time.Duration(arr) * time.Second),
			ScheduledDeparture: day.Add(time.Duration(dep) * time.Second),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, provider.ErrNoData
	}
	return out, nil
}

type actualKey struct {
	trip string
	seq  int
}

type actual struct {
	arr, dep sql.NullInt64
}

// HistoricTimetable implements provider.DataProvider. Dates without any
// recorded actual for the service report provider.ErrNoData.
func (s *Store) HistoricTimetable(ctx context.Context, service string, date time.Time) ([]model.HistoricVisit, error) {
	sched, err := s.ScheduledTimetable(ctx, service, date)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT a.trip_id, a.stop_sequence, a.arrival_s, a.departure_s
        FROM actuals a JOIN trips t ON t.id = a.trip_id
        WHERE t.service_id = ? AND a.date = ?`, service, s.day(date).Format(dateKey))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	actuals := make(map[actualKey]actual)
	for rows.Next() {
		var (
			k actualKey
			a actual
		)
		if err := rows.Scan(&k.trip, &k.seq, &a.arr, &a.dep); err != nil {
			return nil, err
		}
		actuals[k] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(actuals) == 0 {
		return nil, provider.ErrNoData
	}
	day := s.day(date)
	out := make([]model.HistoricVisit, len(sched))
	for i, v := range sched {
		out[i] = model.HistoricVisit{ScheduledVisit: v}
		a, ok := actuals[actualKey{v.JourneyCode, v.Sequence}]
		if !ok {
			continue
		}
		if a.arr.Valid {
			t := day.Add(time.Duration(a.arr.Int64) * time.Second)
			out[i].ActualArrival = &t
		}
		if a.dep.Valid {
			t := day.Add(time.Duration(a.dep.Int64) * time.Second)
			out[i].ActualDeparture = &t
		}
	}
	return out, nil
}

// HistoricTimetableAtStop implements provider.DataProvider.
func (s *Store) HistoricTimetableAtStop(ctx context.Context, stop string, date time.Time) ([]model.HistoricVisit, error) {
	services, err := s.ServicesAt(ctx, stop)
	if err != nil {
		return nil, err
	}
	var out []model.HistoricVisit
	for _, svc := range services {
		visits, err := s.HistoricTimetable(ctx, svc, date)
		if errors.Is(err, provider.ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, v := range visits {
			if v.StopID == stop {
				out = append(out, v)
			}
		}
	}
	if len(out) == 0 {
		return nil, provider.ErrNoData
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledArrival.Before(out[j].ScheduledArrival)
	})
	return out, nil
}

func (s *Store) day(date time.Time) time.Time {
	y, m, d := date.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// activeCalendars returns the calendars running on date: the weekday pattern
// within the validity range, then the explicit additions and removals.
func (s *Store) activeCalendars(ctx context.Context, date time.Time) (map[string]bool, error) {
	day := s.day(date)
	key := day.Format(dateKey)
	weekday := (int(day.Weekday()) + 6) % 7
	active := make(map[string]bool)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, days FROM calendars WHERE start_date <= ? AND end_date >= ?`, key, key)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id, days string
		if err := rows.Scan(&id, &days); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if len(days) == 7 && days[weekday] == '1' {
			active[id] = true
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT calendar_id, added FROM calendar_dates WHERE date = ?`, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			id    string
			added bool
		)
		if err := rows.Scan(&id, &added); err != nil {
			return nil, err
		}
		if added {
			active[id] = true
		} else {
			delete(active, id)
		}
	}
	return active, rows.Err()
}

// weekdayPattern encodes Monday to Sunday flags as a string of 0 and 1.
func weekdayPattern(days ...bool) string {
	var b strings.Builder
	for _, d := range days {
		if d {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
