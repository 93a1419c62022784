package feed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/OneBusAway/go-gtfs"

	"github.com/kilianp07/timetabler/core/model"
)

// ImportStats counts the rows written by an import.
type ImportStats struct {
	Services  int
	Stops     int
	Trips     int
	StopTimes int
	Calendars int
	Actuals   int
	Skipped   int
}

// ImportGTFSFile parses a GTFS zip archive and imports it.
func (s *Store) ImportGTFSFile(ctx context.Context, path string) (ImportStats, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ImportStats{}, err
	}
	return s.ImportGTFS(ctx, b)
}

// ImportGTFS parses a GTFS zip archive held in memory and imports it.
func (s *Store) ImportGTFS(ctx context.Context, data []byte) (ImportStats, error) {
	static, err := gtfs.ParseStatic(data, gtfs.ParseStaticOptions{})
	if err != nil {
		return ImportStats{}, fmt.Errorf("parse gtfs: %w", err)
	}
	if len(static.Warnings) > 0 {
		s.log.Warnf("gtfs parsed with %d warnings", len(static.Warnings))
	}
	return s.ImportStatic(ctx, static)
}

// ImportStatic replaces the stored timetable with the parsed feed. Each route
// becomes a service; block_id groups trips into running boards and stop
// times marked as exact become timing points. The stop order of a service in
// a direction is taken from its trip with the most stops.
func (s *Store) ImportStatic(ctx context.Context, static *gtfs.Static) (ImportStats, error) {
	var stats ImportStats
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"services", "stops", "route_stops", "calendars", "calendar_dates", "trips", "stop_times"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return stats, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, r := range static.Routes {
		name := r.ShortName
		if name == "" {
			name = r.LongName
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO services (id, name) VALUES (?, ?)`, r.Id, name); err != nil {
			return stats, fmt.Errorf("insert service %s: %w", r.Id, err)
		}
		stats.Services++
	}

	for _, st := range static.Stops {
		var lat, lon float64
		if st.Latitude != nil {
			lat = *st.Latitude
		}
		if st.Longitude != nil {
			lon = *st.Longitude
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO stops (id, name, lat, lon) VALUES (?, ?, ?, ?)`,
			st.Id, st.Name, lat, lon); err != nil {
			return stats, fmt.Errorf("insert stop %s: %w", st.Id, err)
		}
		stats.Stops++
	}

	for _, svc := range static.Services {
		days := weekdayPattern(svc.Monday, svc.Tuesday, svc.Wednesday, svc.Thursday, svc.Friday, svc.Saturday, svc.Sunday)
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendars (id, days, start_date, end_date) VALUES (?, ?, ?, ?)`,
			svc.Id, days, svc.StartDate.Format(dateKey), svc.EndDate.Format(dateKey)); err != nil {
			return stats, fmt.Errorf("insert calendar %s: %w", svc.Id, err)
		}
		for _, d := range svc.AddedDates {
			if err := insertCalendarDate(ctx, tx, svc.Id, d.Format(dateKey), true); err != nil {
				return stats, err
			}
		}
		for _, d := range svc.RemovedDates {
			if err := insertCalendarDate(ctx, tx, svc.Id, d.Format(dateKey), false); err != nil {
				return stats, err
			}
		}
		stats.Calendars++
	}

	longest := make(map[routeDir][]string)
	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil || t.Service == nil {
			stats.Skipped++
			continue
		}
		dir := directionOf(t.DirectionId)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trips (id, service_id, calendar_id, direction, block_id) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Route.Id, t.Service.Id, int(dir), t.BlockID); err != nil {
			return stats, fmt.Errorf("insert trip %s: %w", t.ID, err)
		}
		stats.Trips++

		times := append([]gtfs.ScheduledStopTime(nil), t.StopTimes...)
		sort.Slice(times, func(a, b int) bool { return times[a].StopSequence < times[b].StopSequence })
		order := make([]string, 0, len(times))
		for _, st := range times {
			if st.Stop == nil {
				stats.Skipped++
				continue
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO stop_times (trip_id, stop_sequence, stop_id, arrival_s, departure_s, timepoint)
                VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, int(st.StopSequence), st.Stop.Id,
				int64(st.ArrivalTime.Seconds()), int64(st.DepartureTime.Seconds()), boolToInt(st.ExactTimes)); err != nil {
				return stats, fmt.Errorf("insert stop time %s/%d: %w", t.ID, st.StopSequence, err)
			}
			stats.StopTimes++
			order = append(order, st.Stop.Id)
		}
		k := routeDir{t.Route.Id, dir}
		if len(order) > len(longest[k]) {
			longest[k] = order
		}
	}

	for k, stops := range longest {
		for pos, id := range stops {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO route_stops (service_id, direction, position, stop_id) VALUES (?, ?, ?, ?)`,
				k.service, int(k.dir), pos, id); err != nil {
				return stats, fmt.Errorf("insert route stop %s: %w", k.service, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	s.log.Infof("imported %d services, %d stops, %d trips, %d stop times", stats.Services, stats.Stops, stats.Trips, stats.StopTimes)
	return stats, nil
}

type routeDir struct {
	service string
	dir     model.Direction
}

// directionOf maps GTFS direction_id 1 to inbound and everything else to
// outbound.
func directionOf(d gtfs.DirectionID) model.Direction {
	if d == gtfs.DirectionID_True {
		return model.Inbound
	}
	return model.Outbound
}

func insertCalendarDate(ctx context.Context, tx *sql.Tx, id, date string, added bool) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO calendar_dates (calendar_id, date, added) VALUES (?, ?, ?)`, id, date, boolToInt(added))
	if err != nil {
		return fmt.Errorf("insert calendar date %s/%s: %w", id, date, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
