package feed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/timetabler/core/factory"
	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/provider"
)

var (
	monday    = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tuesday   = monday.AddDate(0, 0, 1)
	wednesday = monday.AddDate(0, 0, 2)
	saturday  = monday.AddDate(0, 0, 5)
)

func fixtureStatic() *gtfs.Static {
	coord := func(f float64) *float64 { return &f }
	stops := []gtfs.Stop{
		{Id: "A", Name: "Alpha", Latitude: coord(52.1), Longitude: coord(-1.1)},
		{Id: "B", Name: "Bravo", Latitude: coord(52.2), Longitude: coord(-1.2)},
		{Id: "C", Name: "Charlie", Latitude: coord(52.3), Longitude: coord(-1.3)},
		{Id: "D", Name: "Delta"},
	}
	routes := []gtfs.Route{{Id: "1", ShortName: "1"}, {Id: "2", LongName: "Two"}}
	services := []gtfs.Service{{
		Id: "wk", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RemovedDates: []time.Time{tuesday},
	}}
	at := func(h, m int) time.Duration { return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute }
	st := func(stop *gtfs.Stop, seq, h, m, dwell int, exact bool) gtfs.ScheduledStopTime {
		return gtfs.ScheduledStopTime{
			Stop: stop, StopSequence: seq,
			ArrivalTime: at(h, m), DepartureTime: at(h, m+dwell), ExactTimes: exact,
		}
	}
	static := &gtfs.Static{Stops: stops, Routes: routes, Services: services}
	static.Trips = []gtfs.ScheduledTrip{
		{ID: "t1", Route: &static.Routes[0], Service: &static.Services[0], DirectionId: gtfs.DirectionID_False, BlockID: "b1",
			StopTimes: []gtfs.ScheduledStopTime{
				st(&static.Stops[2], 3, 8, 20, 0, true),
				st(&static.Stops[0], 1, 8, 0, 1, true),
				st(&static.Stops[1], 2, 8, 10, 1, false),
			}},
		{ID: "t2", Route: &static.Routes[0], Service: &static.Services[0], DirectionId: gtfs.DirectionID_False,
			StopTimes: []gtfs.ScheduledStopTime{
				st(&static.Stops[0], 1, 9, 0, 1, true),
				st(&static.Stops[1], 2, 9, 10, 1, false),
			}},
		{ID: "t3", Route: &static.Routes[0], Service: &static.Services[0], DirectionId: gtfs.DirectionID_True, BlockID: "b1",
			StopTimes: []gtfs.ScheduledStopTime{
				st(&static.Stops[2], 1, 8, 40, 0, true),
				st(&static.Stops[1], 2, 8, 50, 1, false),
				st(&static.Stops[0], 3, 9, 5, 0, true),
			}},
		{ID: "t4", Route: &static.Routes[1], Service: &static.Services[0], DirectionId: gtfs.DirectionID_False,
			StopTimes: []gtfs.ScheduledStopTime{
				st(&static.Stops[1], 1, 7, 0, 0, true),
				st(&static.Stops[3], 2, 7, 15, 0, true),
			}},
	}
	return static
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "feed.db"), time.UTC, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	stats, err := s.ImportStatic(context.Background(), fixtureStatic())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Services)
	require.Equal(t, 4, stats.Trips)
	require.Equal(t, 10, stats.StopTimes)
	return s
}

func TestStoreStopsAndServices(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	stops, err := s.Stops(ctx, "1", model.Outbound)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, model.StopIDs(stops))
	assert.Equal(t, "Bravo", stops[1].Name)
	assert.Equal(t, []string{"1", "2"}, stops[1].Services)

	in, err := s.Stops(ctx, "1", model.Inbound)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, model.StopIDs(in))

	_, err = s.Stops(ctx, "2", model.Inbound)
	assert.ErrorIs(t, err, provider.ErrNoData)

	svcs, err := s.ServicesAt(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, svcs)
	_, err = s.ServicesAt(ctx, "nowhere")
	assert.ErrorIs(t, err, provider.ErrNoData)

	all, err := s.Services(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Service{{ID: "1", Name: "1"}, {ID: "2", Name: "Two"}}, all)
}

func TestStoreScheduledTimetable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	visits, err := s.ScheduledTimetable(ctx, "1", monday)
	require.NoError(t, err)
	require.Len(t, visits, 8)
	first := visits[0]
	assert.Equal(t, "t1", first.JourneyCode)
	assert.Equal(t, "b1", first.RunningBoard)
	assert.Equal(t, "A", first.StopID)
	assert.True(t, first.TimingPoint)
	assert.Equal(t, monday.Add(8*time.Hour), first.ScheduledArrival)
	assert.Equal(t, monday.Add(8*time.Hour+time.Minute), first.ScheduledDeparture)
	assert.False(t, visits[1].TimingPoint)

	byJourney := map[string]model.ScheduledVisit{}
	for _, v := range visits {
		byJourney[v.JourneyCode] = v
	}
	assert.Equal(t, "t2", byJourney["t2"].RunningBoard, "trips without a block run on their own board")
	assert.Equal(t, model.Inbound, byJourney["t3"].Direction)

	_, err = s.ScheduledTimetable(ctx, "1", tuesday)
	assert.ErrorIs(t, err, provider.ErrNoData, "removed date")
	_, err = s.ScheduledTimetable(ctx, "1", saturday)
	assert.ErrorIs(t, err, provider.ErrNoData, "weekend")
}

const historyCSV = `date,trip_id,stop_sequence,actual_arrival,actual_departure
2024-03-04,t1,1,08:02,08:03
2024-03-04,t1,2,08:12:30,
2024-03-04,t3,3,09:07,09:07:30
2024-03-04,zz,1,08:00,08:00
`

func TestStoreHistory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	stats, err := s.ImportHistory(ctx, strings.NewReader(historyCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Actuals)
	assert.Equal(t, 1, stats.Skipped)

	hist, err := s.HistoricTimetable(ctx, "1", monday)
	require.NoError(t, err)
	require.Len(t, hist, 8)
	solid := model.SolidOnly(hist)
	require.Len(t, solid, 2)
	assert.Equal(t, monday.Add(8*time.Hour+2*time.Minute), *solid[0].ActualArrival)
	assert.Equal(t, monday.Add(9*time.Hour+7*time.Minute+30*time.Second), *solid[1].ActualDeparture)

	for _, v := range hist {
		if v.JourneyCode == "t1" && v.Sequence == 2 {
			require.NotNil(t, v.ActualArrival)
			assert.Nil(t, v.ActualDeparture)
		}
	}

	_, err = s.HistoricTimetable(ctx, "1", wednesday)
	assert.ErrorIs(t, err, provider.ErrNoData, "no actuals recorded")

	atA, err := s.HistoricTimetableAtStop(ctx, "A", monday)
	require.NoError(t, err)
	require.Len(t, atA, 3)
	for i := 1; i < len(atA); i++ {
		assert.False(t, atA[i].ScheduledArrival.Before(atA[i-1].ScheduledArrival))
	}
	_, err = s.HistoricTimetableAtStop(ctx, "D", monday)
	assert.ErrorIs(t, err, provider.ErrNoData)
}

func TestImportHistoryErrors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.ImportHistory(ctx, strings.NewReader("date,trip_id\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = s.ImportHistory(ctx, strings.NewReader(
		"date,trip_id,stop_sequence,actual_arrival,actual_departure\n2024-03-04,t1,1,8:75,\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestParseClock(t *testing.T) {
	v, err := parseClock("25:10:05")
	require.NoError(t, err)
	assert.Equal(t, int64(25*3600+10*60+5), v.Int64)
	v, err = parseClock(" ")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	_, err = parseClock("8")
	assert.Error(t, err)
}

func TestRegisteredProvider(t *testing.T) {
	p, err := provider.New(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{
		"path":     filepath.Join(t.TempDir(), "reg.db"),
		"timezone": "UTC",
	}})
	require.NoError(t, err)
	store, ok := p.(*Store)
	require.True(t, ok)
	assert.Equal(t, time.UTC, store.Location())
	require.NoError(t, store.Close())

	_, err = provider.New(factory.ModuleConfig{Type: "sqlite"})
	assert.Error(t, err)
}
