// Package export writes a recommended timetable next to the published one and
// charts the progress of a search.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/timetabler/core/solution"
)

// Row compares one visit of the published timetable with its recommended
// times. Change columns are in minutes, positive when the visit moves later.
type Row struct {
	Service              string    `json:"service" yaml:"service"`
	RunningBoard         string    `json:"running_board" yaml:"running_board"`
	Journey              string    `json:"journey" yaml:"journey"`
	Sequence             int       `json:"sequence" yaml:"sequence"`
	Stop                 string    `json:"stop" yaml:"stop"`
	Direction            string    `json:"direction" yaml:"direction"`
	TimingPoint          bool      `json:"timing_point" yaml:"timing_point"`
	ScheduledArrival     time.Time `json:"scheduled_arrival" yaml:"scheduled_arrival"`
	ScheduledDeparture   time.Time `json:"scheduled_departure" yaml:"scheduled_departure"`
	RecommendedArrival   time.Time `json:"recommended_arrival" yaml:"recommended_arrival"`
	RecommendedDeparture time.Time `json:"recommended_departure" yaml:"recommended_departure"`
	ArrivalChange        float64   `json:"arrival_change_minutes" yaml:"arrival_change_minutes"`
	DepartureChange      float64   `json:"departure_change_minutes" yaml:"departure_change_minutes"`
	Changed              bool      `json:"changed" yaml:"changed"`
	SlackBlame           float64   `json:"slack_blame_minutes" yaml:"slack_blame_minutes"`
}

// Rows pairs every visit of recommended with the same visit in published.
// Visits missing from published keep their recommended times on both sides.
func Rows(published, recommended *solution.Solution) []Row {
	var rows []Row
	for _, ref := range recommended.Refs() {
		rec := recommended.Visit(ref)
		orig := rec
		if i, ok := published.Find(rec.ID()); ok {
			orig = published.Timetable(ref.Service)[i]
		}
		v := rec.Visit
		r := Row{
			Service:              v.ServiceID,
			RunningBoard:         v.RunningBoard,
			Journey:              v.JourneyCode,
			Sequence:             v.Sequence,
			Stop:                 v.StopID,
			Direction:            v.Direction.String(),
			TimingPoint:          v.TimingPoint,
			ScheduledArrival:     orig.Arrival(),
			ScheduledDeparture:   orig.Departure(),
			RecommendedArrival:   rec.Arrival(),
			RecommendedDeparture: rec.Departure(),
			ArrivalChange:        rec.Arrival().Sub(orig.Arrival()).Minutes(),
			DepartureChange:      rec.Departure().Sub(orig.Departure()).Minutes(),
		}
		r.Changed = r.ArrivalChange != 0 || r.DepartureChange != 0
		if rec.Slack.HasRaw {
			r.SlackBlame = round2(rec.Slack.Raw)
		}
		rows = append(rows, r)
	}
	return rows
}

// Changed counts the rows whose times differ.
func Changed(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Changed {
			n++
		}
	}
	return n
}

// WriteJSON writes the rows to w in JSON format.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteYAML writes the rows to w in YAML format.
func WriteYAML(w io.Writer, rows []Row) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return enc.Close()
}

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"service", "running_board", "journey", "sequence", "stop", "direction", "timing_point",
	"scheduled_arrival", "scheduled_departure", "recommended_arrival", "recommended_departure",
	"arrival_change_minutes", "departure_change_minutes", "changed",
}

// WriteCSV writes the rows to w in CSV format. Times are HH:MM:SS.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Service,
			r.RunningBoard,
			r.Journey,
			strconv.Itoa(r.Sequence),
			r.Stop,
			r.Direction,
			strconv.FormatBool(r.TimingPoint),
			r.ScheduledArrival.Format(time.TimeOnly),
			r.ScheduledDeparture.Format(time.TimeOnly),
			r.RecommendedArrival.Format(time.TimeOnly),
			r.RecommendedDeparture.Format(time.TimeOnly),
			strconv.FormatFloat(r.ArrivalChange, 'f', -1, 64),
			strconv.FormatFloat(r.DepartureChange, 'f', -1, 64),
			strconv.FormatBool(r.Changed),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
