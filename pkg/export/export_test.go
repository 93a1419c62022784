package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/timetabler/core/model"
	"github.com/kilianp07/timetabler/core/solution"
)

func fixture(t *testing.T) (*solution.Solution, *solution.Solution) {
	t.Helper()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	visit := func(stop string, seq int, min int) model.ScheduledVisit {
		at := day.Add(8*time.Hour + time.Duration(min)*time.Minute)
		return model.ScheduledVisit{
			ServiceID: "1", StopID: stop, Sequence: seq, JourneyCode: "j1", RunningBoard: "b1",
			TimingPoint: seq == 1, ScheduledArrival: at, ScheduledDeparture: at.Add(time.Minute),
		}
	}
	published := solution.New(map[string][]model.ScheduledVisit{
		"1": {visit("A", 1, 0), visit("B", 2, 10), visit("C", 3, 20)},
	})
	recommended := published.Clone()
	tt := recommended.Mutable("1")
	tt[1].SetTimes(tt[1].Arrival().Add(3*time.Minute), tt[1].Departure().Add(3*time.Minute))
	return published, recommended
}

func TestRows(t *testing.T) {
	published, recommended := fixture(t)
	rows := Rows(published, recommended)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, Changed(rows))
	assert.Equal(t, "B", rows[1].Stop)
	assert.True(t, rows[1].Changed)
	assert.Equal(t, 3.0, rows[1].ArrivalChange)
	assert.Equal(t, 3.0, rows[1].DepartureChange)
	assert.Equal(t, "outbound", rows[0].Direction)
	assert.True(t, rows[0].TimingPoint)
	assert.False(t, rows[2].Changed)
}

func TestWriteCSV(t *testing.T) {
	published, recommended := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Rows(published, recommended)))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{"1", "b1", "j1", "2", "B", "outbound", "false",
		"08:10:00", "08:11:00", "08:13:00", "08:14:00", "3", "3", "true"}, recs[2])
}

func TestWriteJSONAndYAML(t *testing.T) {
	published, recommended := fixture(t)
	rows := Rows(published, recommended)

	var jb bytes.Buffer
	require.NoError(t, WriteJSON(&jb, rows))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(jb.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, true, decoded[1]["changed"])

	var yb bytes.Buffer
	require.NoError(t, WriteYAML(&yb, rows))
	var ydecoded []map[string]any
	require.NoError(t, yaml.Unmarshal(yb.Bytes(), &ydecoded))
	require.Len(t, ydecoded, 3)
	assert.Equal(t, "B", ydecoded[1]["stop"])
}

func TestWriteObjectiveChart(t *testing.T) {
	var buf bytes.Buffer
	err := WriteObjectiveChart(&buf, "run", []Point{{0, 30, 30, 4}, {1, 20, 20, 3}})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Objective")

	assert.Error(t, WriteObjectiveChart(&buf, "run", nil))
}

func TestWriteFiles(t *testing.T) {
	published, recommended := fixture(t)
	cfg := Config{Directory: filepath.Join(t.TempDir(), "out"), Formats: []string{"csv", "JSON", "yaml"}, Chart: true}
	require.NoError(t, cfg.Validate())
	paths, err := WriteFiles(cfg, "service-1", Rows(published, recommended), []Point{{0, 30, 30, 0}})
	require.NoError(t, err)
	require.Len(t, paths, 4)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
	assert.True(t, strings.HasSuffix(paths[3], "service-1.html"))
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, ".", c.Directory)
	assert.Equal(t, []string{"csv"}, c.Formats)
	c.Formats = []string{"xml"}
	assert.ErrorContains(t, c.Validate(), "xml")
}
