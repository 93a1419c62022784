package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/infra/logger"
)

// InfluxSink writes search progress to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSession writes the starting point of a run.
func (s *InfluxSink) RecordSession(ev coremetrics.SessionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_session").
		AddTag("run_id", ev.RunID).
		AddTag("primary", ev.Primary).
		AddField("services", ev.Services).
		AddField("visits", ev.Visits).
		AddField("segments", ev.Segments).
		AddField("objective", round3(ev.Objective)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIteration writes one accepted move.
func (s *InfluxSink) RecordIteration(ev coremetrics.IterationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_iteration").
		AddTag("run_id", ev.RunID).
		AddTag("primary", ev.Primary).
		AddTag("service", ev.Service).
		AddField("iteration", ev.Iteration).
		AddField("objective", round3(ev.Objective)).
		AddField("adjusted", round3(ev.Adjusted)).
		AddField("best", round3(ev.Best)).
		AddField("cohesion", round3(ev.Cohesion)).
		AddField("candidates", ev.Candidates).
		AddField("tabu_size", ev.TabuSize).
		AddField("target", ev.Target).
		AddField("changed", ev.Changed).
		AddField("change_minutes", round3(ev.ChangeMinutes)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordExhaustion writes an iteration that found no legal move.
func (s *InfluxSink) RecordExhaustion(ev coremetrics.ExhaustionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("search_exhausted").
		AddTag("run_id", ev.RunID).
		AddTag("primary", ev.Primary).
		AddTag("freed_up", strconv.FormatBool(ev.FreedUp)).
		AddField("iteration", ev.Iteration).
		AddField("tabu_size", ev.TabuSize).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client resources.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
