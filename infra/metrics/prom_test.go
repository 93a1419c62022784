package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
)

func TestPromSink_RecordIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink")
	}
	if err := sink.RecordSession(coremetrics.SessionEvent{Primary: "1", Visits: 12, Objective: 30}); err != nil {
		t.Fatalf("session: %v", err)
	}
	for i, obj := range []float64{25, 20} {
		if err := sink.RecordIteration(coremetrics.IterationEvent{
			Primary: "1", Iteration: i + 1, Objective: obj, Best: obj, TabuSize: i + 1, ChangeMinutes: 4,
		}); err != nil {
			t.Fatalf("iteration: %v", err)
		}
	}

	expected := `
# HELP timetable_search_iterations_total Accepted moves
# TYPE timetable_search_iterations_total counter
timetable_search_iterations_total{primary="1"} 2
`
	if err := testutil.CollectAndCompare(sink.iterations, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.best.WithLabelValues("1")); v != 20 {
		t.Errorf("best = %v, want 20", v)
	}
	if v := testutil.ToFloat64(sink.visits.WithLabelValues("1")); v != 12 {
		t.Errorf("visits = %v, want 12", v)
	}
	if v := testutil.ToFloat64(sink.tabu.WithLabelValues("1")); v != 2 {
		t.Errorf("tabu = %v, want 2", v)
	}
	if c := testutil.CollectAndCount(sink.change); c == 0 {
		t.Errorf("change histogram not recorded")
	}

	if err := sink.RecordExhaustion(coremetrics.ExhaustionEvent{Primary: "1", FreedUp: true}); err != nil {
		t.Fatalf("exhaustion: %v", err)
	}
	if v := testutil.ToFloat64(sink.exhausted.WithLabelValues("1", "true")); v != 1 {
		t.Errorf("exhausted = %v, want 1", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := first.RecordIteration(coremetrics.IterationEvent{Primary: "9"}); err != nil {
		t.Fatal(err)
	}
	if err := second.RecordIteration(coremetrics.IterationEvent{Primary: "9"}); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(second.(*PromSink).iterations.WithLabelValues("9")); v != 2 {
		t.Errorf("shared counter = %v, want 2", v)
	}
}

func TestPromSink_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{Namespace: "depot"}, reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordIteration(coremetrics.IterationEvent{Primary: "4"}); err != nil {
		t.Fatal(err)
	}
	expected := `
# HELP depot_timetable_search_iterations_total Accepted moves
# TYPE depot_timetable_search_iterations_total counter
depot_timetable_search_iterations_total{primary="4"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "depot_timetable_search_iterations_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}
