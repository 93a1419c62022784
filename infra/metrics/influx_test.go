package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordIteration(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	ev := coremetrics.IterationEvent{
		RunID: "r1", Primary: "1", Iteration: 3, Objective: 12.34567, Adjusted: 13.5,
		Best: 12.34567, Candidates: 4, TabuSize: 2, Service: "2", Target: "2/s2/b1/0/1", Changed: 3,
		ChangeMinutes: 6, Time: time.Unix(1700000000, 0),
	}
	if err := sink.RecordIteration(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	got := bodies()
	if len(got) != 1 {
		t.Fatalf("expected one write, got %d", len(got))
	}
	line := got[0]
	for _, want := range []string{
		"search_iteration,",
		"primary=1",
		"run_id=r1",
		"service=2",
		"objective=12.346",
		"iteration=3i",
		"changed=3i",
		"1700000000000000000",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestInfluxSink_RecordSessionAndExhaustion(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordSession(coremetrics.SessionEvent{RunID: "r1", Primary: "1", Visits: 10, Objective: 30, Time: now}); err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := sink.RecordExhaustion(coremetrics.ExhaustionEvent{RunID: "r1", Primary: "1", Iteration: 5, FreedUp: true, Time: now}); err != nil {
		t.Fatalf("exhaustion: %v", err)
	}
	got := bodies()
	if len(got) != 2 {
		t.Fatalf("expected two writes, got %d", len(got))
	}
	if !strings.HasPrefix(got[0], "search_session,") || !strings.Contains(got[0], "visits=10i") {
		t.Errorf("unexpected session line %q", got[0])
	}
	if !strings.HasPrefix(got[1], "search_exhausted,") || !strings.Contains(got[1], "freed_up=true") {
		t.Errorf("unexpected exhaustion line %q", got[1])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
