package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordIteration(IterationEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordSession(SessionEvent) error {
	r.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	if err := m.RecordIteration(IterationEvent{Iteration: 1}); err != nil {
		t.Fatalf("record iteration: %v", err)
	}
	if err := m.RecordSession(SessionEvent{}); err != nil {
		t.Fatalf("record session: %v", err)
	}
	if err := m.RecordExhaustion(ExhaustionEvent{}); err != nil {
		t.Fatalf("record exhaustion: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkKeepsForwardingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordIteration(IterationEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if s2.count != 1 {
		t.Fatalf("second sink skipped")
	}
}
