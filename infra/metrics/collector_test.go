package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/timetabler/core/events"
	coremetrics "github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/internal/eventbus"
)

type countingSink struct {
	sessions, iterations, exhaustions int
}

func (c *countingSink) RecordSession(coremetrics.SessionEvent) error { c.sessions++; return nil }
func (c *countingSink) RecordIteration(coremetrics.IterationEvent) error {
	c.iterations++
	return nil
}
func (c *countingSink) RecordExhaustion(coremetrics.ExhaustionEvent) error {
	c.exhaustions++
	return nil
}

func TestEventCollectorDrainsOnClose(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	sink := &countingSink{}
	done := StartEventCollector(context.Background(), bus, sink, 0, nil)

	bus.Publish(events.RunStarted{SessionEvent: coremetrics.SessionEvent{RunID: "r"}})
	bus.Publish(events.MoveAccepted{IterationEvent: coremetrics.IterationEvent{RunID: "r", Iteration: 1}})
	bus.Publish(events.MoveAccepted{IterationEvent: coremetrics.IterationEvent{RunID: "r", Iteration: 2}})
	bus.Publish(events.SearchExhausted{ExhaustionEvent: coremetrics.ExhaustionEvent{RunID: "r"}})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.Equal(t, 1, sink.sessions)
	assert.Equal(t, 2, sink.iterations)
	assert.Equal(t, 1, sink.exhaustions)
}

func TestEventCollectorStopsOnCancel(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, coremetrics.NopSink{}, 4, nil)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{}, 0, nil)
	_, open := <-done
	assert.False(t, open)
}
