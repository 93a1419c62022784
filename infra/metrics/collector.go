package metrics

import (
	"context"

	"github.com/kilianp07/timetabler/core/events"
	coremetrics "github.com/kilianp07/timetabler/core/metrics"
	"github.com/kilianp07/timetabler/infra/logger"
	"github.com/kilianp07/timetabler/internal/eventbus"
)

// StartEventCollector subscribes to the event bus with room for buffer events
// and records metrics for them. A buffer of zero or less uses
// coremetrics.DefaultCollectorBuffer. It stops when the context is canceled
// or the bus is closed; the returned channel is closed once the collector
// has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink, buffer int, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if buffer <= 0 {
		buffer = coremetrics.DefaultCollectorBuffer
	}
	sub := bus.SubscribeBuffered(buffer)
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T for run %s: %v", ev, ev.Run(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.RunStarted:
		if r, ok := sink.(coremetrics.SessionRecorder); ok {
			return r.RecordSession(e.SessionEvent)
		}
	case events.MoveAccepted:
		return sink.RecordIteration(e.IterationEvent)
	case events.SearchExhausted:
		if r, ok := sink.(coremetrics.ExhaustionRecorder); ok {
			return r.RecordExhaustion(e.ExhaustionEvent)
		}
	}
	return nil
}
