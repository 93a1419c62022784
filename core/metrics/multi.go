package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink sees every event;
// the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIteration forwards the event to all sinks.
func (m *MultiSink) RecordIteration(ev IterationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordIteration(ev))
	}
	return errors.Join(errs...)
}

// RecordSession forwards to the sinks that record sessions.
func (m *MultiSink) RecordSession(ev SessionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionRecorder); ok {
			errs = append(errs, rec.RecordSession(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordExhaustion forwards to the sinks that record exhaustion.
func (m *MultiSink) RecordExhaustion(ev ExhaustionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ExhaustionRecorder); ok {
			errs = append(errs, rec.RecordExhaustion(ev))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
