package monitoring

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/timetabler/config"
	coremon "github.com/kilianp07/timetabler/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	mon, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, mon)
}

func TestSentryMonitorCapturesTags(t *testing.T) {
	var captured []*sentry.Event
	mon, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", Environment: "test"},
		func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured = append(captured, ev)
			return nil
		})
	require.NoError(t, err)

	mon.CaptureException(nil, nil)
	mon.CaptureException(errors.New("boom"), map[string]string{"run_id": "r1"})

	require.Len(t, captured, 1)
	assert.Equal(t, "r1", captured[0].Tags["run_id"])
	assert.Equal(t, "timetabler", captured[0].Tags["component"])
	assert.Equal(t, "test", captured[0].Environment)
}

func TestSentryMonitorRecoverRepanics(t *testing.T) {
	mon, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1"},
		func(*sentry.Event, *sentry.EventHint) *sentry.Event { return nil })
	require.NoError(t, err)
	assert.PanicsWithValue(t, "bad", func() {
		defer mon.Recover()
		panic("bad")
	})
}
