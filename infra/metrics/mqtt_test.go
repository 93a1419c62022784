package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/timetabler/core/metrics"
)

type published struct {
	topic string
	value any
}

type fakePublisher struct {
	msgs         []published
	disconnected bool
}

func (f *fakePublisher) Publish(topic string, v any) error {
	f.msgs = append(f.msgs, published{topic, v})
	return nil
}

func (f *fakePublisher) Disconnect() { f.disconnected = true }

func TestMQTTSink_Topics(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub)
	now := time.Now()

	require.NoError(t, sink.RecordSession(coremetrics.SessionEvent{RunID: "r", Primary: "7", Objective: 10, Time: now}))
	require.NoError(t, sink.RecordIteration(coremetrics.IterationEvent{RunID: "r", Primary: "7", Iteration: 1, Objective: 1.23456, Time: now}))
	require.NoError(t, sink.RecordExhaustion(coremetrics.ExhaustionEvent{RunID: "r", Primary: "7", Iteration: 2, Time: now}))
	sink.Close()

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "7/session", pub.msgs[0].topic)
	assert.Equal(t, "7/iteration", pub.msgs[1].topic)
	assert.Equal(t, "7/exhausted", pub.msgs[2].topic)
	it, ok := pub.msgs[1].value.(iterationMessage)
	require.True(t, ok)
	assert.Equal(t, 1.235, it.Objective)
	assert.True(t, pub.disconnected)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(topic string, v any) error {
	return m.Called(topic, v).Error(0)
}

func (m *mockPublisher) Disconnect() { m.Called() }

func TestMQTTSink_PublishError(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", "9/iteration", mock.AnythingOfType("metrics.iterationMessage")).Return(errors.New("broker down"))
	pub.On("Disconnect").Return()

	sink := NewMQTTSink(pub)
	err := sink.RecordIteration(coremetrics.IterationEvent{RunID: "r", Primary: "9", Iteration: 1})
	assert.EqualError(t, err, "broker down")
	sink.Close()
	pub.AssertExpectations(t)
}
