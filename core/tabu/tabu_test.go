package tabu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/timetabler/core/model"
)

func id(stop string) model.VisitID {
	return model.VisitID{Service: "1", Stop: stop, Journey: "j", Sequence: 1, RunningBoard: "b"}
}

func TestSetAndExpire(t *testing.T) {
	l := New(2)
	require.NoError(t, l.Set([]model.VisitID{id("a")}))
	assert.True(t, l.IsTabu([]model.VisitID{id("x"), id("a")}))
	assert.Equal(t, 2, l.Remaining(id("a")))

	require.NoError(t, l.Set([]model.VisitID{id("b")}))
	assert.Equal(t, 1, l.Remaining(id("a")))

	require.NoError(t, l.Set(nil))
	assert.False(t, l.Contains(id("a")))
	assert.True(t, l.Contains(id("b")))
	assert.Equal(t, 1, l.Len())
}

func TestSetRejectsLiveEntry(t *testing.T) {
	l := New(3)
	require.NoError(t, l.Set([]model.VisitID{id("a")}))
	err := l.Set([]model.VisitID{id("a")})
	assert.True(t, errors.Is(err, ErrAlreadyTabu))
}

func TestSetAcceptsEntryExpiringThisIteration(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Set([]model.VisitID{id("a")}))
	require.NoError(t, l.Set([]model.VisitID{id("a")}))
	assert.Equal(t, 1, l.Remaining(id("a")))
}

func TestFreeUpEarly(t *testing.T) {
	l := New(3)
	assert.False(t, l.FreeUpEarly())

	require.NoError(t, l.Set([]model.VisitID{id("a")}))
	require.NoError(t, l.Set([]model.VisitID{id("b")}))
	// a has 2 left, b has 3
	assert.True(t, l.FreeUpEarly())
	assert.Equal(t, 1, l.Remaining(id("a")))
	assert.True(t, l.FreeUpEarly())
	assert.False(t, l.Contains(id("a")))
	assert.Equal(t, 3, l.Remaining(id("b")))
}

func TestFreeUpEarlyTieBreaksOnInsertion(t *testing.T) {
	l := New(1)
	require.NoError(t, l.Set([]model.VisitID{id("a"), id("b")}))
	assert.True(t, l.FreeUpEarly())
	assert.False(t, l.Contains(id("a")))
	assert.True(t, l.Contains(id("b")))
}
