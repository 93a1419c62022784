// Package tabu keeps the short-term memory of a tabu search: visits that were
// recently changed and may not be changed again for a number of iterations.
package tabu

import (
	"errors"
	"fmt"

	"github.com/kilianp07/timetabler/core/model"
)

// ErrAlreadyTabu is returned by Set when one of the visits is still tabu.
var ErrAlreadyTabu = errors.New("visit is already tabu")

type entry struct {
	remaining int
	order     uint64
}

// List maps visit identities to the number of iterations they remain tabu.
// It is not safe for concurrent use.
type List struct {
	tenure  int
	entries map[model.VisitID]*entry
	seq     uint64
}

// New returns an empty list whose entries live for tenure iterations.
func New(tenure int) *List {
	if tenure < 1 {
		tenure = 1
	}
	return &List{tenure: tenure, entries: make(map[model.VisitID]*entry)}
}

// Tenure returns the configured tenure.
func (l *List) Tenure() int { return l.tenure }

// Len returns the number of live entries.
func (l *List) Len() int { return len(l.entries) }

// Contains reports whether id is tabu.
func (l *List) Contains(id model.VisitID) bool {
	_, ok := l.entries[id]
	return ok
}

// IsTabu reports whether any of ids is tabu.
func (l *List) IsTabu(ids []model.VisitID) bool {
	for _, id := range ids {
		if l.Contains(id) {
			return true
		}
	}
	return false
}

// Remaining returns how many iterations id stays tabu, zero when it is free.
func (l *List) Remaining(id model.VisitID) int {
	if e, ok := l.entries[id]; ok {
		return e.remaining
	}
	return 0
}

// Set ages every entry by one iteration, drops the expired ones and then
// makes ids tabu for the full tenure.
func (l *List) Set(ids []model.VisitID) error {
	for id, e := range l.entries {
		e.remaining--
		if e.remaining <= 0 {
			delete(l.entries, id)
		}
	}
	for _, id := range ids {
		if l.Contains(id) {
			return fmt.Errorf("%w: %s", ErrAlreadyTabu, id)
		}
	}
	for _, id := range ids {
		l.seq++
		l.entries[id] = &entry{remaining: l.tenure, order: l.seq}
	}
	return nil
}

// FreeUpEarly ages the entry closest to expiry by one iteration and removes
// it when it reaches zero. It reports false when the list is empty.
func (l *List) FreeUpEarly() bool {
	var (
		oldestID model.VisitID
		oldest   *entry
	)
	for id, e := range l.entries {
		if oldest == nil || e.remaining < oldest.remaining ||
			(e.remaining == oldest.remaining && e.order < oldest.order) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return false
	}
	oldest.remaining--
	if oldest.remaining <= 0 {
		delete(l.entries, oldestID)
	}
	return true
}
