package solution

import (
	"sort"
	"time"

	"github.com/kilianp07/timetabler/core/model"
)

// Move is a complete replacement timetable for one service, produced by
// shifting a target visit and propagating the change along its running board.
type Move struct {
	Service           string
	Timetable         []BlamedVisit
	Changed           map[model.VisitID]struct{}
	Target            model.VisitID
	ProposedArrival   time.Time
	ProposedDeparture time.Time
	// ChangeMinutes is how far the target visit moved.
	ChangeMinutes float64
}

// ChangedIDs returns the changed visit identities in a stable order.
func (m Move) ChangedIDs() []model.VisitID {
	ids := make([]model.VisitID, 0, len(m.Changed))
	for id := range m.Changed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Apply returns a clone of s with the move's timetable installed. The move's
// timetable is copied so the same Move can be applied more than once.
func (m Move) Apply(s *Solution) *Solution {
	c := s.Clone()
	c.Replace(m.Service, append([]BlamedVisit(nil), m.Timetable...))
	return c
}
