package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/timetabler/core/blame"
	"github.com/kilianp07/timetabler/core/logger"
	"github.com/kilianp07/timetabler/core/solution"
	"github.com/kilianp07/timetabler/core/tabu"
)

// Selection is the move a MoveSelector accepted and the Solution it yields.
type Selection struct {
	Move      solution.Move
	Solution  *solution.Solution
	Objective float64
	Adjusted  float64
	Cohesion  float64
	Evaluated int
}

// MoveSelector evaluates candidate moves and keeps the best one.
type MoveSelector struct {
	slack    *blame.SlackEvaluator
	cohesion *blame.CohesionEvaluator
	log      logger.Logger
}

// NewMoveSelector builds a MoveSelector.
func NewMoveSelector(slack *blame.SlackEvaluator, cohesion *blame.CohesionEvaluator, log logger.Logger) *MoveSelector {
	return &MoveSelector{slack: slack, cohesion: cohesion, log: logger.OrNop(log)}
}

// Penalise inflates an objective for moves that shift their target far.
func Penalise(objective, changeMinutes float64) float64 {
	switch {
	case changeMinutes >= 15:
		return objective * 1.5
	case changeMinutes >= 10:
		return objective * 1.2
	case changeMinutes >= 5:
		return objective * 1.1
	default:
		return objective
	}
}

// Select applies each non tabu move to a clone of current, re-blames it and
// returns the one with the lowest penalised objective. The accepted move's
// visits are made tabu. ErrNoMove is returned when no move is legal.
func (s *MoveSelector) Select(ctx context.Context, current *solution.Solution, moves []solution.Move, tl *tabu.List) (Selection, error) {
	var (
		best  Selection
		found bool
	)
	for _, mv := range moves {
		if tl.IsTabu(mv.ChangedIDs()) {
			continue
		}
		cand := mv.Apply(current)
		if err := s.slack.EvaluateService(ctx, cand, mv.Service); err != nil {
			return Selection{}, err
		}
		s.cohesion.Evaluate(cand)
		obj := cand.Objective()
		adj := Penalise(obj, mv.ChangeMinutes)
		s.log.Debugw("candidate", map[string]any{
			"target":    mv.Target.String(),
			"objective": obj,
			"adjusted":  adj,
			"change":    mv.ChangeMinutes,
		})
		best.Evaluated++
		if !found || adj < best.Adjusted {
			found = true
			best = Selection{
				Move:      mv,
				Solution:  cand,
				Objective: obj,
				Adjusted:  adj,
				Cohesion:  cand.CohesionTotal(),
				Evaluated: best.Evaluated,
			}
		}
	}
	if !found {
		return Selection{}, ErrNoMove
	}
	if err := tl.Set(best.Move.ChangedIDs()); err != nil {
		if errors.Is(err, tabu.ErrAlreadyTabu) {
			return Selection{}, fmt.Errorf("%w: %w", ErrInvariant, err)
		}
		return Selection{}, err
	}
	return best, nil
}
