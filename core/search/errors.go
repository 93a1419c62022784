package search

import "errors"

var (
	// ErrNoMove reports an iteration without any legal move. The caller
	// decides whether to stop or free up the tabu list.
	ErrNoMove = errors.New("no move found")
	// ErrInvariant reports a broken internal contract. Runs must abort.
	ErrInvariant = errors.New("search invariant violated")
)
