// Package searcher finds high scoring macaronic configurations with a
// best-first tree search whose leaves are valued by rollouts.
package searcher

import (
	"context"

	"macaronic/experiments/metrics"
	"macaronic/sentence"
)

// Game is the search's view of the swap rules. *sentence.Game implements it.
// Rules must report the limits the game enforces so that New can check them
// against the search config.
type Game interface {
	Rules() sentence.Rules
	PossibleActions(st sentence.State) []sentence.Action
	Apply(ctx context.Context, a sentence.Action, st sentence.State) (sentence.State, error)
	Evaluate(ctx context.Context, st sentence.State) (float64, error)
}

// StopReason says why a search ended.
type StopReason int

const (
	StopMaxSteps  StopReason = iota // Expansion budget spent
	StopDepth                       // A node reached the depth limit
	StopConverged                   // Root's best child stopped improving
	StopExhausted                   // Nothing left to expand
	StopTerminal                    // Root has no legal actions
	StopCancelled                   // Context done
)

func (r StopReason) String() string {
	switch r {
	case StopMaxSteps:
		return "max_steps"
	case StopDepth:
		return "max_search_depth"
	case StopConverged:
		return "converged"
	case StopExhausted:
		return "exhausted"
	case StopTerminal:
		return "terminal"
	case StopCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Result struct {
	Node  NodeID
	State sentence.State
	Path  []sentence.Action // Swaps from the root to Node
	Value float64           // Node's aggregate, or the root's objective when nothing was visited
	Best  Estimate          // Best rollout seen; holds the root's objective when no rollout ran

	Iterations     int
	Expansions     int
	InvalidActions int
	Failures       int
	Stop           StopReason
	Metric         metrics.SearchMetric
}
