package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"macaronic/sentence"
)

// additiveOracle values each swapped token independently.
type additiveOracle struct {
	values     [][]float64
	fail       func(st sentence.State) bool
	concurrent bool
}

func (o *additiveOracle) Score(ctx context.Context, c *sentence.Corpus, st sentence.State) (float64, error) {
	if o.fail != nil && o.fail(st) {
		return 0, errors.New("oracle unavailable")
	}
	var score float64
	for i := 0; i < st.Sentences(); i++ {
		for _, pos := range st.Swapped(i) {
			score += o.values[i][pos]
		}
	}
	return score, nil
}

func (o *additiveOracle) ConcurrentSafe() bool { return o.concurrent }

func newTestGame(t *testing.T, oracle *additiveOracle, rules sentence.Rules) *sentence.Game {
	t.Helper()

	c := &sentence.Corpus{}
	for _, row := range oracle.values {
		s := sentence.Sentence{L1: make([]string, len(row)), L2: make([]string, len(row))}
		for i := range row {
			s.L1[i], s.L2[i] = "w", "v"
		}
		c.Sentences = append(c.Sentences, s)
	}

	g, err := sentence.NewGame(c, oracle, rules)
	require.NoError(t, err)
	return g
}

func testConfig() Config {
	config := DefaultConfig()
	config.SwapLimit = 1
	config.Penalty = 0.1
	config.ImprovementThreshold = 0
	return config
}

// objectiveOnly values a node by its own objective.
type objectiveOnly struct{}

func (objectiveOnly) Estimate(ctx context.Context, game Game, st sentence.State) (Estimate, error) {
	v, err := game.Evaluate(ctx, st)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Value: v, State: st}, nil
}

// invalidFirst offers an illegal action ahead of everything else at the start.
type invalidFirst struct {
	*sentence.Game
}

func (g invalidFirst) PossibleActions(st sentence.State) []sentence.Action {
	actions := g.Game.PossibleActions(st)
	if st.Total() == 0 {
		actions = append(actions, sentence.Action{Sentence: 99, Span: sentence.Span{Start: 0, End: 1}, Weight: 2})
	}
	return actions
}
