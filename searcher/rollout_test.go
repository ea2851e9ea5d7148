package searcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"macaronic/sentence"
)

func TestRandomWalk(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, &additiveOracle{values: [][]float64{{1, 2, 3, 4, 5, 6}, {1, 1, 1}}}, sentence.Rules{SwapLimit: 0.5})

	t.Run("same seed walks the same path", func(t *testing.T) {
		first, err := NewRandomWalk(rand.New(rand.NewSource(7))).Estimate(ctx, g, g.Start())
		require.NoError(t, err)
		second, err := NewRandomWalk(rand.New(rand.NewSource(7))).Estimate(ctx, g, g.Start())
		require.NoError(t, err)

		require.Equal(t, first.Trace, second.Trace)
		require.Equal(t, first.Value, second.Value)
	})

	t.Run("walking until no swap is legal", func(t *testing.T) {
		got, err := NewRandomWalk(rand.New(rand.NewSource(1))).Estimate(ctx, g, g.Start())

		require.NoError(t, err)
		require.Empty(t, g.PossibleActions(got.State))
		require.Equal(t, 3, got.State.Count(0))
		require.Equal(t, 1, got.State.Count(1))
		require.Len(t, got.Trace, 4)

		want, err := g.Evaluate(ctx, got.State)
		require.NoError(t, err)
		require.Equal(t, want, got.Value)
	})

	t.Run("sampling by weight", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		actions := []sentence.Action{
			{Span: sentence.Span{Start: 0, End: 1}, Weight: 0},
			{Span: sentence.Span{Start: 1, End: 2}, Weight: 1},
		}

		for i := 0; i < 50; i++ {
			require.Equal(t, 1, sample(rng, actions).Span.Start, "Zero weight actions should never be drawn")
		}
	})
}

func TestBeamSearch(t *testing.T) {
	ctx := context.Background()
	values := [][]float64{{1, 7, 2, 9, 4, 3}, {5, 1, 6, 2}}
	g := newTestGame(t, &additiveOracle{values: values}, sentence.Rules{SwapLimit: 0.5, Penalty: 0.5})

	t.Run("wider beams do no worse", func(t *testing.T) {
		var last float64
		for i, size := range []int{1, 2, 4, 8} {
			got, err := NewBeamSearch(size, 10).Estimate(ctx, g, g.Start())
			require.NoError(t, err)
			if i > 0 {
				require.GreaterOrEqual(t, got.Value, last, "Beam of %d did worse", size)
			}
			last = got.Value
		}
		// 9+7+4 and 6+5, less 5 swaps.
		require.InDelta(t, 31-2.5, last, 1e-9)
	})

	t.Run("no steps keeps the start", func(t *testing.T) {
		got, err := NewBeamSearch(4, 0).Estimate(ctx, g, g.Start())

		require.NoError(t, err)
		require.Equal(t, 0, got.State.Total())
		require.Empty(t, got.Trace)
		require.Equal(t, 0.0, got.Value)
	})

	t.Run("returning the best state seen", func(t *testing.T) {
		costly := newTestGame(t, &additiveOracle{values: values}, sentence.Rules{SwapLimit: 0.5, Penalty: 100})

		got, err := NewBeamSearch(4, 10).Estimate(ctx, costly, costly.Start())

		require.NoError(t, err)
		require.Equal(t, 0, got.State.Total(), "Every swap loses value")
	})

	t.Run("trace replays to the state", func(t *testing.T) {
		got, err := NewBeamSearch(3, 10).Estimate(ctx, g, g.Start())
		require.NoError(t, err)

		st := g.Start()
		for _, a := range got.Trace {
			st, err = st.Apply(a, 0.5)
			require.NoError(t, err)
		}
		require.Equal(t, got.State.Key(), st.Key())
	})
}

func TestPerSentenceBeam(t *testing.T) {
	ctx := context.Background()
	values := [][]float64{{1, 7, 2, 9, 4, 3}, {5, 1, 6, 2}, {2, 8}}

	t.Run("composing the best of each sentence", func(t *testing.T) {
		g := newTestGame(t, &additiveOracle{values: values}, sentence.Rules{SwapLimit: 0.5, Penalty: 0.5})

		got, err := NewPerSentenceBeam(2, 10, 1).Estimate(ctx, g, g.Start())

		require.NoError(t, err)
		require.Equal(t, []int{1, 3, 4}, got.State.Swapped(0))
		require.Equal(t, []int{0, 2}, got.State.Swapped(1))
		require.Equal(t, []int{1}, got.State.Swapped(2))
		require.InDelta(t, 39-3, got.Value, 1e-9)
	})

	t.Run("parallel sentences agree with sequential ones", func(t *testing.T) {
		g := newTestGame(t, &additiveOracle{values: values, concurrent: true}, sentence.Rules{SwapLimit: 0.5, Penalty: 0.5})

		sequential, err := NewPerSentenceBeam(2, 10, 1).Estimate(ctx, g, g.Start())
		require.NoError(t, err)
		parallel, err := NewPerSentenceBeam(2, 10, 3).Estimate(ctx, g, g.Start())
		require.NoError(t, err)

		require.Equal(t, sequential.Trace, parallel.Trace)
		require.Equal(t, sequential.Value, parallel.Value)
	})

	t.Run("returning oracle failures", func(t *testing.T) {
		oracle := &additiveOracle{
			values:     values,
			concurrent: true,
			fail:       func(st sentence.State) bool { return st.Count(2) > 0 },
		}
		g := newTestGame(t, oracle, sentence.Rules{SwapLimit: 0.5})

		_, err := NewPerSentenceBeam(2, 10, 3).Estimate(ctx, g, g.Start())

		require.Error(t, err)
	})
}
