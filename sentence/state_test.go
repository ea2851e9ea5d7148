package sentence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateApply(t *testing.T) {
	t.Run("applying a legal swap", func(t *testing.T) {
		st := NewState([]int{4, 3})

		got, err := st.Apply(Action{Sentence: 1, Span: Span{Start: 1, End: 2}}, 0.5)

		require.NoError(t, err)
		require.True(t, got.IsSwapped(1, 1), "Position should be swapped")
		require.Equal(t, 1, got.Count(1), "Sentence count should increase")
		require.Equal(t, 1, got.Total(), "Total count should increase")
		require.False(t, got.Scored(), "Successor should carry no score")
		require.False(t, st.IsSwapped(1, 1), "Parent state should not change")
		require.Equal(t, 0, st.Total(), "Parent state should not change")
	})

	t.Run("sharing untouched sentences", func(t *testing.T) {
		st := NewState([]int{2, 2})

		got, err := st.Apply(Action{Sentence: 0, Span: Span{Start: 0, End: 1}}, 1)

		require.NoError(t, err)
		require.Same(t, &st.masks[1][0], &got.masks[1][0], "Untouched mask should be shared")
	})

	t.Run("rejecting an already swapped position", func(t *testing.T) {
		st, err := NewState([]int{4}).Apply(Action{Span: Span{Start: 0, End: 1}}, 1)
		require.NoError(t, err)

		_, err = st.Apply(Action{Span: Span{Start: 0, End: 2}}, 1)

		require.True(t, errors.Is(err, ErrInvalidAction), "Should reject a swapped position")
	})

	t.Run("rejecting a swap over the limit", func(t *testing.T) {
		st := NewState([]int{10})

		_, err := st.Apply(Action{Span: Span{Start: 0, End: 4}}, 0.3)

		require.True(t, errors.Is(err, ErrInvalidAction), "Should reject 4 of 10 swaps with limit 0.3")
	})

	t.Run("rejecting out of range spans", func(t *testing.T) {
		st := NewState([]int{3})

		_, err := st.Apply(Action{Span: Span{Start: 2, End: 4}}, 1)
		require.True(t, errors.Is(err, ErrInvalidAction))

		_, err = st.Apply(Action{Sentence: 1, Span: Span{Start: 0, End: 1}}, 1)
		require.True(t, errors.Is(err, ErrInvalidAction))

		_, err = st.Apply(Action{Span: Span{Start: 1, End: 1}}, 1)
		require.True(t, errors.Is(err, ErrInvalidAction))
	})
}

func TestStateAccessors(t *testing.T) {
	st := NewState([]int{5, 0})
	st, err := st.Apply(Action{Span: Span{Start: 3, End: 5}}, 1)
	require.NoError(t, err)
	st, err = st.Apply(Action{Span: Span{Start: 0, End: 1}}, 1)
	require.NoError(t, err)

	require.Equal(t, []int{0, 3, 4}, st.Swapped(0))
	require.Equal(t, []bool{true, false, false, true, true}, st.Mask(0))
	require.InDelta(t, 0.6, st.Ratio(0), 1e-9)
	require.Equal(t, 0.0, st.Ratio(1), "Empty sentence should have ratio 0")
	require.Equal(t, "10011|", st.Key())

	scored := st.WithScore(2.5)
	score, ok := scored.Score()
	require.True(t, ok)
	require.Equal(t, 2.5, score)
	require.Equal(t, st.Key(), scored.Key(), "Key should ignore the score")
	require.False(t, st.Scored(), "WithScore should return a copy")
}

func TestMaxSwaps(t *testing.T) {
	require.Equal(t, 3, MaxSwaps(10, 0.3), "0.3 of 10 should allow 3 despite rounding")
	require.Equal(t, 0, MaxSwaps(3, 0.3))
	require.Equal(t, 7, MaxSwaps(7, 1))
	require.Equal(t, 0, MaxSwaps(7, 0))
}

func TestConstituents(t *testing.T) {
	t.Run("balanced split by default", func(t *testing.T) {
		s := Sentence{L1: []string{"a", "b", "c"}, L2: []string{"x", "y", "z"}}

		require.Equal(t, []Span{
			{Start: 0, End: 1},
			{Start: 0, End: 2},
			{Start: 0, End: 3},
			{Start: 1, End: 2},
			{Start: 2, End: 3},
		}, s.Constituents())
	})

	t.Run("supplied bracketing", func(t *testing.T) {
		s := Sentence{
			L1:    []string{"a", "b", "c"},
			L2:    []string{"x", "y", "z"},
			Spans: []Span{{Start: 1, End: 3}, {Start: 0, End: 1}},
		}

		require.Equal(t, []Span{{Start: 0, End: 1}, {Start: 1, End: 3}}, s.Constituents())
	})
}

func TestCorpusRender(t *testing.T) {
	c := &Corpus{Sentences: []Sentence{
		{L1: []string{"the", "big", "house"}, L2: []string{"das", "große", "Haus"}},
	}}
	st, err := NewState(c.Lengths()).Apply(Action{Span: Span{Start: 2, End: 3}}, 1)
	require.NoError(t, err)

	got := c.Render(st, 0, func(w string) string { return "[" + w + "]" })

	require.Equal(t, "the big [Haus]", got)
	require.Equal(t, 3, c.Tokens())
}
