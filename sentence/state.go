package sentence

import (
	"fmt"
	"math"
	"strings"
)

// State is a snapshot of a macaronic corpus: which word positions of each
// sentence are currently shown in L2, and the last oracle score.
//
// State should be immutable - operations on State always return a new copy.
// Masks of untouched sentences are shared between a state and its successors.
type State struct {
	masks  [][]bool
	counts []int
	total  int
	score  float64
	scored bool
}

// NewState returns the all-L1 state for sentences of the given lengths.
func NewState(lengths []int) State {
	masks := make([][]bool, len(lengths))
	for i, n := range lengths {
		masks[i] = make([]bool, n)
	}
	return State{
		masks:  masks,
		counts: make([]int, len(lengths)),
	}
}

func (s State) Sentences() int { return len(s.masks) }

// Len returns the length of sentence i.
func (s State) Len(i int) int { return len(s.masks[i]) }

func (s State) IsSwapped(i, pos int) bool { return s.masks[i][pos] }

// Count returns how many positions of sentence i are in L2.
func (s State) Count(i int) int { return s.counts[i] }

// Total returns how many positions are in L2 across the corpus.
func (s State) Total() int { return s.total }

// Ratio returns the swapped fraction of sentence i. Empty sentences have ratio 0.
func (s State) Ratio(i int) float64 {
	if len(s.masks[i]) == 0 {
		return 0
	}
	return float64(s.counts[i]) / float64(len(s.masks[i]))
}

// Swapped returns the L2 positions of sentence i in increasing order.
func (s State) Swapped(i int) []int {
	positions := make([]int, 0, s.counts[i])
	for pos, swapped := range s.masks[i] {
		if swapped {
			positions = append(positions, pos)
		}
	}
	return positions
}

// Mask returns a copy of the substitution mask of sentence i.
func (s State) Mask(i int) []bool {
	mask := make([]bool, len(s.masks[i]))
	copy(mask, s.masks[i])
	return mask
}

// Score returns the cached oracle score and whether one was recorded.
func (s State) Score() (float64, bool) { return s.score, s.scored }

func (s State) Scored() bool { return s.scored }

// WithScore returns a copy of the state carrying score.
func (s State) WithScore(score float64) State {
	s.score = score
	s.scored = true
	return s
}

// Apply returns the successor of s after swapping a. limit is the maximum
// swapped fraction per sentence. The returned state carries no score.
func (s State) Apply(a Action, limit float64) (State, error) {
	if err := s.Check(a, limit); err != nil {
		return State{}, err
	}

	mask := make([]bool, len(s.masks[a.Sentence]))
	copy(mask, s.masks[a.Sentence])
	for pos := a.Span.Start; pos < a.Span.End; pos++ {
		mask[pos] = true
	}

	masks := make([][]bool, len(s.masks))
	copy(masks, s.masks)
	masks[a.Sentence] = mask

	counts := make([]int, len(s.counts))
	copy(counts, s.counts)
	counts[a.Sentence] += a.Span.Len()

	return State{
		masks:  masks,
		counts: counts,
		total:  s.total + a.Span.Len(),
	}, nil
}

// Check reports whether a is legal in s under limit.
func (s State) Check(a Action, limit float64) error {
	if a.Sentence < 0 || a.Sentence >= len(s.masks) {
		return fmt.Errorf("%w: sentence %d out of range", ErrInvalidAction, a.Sentence)
	}
	n := len(s.masks[a.Sentence])
	if a.Span.Len() <= 0 || a.Span.Start < 0 || a.Span.End > n {
		return fmt.Errorf("%w: span %v out of range for length %d", ErrInvalidAction, a.Span, n)
	}
	for pos := a.Span.Start; pos < a.Span.End; pos++ {
		if s.masks[a.Sentence][pos] {
			return fmt.Errorf("%w: position %d of sentence %d already swapped", ErrInvalidAction, pos, a.Sentence)
		}
	}
	if s.counts[a.Sentence]+a.Span.Len() > MaxSwaps(n, limit) {
		return fmt.Errorf("%w: %v exceeds swap limit %.2f", ErrInvalidAction, a, limit)
	}
	return nil
}

// Key identifies the swap configuration of s, ignoring the score.
func (s State) Key() string {
	var b strings.Builder
	for i, mask := range s.masks {
		if i > 0 {
			b.WriteByte('|')
		}
		for _, swapped := range mask {
			if swapped {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// MaxSwaps returns the largest swap count a sentence of length n may hold
// without its swapped fraction exceeding limit.
func MaxSwaps(n int, limit float64) int {
	return int(math.Floor(limit*float64(n) + 1e-9))
}
