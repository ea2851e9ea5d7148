package sentence

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidAction reports an action that references a swapped position, an
// out of range span, or that would break the swap limit.
var ErrInvalidAction = errors.New("invalid swap action")

// Span is a half-open range [Start, End) of word positions.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string {
	return fmt.Sprintf("[%d:%d]", s.Start, s.End)
}

// Action flips every position of Span in sentence Sentence from L1 to L2.
type Action struct {
	Sentence int
	Span     Span
	Weight   float64 // Prior used to order unexpanded actions
}

// Same reports whether both actions swap the same positions, ignoring weights.
func (a Action) Same(b Action) bool {
	return a.Sentence == b.Sentence && a.Span == b.Span
}

func (a Action) String() string {
	return fmt.Sprintf("s%d%s", a.Sentence, a.Span)
}

// Oracle scores a fully materialized macaronic state. The corpus is passed
// through untouched by the search engine.
type Oracle interface {
	Score(ctx context.Context, corpus *Corpus, st State) (float64, error)
}

// IncrementalOracle re-scores the successor of a single swap more cheaply than
// a full Score.
type IncrementalOracle interface {
	Oracle
	Rescore(ctx context.Context, corpus *Corpus, prev State, prevScore float64, a Action, next State) (float64, error)
}

// PriorOracle estimates how much the oracle cares about an action from st.
// Larger means more promising; negative values are treated as zero.
type PriorOracle interface {
	Prior(corpus *Corpus, st State, a Action) float64
}

// ConcurrentOracle is implemented by oracles that may be called from several
// goroutines at once. Oracles that do not implement it are never called
// concurrently.
type ConcurrentOracle interface {
	ConcurrentSafe() bool
}
