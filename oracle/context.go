// Package oracle scores macaronic configurations by how guessable the
// swapped L2 tokens are from their surroundings.
package oracle

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/floats"

	"macaronic/corpus"
	"macaronic/sentence"
)

type Config struct {
	Window int     // Unswapped L1 neighbours on each side that form the context
	Alpha  float64 // Weight of context fit against spelling similarity, in [0, 1]
}

func DefaultConfig() Config {
	return Config{Window: 2, Alpha: 0.7}
}

func (c Config) Validate() error {
	var errs error
	if c.Window <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("window %d must be positive", c.Window))
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		errs = multierror.Append(errs, fmt.Errorf("alpha %v outside [0, 1]", c.Alpha))
	}
	return errs
}

// ContextOracle sums, over every swapped token, a guessability in [0, 1]:
//
//	alpha * clamp(cos(context, emb(L1))) + (1 - alpha) * spelling(L1, L2)
//
// where the context is the sum of the vectors of unswapped L1 words within
// the window. Sentences score independently, which makes rescoring after a
// swap local to one sentence. It holds no mutable state.
type ContextOracle struct {
	embeddings *corpus.Embeddings
	window     int
	alpha      float64
}

func NewContextOracle(embeddings *corpus.Embeddings, config Config) (*ContextOracle, error) {
	if embeddings == nil {
		return nil, fmt.Errorf("embeddings are nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ContextOracle{
		embeddings: embeddings,
		window:     config.Window,
		alpha:      config.Alpha,
	}, nil
}

func (o *ContextOracle) Score(ctx context.Context, c *sentence.Corpus, st sentence.State) (float64, error) {
	if err := o.check(c, st); err != nil {
		return 0, err
	}
	var total float64
	for i := range c.Sentences {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		total += o.sentenceScore(c, st, i)
	}
	return total, nil
}

// Rescore replaces the contribution of the swapped sentence only.
func (o *ContextOracle) Rescore(ctx context.Context, c *sentence.Corpus, prev sentence.State, prevScore float64, a sentence.Action, next sentence.State) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := o.check(c, next); err != nil {
		return 0, err
	}
	i := a.Sentence
	return prevScore - o.sentenceScore(c, prev, i) + o.sentenceScore(c, next, i), nil
}

// Prior is the mean guessability the span's tokens would have if swapped now.
func (o *ContextOracle) Prior(c *sentence.Corpus, st sentence.State, a sentence.Action) float64 {
	if a.Span.Len() <= 0 {
		return 0
	}
	var sum float64
	for pos := a.Span.Start; pos < a.Span.End; pos++ {
		sum += o.guessability(c, st, a.Sentence, pos)
	}
	return sum / float64(a.Span.Len())
}

func (o *ContextOracle) ConcurrentSafe() bool { return true }

func (o *ContextOracle) check(c *sentence.Corpus, st sentence.State) error {
	if len(c.Sentences) != st.Sentences() {
		return fmt.Errorf("state has %d sentences but corpus has %d", st.Sentences(), len(c.Sentences))
	}
	for i, s := range c.Sentences {
		if s.Len() != st.Len(i) {
			return fmt.Errorf("sentence %d: state has %d positions but corpus has %d tokens", i, st.Len(i), s.Len())
		}
	}
	return nil
}

func (o *ContextOracle) sentenceScore(c *sentence.Corpus, st sentence.State, i int) float64 {
	var score float64
	for _, pos := range st.Swapped(i) {
		score += o.guessability(c, st, i, pos)
	}
	return score
}

func (o *ContextOracle) guessability(c *sentence.Corpus, st sentence.State, i, pos int) float64 {
	s := c.Sentences[i]
	return o.alpha*o.contextFit(s, st, i, pos) + (1-o.alpha)*Spelling(s.L1[pos], s.L2[pos])
}

func (o *ContextOracle) contextFit(s sentence.Sentence, st sentence.State, i, pos int) float64 {
	target, ok := o.embeddings.Lookup(s.L1[pos])
	if !ok {
		return 0
	}

	around := make([]float64, o.embeddings.Dim())
	found := false
	lo, hi := max(0, pos-o.window), min(s.Len()-1, pos+o.window)
	for j := lo; j <= hi; j++ {
		if j == pos || st.IsSwapped(i, j) {
			continue
		}
		if vec, ok := o.embeddings.Lookup(s.L1[j]); ok {
			floats.Add(around, vec)
			found = true
		}
	}
	if !found {
		return 0
	}
	return clamp01(cosine(around, target))
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// Spelling is one minus the normalized edit distance between the case
// folded forms of two tokens.
func Spelling(a, b string) float64 {
	a, b = corpus.Key(a), corpus.Key(b)
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(editDistance([]rune(a), []rune(b)))/float64(n)
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
