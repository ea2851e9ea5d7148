package sentence

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Rules bound which swaps are legal and how states are valued.
type Rules struct {
	SwapLimit       float64 // Maximum swapped fraction per sentence, in [0, 1]
	Penalty         float64 // Cost per swapped token subtracted from the oracle score
	BinaryBranching bool    // Swap whole constituents instead of single words
}

func (r Rules) Validate() error {
	var errs error
	if r.SwapLimit < 0 || r.SwapLimit > 1 {
		errs = multierror.Append(errs, fmt.Errorf("swap_limit %v outside [0, 1]", r.SwapLimit))
	}
	if r.Penalty < 0 {
		errs = multierror.Append(errs, fmt.Errorf("penalty %v is negative", r.Penalty))
	}
	return errs
}

// Game generates, applies and values swaps over one corpus.
type Game struct {
	corpus       *Corpus
	oracle       Oracle
	rules        Rules
	constituents [][]Span
}

func NewGame(corpus *Corpus, oracle Oracle, rules Rules) (*Game, error) {
	if corpus == nil {
		return nil, errors.New("corpus is nil")
	}
	if oracle == nil {
		return nil, errors.New("oracle is nil")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	for i, s := range corpus.Sentences {
		if len(s.L1) != len(s.L2) {
			return nil, fmt.Errorf("sentence %d has %d L1 tokens but %d L2 tokens", i, len(s.L1), len(s.L2))
		}
	}

	g := &Game{corpus: corpus, oracle: oracle, rules: rules}
	if rules.BinaryBranching {
		g.constituents = make([][]Span, len(corpus.Sentences))
		for i, s := range corpus.Sentences {
			g.constituents[i] = s.Constituents()
		}
	}
	return g, nil
}

func (g *Game) Corpus() *Corpus { return g.corpus }

func (g *Game) Rules() Rules { return g.rules }

// Start returns the all-L1 state.
func (g *Game) Start() State {
	return NewState(g.corpus.Lengths())
}

// PossibleActions lists every legal swap from st with normalized prior
// weights. A saturated state yields no actions.
func (g *Game) PossibleActions(st State) []Action {
	var actions []Action
	for i := 0; i < st.Sentences(); i++ {
		room := MaxSwaps(st.Len(i), g.rules.SwapLimit) - st.Count(i)
		if room <= 0 {
			continue
		}
		if g.rules.BinaryBranching {
			for _, span := range g.constituents[i] {
				if span.Len() <= room && allL1(st, i, span) {
					actions = append(actions, Action{Sentence: i, Span: span})
				}
			}
			continue
		}
		for pos := 0; pos < st.Len(i); pos++ {
			if !st.IsSwapped(i, pos) {
				actions = append(actions, Action{Sentence: i, Span: Span{Start: pos, End: pos + 1}})
			}
		}
	}
	g.weigh(st, actions)
	return actions
}

func allL1(st State, i int, span Span) bool {
	for pos := span.Start; pos < span.End; pos++ {
		if st.IsSwapped(i, pos) {
			return false
		}
	}
	return true
}

func (g *Game) weigh(st State, actions []Action) {
	if len(actions) == 0 {
		return
	}
	var sum float64
	if prior, ok := g.oracle.(PriorOracle); ok {
		for i := range actions {
			w := prior.Prior(g.corpus, st, actions[i])
			if w < 0 {
				w = 0
			}
			actions[i].Weight = w
			sum += w
		}
	}
	if sum <= 0 {
		uniform := 1 / float64(len(actions))
		for i := range actions {
			actions[i].Weight = uniform
		}
		return
	}
	for i := range actions {
		actions[i].Weight /= sum
	}
}

// Apply swaps a in st and scores the successor, incrementally when the
// oracle supports it. Illegal actions return an error wrapping
// ErrInvalidAction; oracle failures are returned as is.
func (g *Game) Apply(ctx context.Context, a Action, st State) (State, error) {
	next, err := st.Apply(a, g.rules.SwapLimit)
	if err != nil {
		return State{}, err
	}

	if prevScore, ok := st.Score(); ok {
		if inc, ok := g.oracle.(IncrementalOracle); ok {
			score, err := inc.Rescore(ctx, g.corpus, st, prevScore, a, next)
			if err != nil {
				return State{}, err
			}
			return next.WithScore(score), nil
		}
	}

	score, err := g.oracle.Score(ctx, g.corpus, next)
	if err != nil {
		return State{}, err
	}
	return next.WithScore(score), nil
}

// Score returns st with its oracle score cached.
func (g *Game) Score(ctx context.Context, st State) (State, error) {
	if st.Scored() {
		return st, nil
	}
	score, err := g.oracle.Score(ctx, g.corpus, st)
	if err != nil {
		return State{}, err
	}
	return st.WithScore(score), nil
}

// Evaluate returns the objective of st: the oracle score minus the penalty
// for every swapped token. Unscored states are scored first.
func (g *Game) Evaluate(ctx context.Context, st State) (float64, error) {
	score, ok := st.Score()
	if !ok {
		var err error
		if score, err = g.oracle.Score(ctx, g.corpus, st); err != nil {
			return 0, err
		}
	}
	return score - g.rules.Penalty*float64(st.Total()), nil
}

// ConcurrentSafe reports whether the underlying oracle may be called from
// several goroutines.
func (g *Game) ConcurrentSafe() bool {
	c, ok := g.oracle.(ConcurrentOracle)
	return ok && c.ConcurrentSafe()
}
