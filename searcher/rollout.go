package searcher

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"macaronic/sentence"
)

// Estimate is the outcome of a rollout: the objective of the state it
// reached and the swaps that reached it.
type Estimate struct {
	Value float64
	Trace []sentence.Action
	State sentence.State
}

// Rollout values a state by searching onward from it. Rollouts never touch
// the tree.
type Rollout interface {
	Estimate(ctx context.Context, game Game, st sentence.State) (Estimate, error)
}

func newRollout(config Config, rng *rand.Rand) Rollout {
	switch config.Rollout {
	case RandomWalk:
		return NewRandomWalk(rng)
	case BeamSearchPerSentence:
		return NewPerSentenceBeam(config.BeamSize, config.MaxSteps, config.Goroutines)
	default:
		return NewBeamSearch(config.BeamSize, config.MaxSteps)
	}
}

type randomWalk struct {
	rng *rand.Rand
}

// NewRandomWalk swaps actions sampled by weight until none remain.
func NewRandomWalk(rng *rand.Rand) Rollout {
	return &randomWalk{rng: rng}
}

func (r *randomWalk) Estimate(ctx context.Context, game Game, st sentence.State) (Estimate, error) {
	var trace []sentence.Action
	for actions := game.PossibleActions(st); len(actions) > 0; actions = game.PossibleActions(st) {
		if err := ctx.Err(); err != nil {
			return Estimate{}, err
		}
		a := sample(r.rng, actions)
		next, err := game.Apply(ctx, a, st)
		if err != nil {
			return Estimate{}, err
		}
		st = next
		trace = append(trace, a)
	}

	value, err := game.Evaluate(ctx, st)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Value: value, Trace: trace, State: st}, nil
}

// sample draws an action proportionally to its weight, uniformly when the
// weights carry no mass.
func sample(rng *rand.Rand, actions []sentence.Action) sentence.Action {
	var sum float64
	for _, a := range actions {
		sum += a.Weight
	}
	if sum <= 0 {
		return actions[rng.Intn(len(actions))]
	}
	x := rng.Float64() * sum
	for _, a := range actions {
		if x < a.Weight {
			return a
		}
		x -= a.Weight
	}
	return actions[len(actions)-1]
}

type beamSearch struct {
	size  int
	steps int
}

// NewBeamSearch keeps the size best states over the whole corpus for up to
// steps swaps.
func NewBeamSearch(size, steps int) Rollout {
	return &beamSearch{size: size, steps: steps}
}

func (b *beamSearch) Estimate(ctx context.Context, game Game, st sentence.State) (Estimate, error) {
	return beam(ctx, game, st, b.size, b.steps, nil)
}

type perSentenceBeam struct {
	size       int
	steps      int
	goroutines int
}

// NewPerSentenceBeam runs an independent beam over each sentence's swaps and
// composes the winners. Sentences run concurrently when the game allows it.
func NewPerSentenceBeam(size, steps, goroutines int) Rollout {
	return &perSentenceBeam{size: size, steps: steps, goroutines: goroutines}
}

func (b *perSentenceBeam) Estimate(ctx context.Context, game Game, st sentence.State) (Estimate, error) {
	traces := make([][]sentence.Action, st.Sentences())
	run := func(ctx context.Context, i int) error {
		only := func(a sentence.Action) bool { return a.Sentence == i }
		est, err := beam(ctx, game, st, b.size, b.steps, only)
		if err != nil {
			return err
		}
		traces[i] = est.Trace
		return nil
	}

	if b.goroutines > 1 && concurrentSafe(game) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.goroutines)
		for i := range traces {
			g.Go(func() error { return run(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return Estimate{}, err
		}
	} else {
		for i := range traces {
			if err := run(ctx, i); err != nil {
				return Estimate{}, err
			}
		}
	}

	composed := st
	var trace []sentence.Action
	for _, t := range traces {
		for _, a := range t {
			next, err := game.Apply(ctx, a, composed)
			if err != nil {
				return Estimate{}, err
			}
			composed = next
			trace = append(trace, a)
		}
	}
	value, err := game.Evaluate(ctx, composed)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Value: value, Trace: trace, State: composed}, nil
}

func concurrentSafe(game Game) bool {
	c, ok := game.(interface{ ConcurrentSafe() bool })
	return ok && c.ConcurrentSafe()
}

type candidate struct {
	state sentence.State
	value float64
	trace []sentence.Action
}

// beam extends every frontier state by every allowed action, keeps the size
// best distinct successors and stops after steps rounds or when nothing
// extends. It returns the best state seen, st included.
func beam(ctx context.Context, game Game, st sentence.State, size, steps int, allow func(sentence.Action) bool) (Estimate, error) {
	value, err := game.Evaluate(ctx, st)
	if err != nil {
		return Estimate{}, err
	}
	best := candidate{state: st, value: value}
	frontier := []candidate{best}

	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return Estimate{}, err
		}

		seen := make(map[string]bool)
		var next []candidate
		for _, c := range frontier {
			for _, a := range game.PossibleActions(c.state) {
				if allow != nil && !allow(a) {
					continue
				}
				succ, err := game.Apply(ctx, a, c.state)
				if errors.Is(err, sentence.ErrInvalidAction) {
					continue
				}
				if err != nil {
					return Estimate{}, err
				}
				key := succ.Key()
				if seen[key] {
					continue
				}
				seen[key] = true

				v, err := game.Evaluate(ctx, succ)
				if err != nil {
					return Estimate{}, err
				}
				trace := make([]sentence.Action, len(c.trace), len(c.trace)+1)
				copy(trace, c.trace)
				next = append(next, candidate{state: succ, value: v, trace: append(trace, a)})
			}
		}
		if len(next) == 0 {
			break
		}

		sort.SliceStable(next, func(i, j int) bool { return next[i].value > next[j].value })
		if len(next) > size {
			next = next[:size]
		}
		frontier = next
		if next[0].value > best.value {
			best = next[0]
		}
	}

	return Estimate{Value: best.value, Trace: best.trace, State: best.state}, nil
}
