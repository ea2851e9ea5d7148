package searcher

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"macaronic/experiments/metrics"
	"macaronic/sentence"
)

const root NodeID = 0

// ErrRulesMismatch is returned by New when the game enforces other swap rules
// than the config asks for.
var ErrRulesMismatch = errors.New("game rules differ from config")

type Option func(t *Tree)

func WithMetrics() Option {
	return func(t *Tree) {
		t.metrics = metrics.NewCollector()
	}
}

func WithCollector(collector metrics.Collector) Option {
	return func(t *Tree) {
		if collector != nil {
			t.metrics = collector
		}
	}
}

// WithRollout replaces the rollout chosen by Config.Rollout.
func WithRollout(rollout Rollout) Option {
	return func(t *Tree) {
		if rollout != nil {
			t.custom = rollout
		}
	}
}

// scorer caches the oracle score in a state so that successors can be
// rescored incrementally.
type scorer interface {
	Score(ctx context.Context, st sentence.State) (sentence.State, error)
}

type Tree struct {
	game    Game
	config  Config
	metrics metrics.Collector
	custom  Rollout
	rollout Rollout

	nodes   []node
	best    Estimate
	history []float64 // Root's best child aggregate after each iteration

	iterations int
	expansions int
	invalid    int
	failures   int
}

func New(game Game, config Config, options ...Option) (*Tree, error) {
	if game == nil {
		return nil, errors.New("game is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rules := game.Rules(); rules != config.Rules {
		return nil, fmt.Errorf("%w: game has %+v, config has %+v", ErrRulesMismatch, rules, config.Rules)
	}

	t := &Tree{
		game:    game,
		config:  config,
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(t)
	}
	return t, nil
}

// Search grows a fresh tree from start until a stop condition holds. Every
// call with the same config and start is reproducible. A done context
// returns the best result so far together with ctx.Err().
func (t *Tree) Search(ctx context.Context, start sentence.State) (Result, error) {
	if s, ok := t.game.(scorer); ok && !start.Scored() {
		scored, err := s.Score(ctx, start)
		if err != nil {
			return Result{}, fmt.Errorf("scoring start state: %w", err)
		}
		start = scored
	}
	rootValue, err := t.game.Evaluate(ctx, start)
	if err != nil {
		return Result{}, fmt.Errorf("evaluating start state: %w", err)
	}
	t.reset(start, rootValue)

	t.metrics.Start(t.config.Rollout.String(), t.config.Backup.String())
	log.Info().Msgf("searching with %v rollout and %v backup from objective %.4f", t.config.Rollout, t.config.Backup, rootValue)

	stop, err := t.run(ctx)
	metric := t.metrics.Complete(stop.String())
	log.Info().Msgf("search stopped (%v) after %d iterations, %d expansions, %d invalid actions and %d failures in %v",
		stop, t.iterations, t.expansions, t.invalid, t.failures, metric.Duration)

	result := t.result(rootValue, stop)
	result.Metric = metric
	return result, err
}

func (t *Tree) reset(start sentence.State, rootValue float64) {
	actions := t.game.PossibleActions(start)
	n := newNode(nilNode, sentence.Action{}, start, 0)
	n.queue = newActionQueue(actions)
	n.terminal = len(actions) == 0
	n.exhausted = n.terminal

	t.nodes = []node{n}
	t.best = Estimate{Value: rootValue, State: start}
	t.history = nil
	t.iterations, t.expansions, t.invalid, t.failures = 0, 0, 0, 0

	t.rollout = t.custom
	if t.rollout == nil {
		t.rollout = newRollout(t.config, rand.New(rand.NewSource(t.config.Seed)))
	}
}

func (t *Tree) run(ctx context.Context) (StopReason, error) {
	if t.nodes[root].terminal {
		return StopTerminal, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return StopCancelled, err
		}
		if t.nodes[root].exhausted {
			return StopExhausted, nil
		}
		if t.expansions >= t.config.MaxSteps {
			return StopMaxSteps, nil
		}

		id, err := t.selectThenExpand(ctx)
		if err != nil {
			return StopCancelled, err
		}
		if id == nilNode { // Nothing expanded; select again
			continue
		}

		value, err := t.simulate(ctx, id)
		if err != nil {
			return StopCancelled, err
		}
		t.refreshExhausted(id)
		t.record(id, value)

		if t.nodes[id].depth >= t.config.MaxSearchDepth {
			return StopDepth, nil
		}
		if t.converged() {
			return StopConverged, nil
		}
	}
}

// selectThenExpand descends by PUCT to the first node with unexpanded
// actions and expands its heaviest one. It returns nilNode when the action
// was invalid or the descent hit a dead end.
func (t *Tree) selectThenExpand(ctx context.Context) (NodeID, error) {
	id := root
	for {
		n := &t.nodes[id]
		if n.queue.Len() > 0 {
			return t.expand(ctx, id, n.queue.pop())
		}
		next := t.bestChild(id)
		if next == nilNode {
			t.refreshExhausted(id)
			return nilNode, nil
		}
		id = next
	}
}

func (t *Tree) expand(ctx context.Context, parent NodeID, a sentence.Action) (NodeID, error) {
	p := &t.nodes[parent]
	state, err := t.game.Apply(ctx, a, p.state)
	if errors.Is(err, sentence.ErrInvalidAction) {
		t.invalid++
		t.metrics.AddInvalidAction()
		log.Warn().Err(err).Msgf("discarding action %v at node %d", a, parent)
		t.refreshExhausted(parent)
		return nilNode, nil
	}
	if err != nil && ctx.Err() != nil {
		return nilNode, ctx.Err()
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, newNode(parent, a, state, p.depth+1))
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	t.expansions++
	t.metrics.AddExpansion()

	if err != nil {
		t.fail(id, err)
		return id, nil
	}

	child := &t.nodes[id]
	if child.depth >= t.config.MaxSearchDepth {
		child.terminal = true
		return id, nil
	}
	actions := t.game.PossibleActions(state)
	child.queue = newActionQueue(actions)
	child.terminal = len(actions) == 0
	return id, nil
}

// simulate rolls out from a new node and backs the value up to the root.
// Failed nodes are worth -Inf and back up nothing.
func (t *Tree) simulate(ctx context.Context, id NodeID) (float64, error) {
	if t.nodes[id].failed {
		return t.nodes[id].value(t.config.Backup), nil
	}

	est, err := t.rollout.Estimate(ctx, t.game, t.nodes[id].state)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		t.fail(id, err)
		return t.nodes[id].value(t.config.Backup), nil
	}

	t.backup(id, est.Value)
	if est.Value > t.best.Value {
		est.Trace = append(t.path(id), est.Trace...)
		t.best = est
	}
	return est.Value, nil
}

func (t *Tree) backup(id NodeID, value float64) {
	for id != nilNode {
		n := &t.nodes[id]
		n.update(value)
		id = n.parent
	}
}

func (t *Tree) fail(id NodeID, err error) {
	n := &t.nodes[id]
	n.failed = true
	n.exhausted = true
	n.queue = newActionQueue(nil)
	t.failures++
	t.metrics.AddFailure()
	log.Warn().Err(err).Msgf("node %d failed after %v", id, n.action)
}

// refreshExhausted marks id and then its ancestors exhausted for as long as
// nothing selectable remains below them.
func (t *Tree) refreshExhausted(id NodeID) {
	for id != nilNode {
		n := &t.nodes[id]
		if !n.exhausted {
			if !t.spent(n) {
				return
			}
			n.exhausted = true
		}
		id = n.parent
	}
}

func (t *Tree) spent(n *node) bool {
	if n.terminal || n.failed {
		return true
	}
	if n.queue.Len() > 0 {
		return false
	}
	for _, c := range n.children {
		if t.nodes[c].selectable() {
			return false
		}
	}
	return true
}

func (t *Tree) record(id NodeID, value float64) {
	t.iterations++
	best := t.rootBest()
	t.history = append(t.history, best)

	n := &t.nodes[id]
	t.metrics.AddIteration(metrics.IterationRecord{
		Iteration: t.iterations,
		Node:      int(id),
		Depth:     n.depth,
		Value:     value,
		RootBest:  best,
	})
	if t.config.Verbose {
		log.Debug().Msgf("iteration %d: node %d at depth %d via %v valued %.4f, root best %.4f",
			t.iterations, id, n.depth, n.action, value, best)
	}
}

func (t *Tree) rootBest() float64 {
	best := t.nodes[root].value(t.config.Backup)
	if len(t.nodes[root].children) > 0 {
		best = t.nodes[t.nodes[root].children[0]].value(t.config.Backup)
	}
	for _, c := range t.nodes[root].children {
		best = max(best, t.nodes[c].value(t.config.Backup))
	}
	return best
}

// converged reports whether the root's best child gained less than the
// threshold over the last window iterations.
func (t *Tree) converged() bool {
	window := t.config.ImprovementWindow
	if t.config.ImprovementThreshold <= 0 || len(t.history) <= window {
		return false
	}
	now, then := t.history[len(t.history)-1], t.history[len(t.history)-1-window]
	return now-then < t.config.ImprovementThreshold
}

// bestNode returns the visited node below the root with the highest
// aggregate, the lowest ID on ties, or the root when none was visited.
func (t *Tree) bestNode() NodeID {
	best := root
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]
		if n.failed || n.visits == 0 {
			continue
		}
		if best == root || n.value(t.config.Backup) > t.nodes[best].value(t.config.Backup) {
			best = NodeID(i)
		}
	}
	return best
}

func (t *Tree) path(id NodeID) []sentence.Action {
	var path []sentence.Action
	for ; id != root && id != nilNode; id = t.nodes[id].parent {
		path = append(path, t.nodes[id].action)
	}
	slices.Reverse(path)
	return path
}

func (t *Tree) result(rootValue float64, stop StopReason) Result {
	id := t.bestNode()
	value := rootValue
	if id != root {
		value = t.nodes[id].value(t.config.Backup)
	}
	return Result{
		Node:           id,
		State:          t.nodes[id].state,
		Path:           t.path(id),
		Value:          value,
		Best:           t.best,
		Iterations:     t.iterations,
		Expansions:     t.expansions,
		InvalidActions: t.invalid,
		Failures:       t.failures,
		Stop:           stop,
	}
}
