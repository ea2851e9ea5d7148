package searcher

import (
	"math"

	"macaronic/sentence"
)

// NodeID indexes a node in the tree's arena.
type NodeID int32

const nilNode NodeID = -1

type node struct {
	parent   NodeID
	action   sentence.Action // Swap that led here from parent
	state    sentence.State
	depth    int
	children []NodeID
	queue    *actionQueue // Unexpanded actions

	visits   int
	valueSum float64
	valueMax float64

	terminal  bool // No legal actions at creation, or at the depth limit
	failed    bool // Scoring or rollout failed; never selected
	exhausted bool // Nothing left to expand below
}

func newNode(parent NodeID, action sentence.Action, state sentence.State, depth int) node {
	return node{
		parent:   parent,
		action:   action,
		state:    state,
		depth:    depth,
		queue:    newActionQueue(nil),
		valueMax: math.Inf(-1),
	}
}

func (n *node) update(value float64) {
	n.visits++
	n.valueSum += value
	n.valueMax = math.Max(n.valueMax, value)
}

// value is the node's aggregate under backup. Unvisited and failed nodes
// are worth -Inf.
func (n *node) value(backup BackupType) float64 {
	if n.failed || n.visits == 0 {
		return math.Inf(-1)
	}
	if backup == Max {
		return n.valueMax
	}
	return n.valueSum / float64(n.visits)
}

func (n *node) selectable() bool {
	return !n.failed && !n.exhausted
}
