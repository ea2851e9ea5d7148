package searcher

import "math"

// puct scores a child for selection:
//
//	Q + c * P * sqrt(N) / (1 + n)
//
// with Q the child's aggregate value, P its prior weight, N the parent's
// visits and n the child's.
type puct struct {
	numerator float64 // c * sqrt(N)
	backup    BackupType
}

func newPUCT(exploration float64, parentVisits int, backup BackupType) puct {
	return puct{
		numerator: exploration * math.Sqrt(float64(parentVisits)),
		backup:    backup,
	}
}

func (p puct) evaluate(n *node) float64 {
	return n.value(p.backup) + p.numerator*n.action.Weight/float64(1+n.visits)
}

// bestChild returns the selectable child with the highest PUCT score, the
// earliest expanded on ties, or nilNode when none is selectable.
func (t *Tree) bestChild(id NodeID) NodeID {
	parent := &t.nodes[id]
	p := newPUCT(t.config.Exploration, parent.visits, t.config.Backup)

	best, bestScore := nilNode, math.Inf(-1)
	for _, c := range parent.children {
		child := &t.nodes[c]
		if !child.selectable() {
			continue
		}
		if score := p.evaluate(child); best == nilNode || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}
