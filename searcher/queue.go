package searcher

import (
	"container/heap"

	"macaronic/sentence"
)

type queued struct {
	action sentence.Action
	seq    int
}

// actionQueue pops the heaviest action first, earlier insertions first on ties.
type actionQueue struct {
	items []queued
	next  int
}

func newActionQueue(actions []sentence.Action) *actionQueue {
	q := &actionQueue{items: make([]queued, 0, len(actions))}
	for _, a := range actions {
		q.items = append(q.items, queued{action: a, seq: q.next})
		q.next++
	}
	heap.Init(q)
	return q
}

func (q *actionQueue) Len() int { return len(q.items) }

func (q *actionQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.action.Weight != b.action.Weight {
		return a.action.Weight > b.action.Weight
	}
	return a.seq < b.seq
}

func (q *actionQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *actionQueue) Push(x any) {
	item := x.(queued)
	q.items = append(q.items, item)
}

func (q *actionQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

func (q *actionQueue) pop() sentence.Action {
	return heap.Pop(q).(queued).action
}
