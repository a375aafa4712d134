package sim

import "github.com/abhisek/wksim/internal/model"

// queueEntry is one pending review: the simulation step at which the
// subject becomes reviewable.
type queueEntry struct {
	step uint32
	id   model.SubjectID
}

// reviewQueue is a min-heap of pending reviews ordered by step, then
// subject identity. Implements container/heap.Interface.
type reviewQueue []queueEntry

func (q reviewQueue) Len() int { return len(q) }

func (q reviewQueue) Less(i, j int) bool {
	if q[i].step != q[j].step {
		return q[i].step < q[j].step
	}
	return q[i].id < q[j].id
}

func (q reviewQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *reviewQueue) Push(x any) {
	*q = append(*q, x.(queueEntry))
}

func (q *reviewQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
