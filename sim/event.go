package sim

import "time"

// Continuation is the remainder of a suspended process. It runs exactly once,
// when the event that carries it becomes due.
type Continuation func()

// EventHandle identifies a scheduled event.
type EventHandle struct {
	Due time.Duration // simulated time at which the event fires
	Seq uint64        // insertion counter, FIFO tiebreak among equal Due
}

// event is immutable once pushed.
type event struct {
	due  time.Duration
	seq  uint64
	next Continuation
}

// EventQueue is a min-heap ordered by (due, seq).
// Implements heap.Interface.
type EventQueue []event

func (q EventQueue) Len() int { return len(q) }

func (q EventQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q EventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *EventQueue) Push(x any) {
	*q = append(*q, x.(event))
}

func (q *EventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = event{} // drop the continuation reference
	*q = old[:n-1]
	return item
}
