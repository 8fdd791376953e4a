package pdr

import (
	"container/heap"

	"github.com/ic3lab/pdrcheck/internal/term"
)

// Obligation is an induction obligation: a formula that must be shown
// unreachable in one step from the previous frame, together with the
// bookkeeping the scheduler needs to decide what to try next.
// Formula/Frame/Budget are its public state, AnalyzeCTI is a caller-set flag
// that the engine does not read (pushIfInductive treats every obligation the
// same way whatever its value), and score is the scheduler's priority,
// decayed every time the
// same obligation is re-enqueued after a failed attempt, so a retried
// obligation doesn't permanently crowd out fresher ones at its frame.
type Obligation struct {
	Formula    term.Ref
	Frame      int
	Budget     int
	AnalyzeCTI bool

	score int
	index int // maintained by container/heap via Swap; -1 when not queued
}

// scoreDecayUnit scales BumpScore's 1/depth decay; a deeper obligation
// (one at a higher frame index) decays slower,
// since it has already proven harder to resolve and deprioritizing it as
// aggressively as a shallow retry would just thrash the queue.
const scoreDecayUnit = 64

// BumpScore is called whenever this obligation is re-enqueued after its
// induction attempt fails, decreasing its score by an amount proportional
// to 1/depth (depth taken as Frame+1, to keep the divisor positive), so a
// retried obligation sinks below fresh ones at the same frame rather than
// being retried indefinitely ahead of them.
func (o *Obligation) BumpScore() {
	decay := scoreDecayUnit / (o.Frame + 1)
	if decay < 1 {
		decay = 1
	}
	o.score -= decay
}

// obligationHeap implements container/heap.Interface. Obligations with a
// smaller Frame are processed first (lower frames must be pushed before
// higher ones can be attempted); within the same frame, higher score wins,
// so a fresh obligation (score still at its zero default) is tried ahead of
// one that has already been retried and had its score decayed down.
type obligationHeap []*Obligation

func (h obligationHeap) Len() int { return len(h) }

func (h obligationHeap) Less(i, j int) bool {
	if h[i].Frame != h[j].Frame {
		return h[i].Frame < h[j].Frame
	}
	return h[i].score > h[j].score
}

func (h obligationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *obligationHeap) Push(x any) {
	o := x.(*Obligation)
	o.index = len(*h)
	*h = append(*h, o)
}

func (h *obligationHeap) Pop() any {
	old := *h
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	o.index = -1
	*h = old[:n-1]
	return o
}

// ObligationQueue is the induction obligation scheduler: a priority queue
// supporting enqueue, pop-minimum, and a bump operation that re-establishes
// heap order after a priority change without requiring the caller to
// remove-then-reinsert.
type ObligationQueue struct {
	h obligationHeap
}

// NewObligationQueue returns an empty queue.
func NewObligationQueue() *ObligationQueue {
	return &ObligationQueue{}
}

// Enqueue adds o to the queue. o must not already be queued.
func (q *ObligationQueue) Enqueue(o *Obligation) {
	heap.Push(&q.h, o)
}

// Pop removes and returns the highest-priority obligation, or nil if the
// queue is empty.
func (q *ObligationQueue) Pop() *Obligation {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Obligation)
}

// Bump decays o's score and restores heap order. Safe to call on an
// obligation that was just Pop()'d (index == -1): the score still decays,
// heap.Fix is simply skipped since there is no queue position to restore.
func (q *ObligationQueue) Bump(o *Obligation) {
	o.BumpScore()
	if o.index >= 0 {
		heap.Fix(&q.h, o.index)
	}
}

// Len reports the number of queued obligations.
func (q *ObligationQueue) Len() int {
	return q.h.Len()
}

// Formulas returns the Formula of every obligation still queued, for a
// caller (the engine's GC participant) that needs to root them without
// disturbing the queue itself.
func (q *ObligationQueue) Formulas() []term.Ref {
	out := make([]term.Ref, len(q.h))
	for i, o := range q.h {
		out[i] = o.Formula
	}
	return out
}
