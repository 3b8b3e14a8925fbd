package worker

import "container/heap"

// jobHeap is a container/heap priority queue ordered by Priority, with
// enqueue order as the tie-breaker so same-priority jobs stay FIFO.
type jobHeap []*Job

func (q jobHeap) Len() int { return len(q) }

func (q jobHeap) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority < q[j].Priority
	}
	return q[i].enqueuedAt < q[j].enqueuedAt
}

func (q jobHeap) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobHeap) Push(x any) { *q = append(*q, x.(*Job)) }

func (q *jobHeap) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*jobHeap)(nil)

func heapPush(h *jobHeap, j *Job) { heap.Push(h, j) }

func heapPop(h *jobHeap) *Job { return heap.Pop(h).(*Job) }
