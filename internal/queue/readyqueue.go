// Package queue implements the in-process, priority-ordered ReadyQueue
// that sits between the TaskRegistry's dependency-release sweep and the
// Worker pool.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/sebaskun/taskscheduler/internal/task"
)

// taskHeap is a container/heap.Interface over tasks ordered by
// (priority asc, seq asc); task.Task.Less already encodes that rule.
type taskHeap []*task.Task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*task.Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// ReadyQueue holds tasks whose dependencies are satisfied, ordered by
// priority and, within a priority, by submission order. Pop blocks up
// to a caller-supplied timeout when empty.
//
// Wakeup uses the "close a channel to broadcast" idiom: every Push
// closes the current wake channel and installs a fresh one, so any
// number of goroutines blocked in Pop are released simultaneously.
// A single buffered channel would only wake one of them, stranding
// the rest until the next push.
type ReadyQueue struct {
	mu     sync.Mutex
	items  taskHeap
	wakeCh chan struct{}
	closed bool
}

// New creates an empty ReadyQueue.
func New() *ReadyQueue {
	return &ReadyQueue{
		items:  make(taskHeap, 0),
		wakeCh: make(chan struct{}),
	}
}

// Push adds a ready task and wakes any blocked poppers.
func (q *ReadyQueue) Push(t *task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	heap.Push(&q.items, t)
	q.broadcastLocked()
}

// broadcastLocked must be called with q.mu held.
func (q *ReadyQueue) broadcastLocked() {
	close(q.wakeCh)
	q.wakeCh = make(chan struct{})
}

// Pop removes and returns the highest-priority task. If the queue is
// empty it blocks until a task arrives, the timeout elapses (returning
// false), or ctx is cancelled (returning false).
func (q *ReadyQueue) Pop(ctx context.Context, timeout time.Duration) (*task.Task, bool) {
	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		timerC = timer.C
		defer timer.Stop()
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := heap.Pop(&q.items).(*task.Task)
			q.mu.Unlock()
			return t, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		wake := q.wakeCh
		q.mu.Unlock()

		select {
		case <-wake:
			// loop and re-check under lock
		case <-timerC:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Len reports the number of tasks currently ready to run.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes every blocked Pop permanently; subsequent Pops return
// immediately with ok=false once the queue drains. Used by
// Supervisor.Shutdown.
func (q *ReadyQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcastLocked()
}
