// Package schedcore implements the deadline-ordered work queue and the
// fixed-size worker pool that drains it.
package schedcore

import (
	"container/heap"
	"sync"
	"time"

	"github.com/cansrv/cansrv/internal/metrics"
)

// WorkItem is one scheduled invocation of an action.
type WorkItem struct {
	Deadline     time.Time
	Priority     int
	Sequence     uint64
	DropIfMissed bool
	Action       func()
}

// itemHeap orders by (deadline, -priority, sequence): earliest deadline
// first, ties broken by higher priority, then by arrival order.
type itemHeap []*WorkItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if !h[i].Deadline.Equal(h[j].Deadline) {
		return h[i].Deadline.Before(h[j].Deadline)
	}
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(*WorkItem))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is a deadline-priority min-heap guarded by a mutex and condition
// variable. Workers block on Pop until an item is due or the queue closes.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    itemHeap
	sequence uint64
	closed   bool
}

func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue schedules action to run as soon as a worker is free, at the
// given priority (0-9, higher runs first among equally-due items).
func (q *Queue) Enqueue(priority int, action func()) uint64 {
	return q.EnqueueAt(time.Now(), priority, false, action)
}

// EnqueueAt schedules action to run no earlier than deadline. If
// dropIfMissed is true, a worker that dequeues the item after its
// deadline has passed skips it silently instead of running it late.
func (q *Queue) EnqueueAt(deadline time.Time, priority int, dropIfMissed bool, action func()) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sequence++
	seq := q.sequence
	heap.Push(&q.items, &WorkItem{
		Deadline:     deadline,
		Priority:     priority,
		Sequence:     seq,
		DropIfMissed: dropIfMissed,
		Action:       action,
	})
	metrics.SetQueueDepth(float64(len(q.items)))
	q.cond.Signal()
	return seq
}

// Pop blocks until an item's deadline has arrived and returns it, or
// returns ok=false once the queue has been closed. Items still queued at
// Close are never returned.
func (q *Queue) Pop() (item *WorkItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return nil, false
		}

		if len(q.items) == 0 {
			q.cond.Wait()
			continue
		}

		next := q.items[0]
		now := time.Now()
		if now.Before(next.Deadline) {
			wait := next.Deadline.Sub(now)
			q.waitTimeout(wait)
			continue
		}

		heap.Pop(&q.items)
		metrics.SetQueueDepth(float64(len(q.items)))
		if lateness := now.Sub(next.Deadline); lateness > 0 {
			metrics.RecordQueueLatency(lateness.Seconds())
		}

		if next.DropIfMissed && now.After(next.Deadline) {
			continue
		}

		return next, true
	}
}

// waitTimeout releases the lock and blocks until either cond.Signal() is
// called or d elapses, whichever comes first.
func (q *Queue) waitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.cond.Wait()
}

// Len reports the current number of items waiting in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed; from then on Pop returns ok=false, and
// items still queued are not run.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
