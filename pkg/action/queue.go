package action

import (
	"sync"

	"github.com/linkpm/linkpm-go/pkg/log"
)

// Queue is an unbounded FIFO of pending actions.
//
// Enqueue holds the lock only long enough to append and never blocks on
// the consumer, so it is safe to call from interrupt bottom halves.
type Queue struct {
	mu      sync.Mutex
	items   []Kind
	stopped bool

	// notify has capacity 1: one pending wake-up covers any number of
	// enqueues made before the worker drains.
	notify chan struct{}

	recorder *log.Recorder
}

// NewQueue creates an empty queue. rec may be nil.
func NewQueue(rec *log.Recorder) *Queue {
	return &Queue{
		notify:   make(chan struct{}, 1),
		recorder: rec,
	}
}

// Enqueue appends kind and signals the worker.
func (q *Queue) Enqueue(kind Kind) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrQueueStopped
	}
	q.items = append(q.items, kind)
	q.mu.Unlock()

	q.recorder.Action(kind.String(), log.PhaseQueued, 0, nil)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the pending actions in queue order.
func (q *Queue) Pending() []Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Kind, len(q.items))
	copy(out, q.items)
	return out
}

// pop removes and returns the oldest action.
func (q *Queue) pop() (Kind, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0, false
	}
	k := q.items[0]
	q.items[0] = 0
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return k, true
}

// close rejects further enqueues and returns what was still pending.
func (q *Queue) close() []Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	left := q.items
	q.items = nil
	return left
}

// reopen accepts enqueues again after a close.
func (q *Queue) reopen() {
	q.mu.Lock()
	q.stopped = false
	q.mu.Unlock()
}

var _ Enqueuer = (*Queue)(nil)
