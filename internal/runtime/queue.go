package runtime

import (
	"sync"
)

// Queue is an unbounded FIFO drained by a single dispatcher goroutine.
// Items reach the sink one at a time, in Enqueue order.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
	paused bool

	sink   func(T)
	onExit func()
	stop   chan struct{}
	done   chan struct{}
}

// NewQueue starts a queue that hands every item to sink.
func NewQueue[T any](sink func(T)) *Queue[T] {
	return newQueue(sink, false, nil)
}

func newQueue[T any](sink func(T), paused bool, onExit func()) *Queue[T] {
	q := &Queue[T]{
		sink:   sink,
		onExit: onExit,
		paused: paused,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.dispatch()
	return q
}

// Enqueue appends ev and wakes the dispatcher. It reports false once the
// queue is closed.
func (q *Queue[T]) Enqueue(ev T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, ev)
	q.cond.Signal()
	return true
}

// SetPaused gates dispatching. Items keep queueing while paused.
func (q *Queue[T]) SetPaused(v bool) {
	q.mu.Lock()
	q.paused = v
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len returns the number of items waiting for dispatch.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the dispatcher. Pending items are dropped; an item already
// handed to the sink finishes normally.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.items = nil
		close(q.stop)
	}
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Done is closed once the dispatcher goroutine has exited.
func (q *Queue[T]) Done() <-chan struct{} { return q.done }

func (q *Queue[T]) dispatch() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for !q.closed && (q.paused || len(q.items) == 0) {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			if q.onExit != nil {
				q.onExit()
			}
			return
		}
		ev := q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		q.sink(ev)
	}
}
