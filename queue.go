package determ

import "sync"

// queue is an unbounded FIFO between producers and one consumer. Push never
// blocks; items wait in memory until Out is drained. Close flushes what is
// queued and then closes Out. The pump goroutine exits once Out is drained
// after Close.
type queue[T any] struct {
	mu     sync.RWMutex
	closed bool
	in     chan T
	out    chan T
}

func newQueue[T any]() *queue[T] {
	q := &queue[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go q.pump()
	return q
}

// Push appends v and reports false once the queue is closed
func (q *queue[T]) Push(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	q.in <- v
	return true
}

// Out delivers items in push order
func (q *queue[T]) Out() <-chan T {
	return q.out
}

// Close stops accepting items. Calling it again is a no-op.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.in)
	}
}

func (q *queue[T]) pump() {
	defer close(q.out)

	var pending []T
	in := q.in
	for in != nil || len(pending) > 0 {
		var (
			out  chan T
			next T
		)
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}

		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, v)
		case out <- next:
			var zero T
			pending[0] = zero
			pending = pending[1:]
		}
	}
}
