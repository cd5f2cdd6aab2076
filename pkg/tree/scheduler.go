package tree

import "sync/atomic"

// Scheduler defers work until the current update cycle has finished.
// Implementations must not run fn synchronously inside Defer.
type Scheduler interface {
	Defer(fn func())
}

// Queue is a FIFO Scheduler drained explicitly by the host after each
// update cycle.
type Queue struct {
	pending []func()
}

// Defer appends fn to the queue.
func (q *Queue) Defer(fn func()) {
	q.pending = append(q.pending, fn)
}

// Len returns the number of pending callbacks.
func (q *Queue) Len() int {
	return len(q.pending)
}

// Flush runs every pending callback in order and returns how many ran.
// Callbacks deferred while flushing run in the same call.
func (q *Queue) Flush() int {
	n := 0
	for len(q.pending) > 0 {
		fn := q.pending[0]
		q.pending = q.pending[1:]
		fn()
		n++
	}
	q.pending = nil
	return n
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Defer calls f(fn).
func (f SchedulerFunc) Defer(fn func()) {
	f(fn)
}

// lifetime is captured by deferred callbacks so they can be dropped once
// the flattener that scheduled them is closed.
type lifetime struct {
	closed atomic.Bool
}

func (l *lifetime) guard(fn func()) func() {
	return func() {
		if l.closed.Load() {
			return
		}
		fn()
	}
}
