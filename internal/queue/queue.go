// Package queue provides the bounded FIFO that carries encoded events from
// producer tasks to the display task.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sweeney/taskpanel/internal/logic"
)

// DefaultCapacity is the queue length used by the daemon.
const DefaultCapacity = 10

var (
	// ErrFull is returned when a send times out on a full queue.
	ErrFull = errors.New("queue full")
	// ErrEmpty is returned when a receive times out on an empty queue.
	ErrEmpty = errors.New("queue empty")
)

// Stats counts queue traffic since creation.
type Stats struct {
	Sent     uint64
	Received uint64
	Full     uint64
	Empty    uint64
}

// Queue is a bounded multi-producer, single-consumer FIFO of events.
// A capacity of 1 gives the single-item-in-flight discipline.
type Queue struct {
	ch chan logic.Event

	sent     atomic.Uint64
	received atomic.Uint64
	full     atomic.Uint64
	empty    atomic.Uint64
}

// New creates a queue holding at most capacity events. Capacities below 1
// are raised to 1.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan logic.Event, capacity)}
}

// TrySend enqueues e without blocking. It returns ErrFull and leaves the
// queue untouched when there is no free slot.
func (q *Queue) TrySend(e logic.Event) error {
	select {
	case q.ch <- e:
		q.sent.Add(1)
		return nil
	default:
		q.full.Add(1)
		return ErrFull
	}
}

// Send enqueues e, waiting up to timeout for a free slot.
// A timeout of zero or less behaves like TrySend.
func (q *Queue) Send(ctx context.Context, e logic.Event, timeout time.Duration) error {
	if timeout <= 0 {
		return q.TrySend(e)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.ch <- e:
		q.sent.Add(1)
		return nil
	case <-timer.C:
		q.full.Add(1)
		return ErrFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryReceive dequeues the oldest event without blocking, or returns ErrEmpty.
func (q *Queue) TryReceive() (logic.Event, error) {
	select {
	case e := <-q.ch:
		q.received.Add(1)
		return e, nil
	default:
		q.empty.Add(1)
		return 0, ErrEmpty
	}
}

// Receive dequeues the oldest event, waiting up to timeout for one to arrive.
// A timeout of zero or less behaves like TryReceive.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (logic.Event, error) {
	if timeout <= 0 {
		return q.TryReceive()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-q.ch:
		q.received.Add(1)
		return e, nil
	case <-timer.C:
		q.empty.Add(1)
		return 0, ErrEmpty
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Stats returns the traffic counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Sent:     q.sent.Load(),
		Received: q.received.Load(),
		Full:     q.full.Load(),
		Empty:    q.empty.Load(),
	}
}
