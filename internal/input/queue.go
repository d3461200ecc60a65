package input

import (
	"sync"
	"sync/atomic"
)

// Queue is the shared FIFO between every producer (pollers, remote
// injection) and the single consumer. Push never blocks: when the queue is
// full the oldest pending event is discarded to make room.
type Queue struct {
	ch      chan Event
	pushMu  sync.Mutex
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

// Push enqueues e and returns the event it displaced, if any.
func (q *Queue) Push(e Event) (Event, bool) {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()

	select {
	case q.ch <- e:
		return Event{}, false
	default:
	}

	var old Event
	var displaced bool
	select {
	case old = <-q.ch:
		displaced = true
		q.dropped.Add(1)
	default:
	}

	// Only pushers hold pushMu and the consumer only removes, so there is
	// room now.
	q.ch <- e
	return old, displaced
}

// C is the consumer side.
func (q *Queue) C() <-chan Event {
	return q.ch
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Dropped counts events displaced by Push.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Drain discards everything pending and returns how many events it removed.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
