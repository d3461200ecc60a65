package game

import (
	"sync"
	"time"
)

// Deadline fires once after a path's time limit. Its goroutine owns the
// timer; the engine only observes Expired and Fired.
type Deadline struct {
	start   time.Time
	limit   time.Duration
	expired chan struct{}
	cancel  chan struct{}
	done    chan struct{}
	once    sync.Once
}

// StartDeadline starts the timer.
func StartDeadline(limit time.Duration) *Deadline {
	d := &Deadline{
		start:   time.Now(),
		limit:   limit,
		expired: make(chan struct{}),
		cancel:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Deadline) run() {
	defer close(d.done)
	t := time.NewTimer(d.limit)
	defer t.Stop()
	select {
	case <-t.C:
		close(d.expired)
	case <-d.cancel:
	}
}

// Expired is closed when the limit passes.
func (d *Deadline) Expired() <-chan struct{} { return d.expired }

// Fired reports whether the limit has passed.
func (d *Deadline) Fired() bool {
	select {
	case <-d.expired:
		return true
	default:
		return false
	}
}

// Cancel stops the timer and waits for its goroutine. It reports whether
// the deadline was cancelled before firing.
func (d *Deadline) Cancel() bool {
	d.once.Do(func() { close(d.cancel) })
	<-d.done
	return !d.Fired()
}

// Remaining is the time left, never negative.
func (d *Deadline) Remaining() time.Duration {
	left := d.limit - time.Since(d.start)
	if left < 0 || d.Fired() {
		return 0
	}
	return left
}

// Elapsed is the time since the deadline started.
func (d *Deadline) Elapsed() time.Duration {
	return time.Since(d.start)
}
