// Package hw holds the leaf adapters that talk to the box hardware: the
// shared I2C bus, GPIO pins, the I/O expander, the accelerometer, the
// ultrasonic ranger and the LED strip. Everything above this package works
// against the small interfaces declared here, so the Sim types can stand in
// for real devices.
package hw

import (
	"errors"
	"sync"
)

var (
	// ErrEchoTimeout is returned when an ultrasonic echo never starts or never ends.
	ErrEchoTimeout = errors.New("echo timeout")
	// ErrClosed is returned by devices used after Close.
	ErrClosed = errors.New("device closed")
)

// Bus serialises transactions on a shared I2C bus. Several devices with
// different addresses share the wires, so a multi-register read on one must
// not interleave with a transaction on another.
type Bus struct {
	mu sync.Mutex
}

// Do runs fn while holding the bus. The bus is released when fn returns,
// including when it returns an error or panics. Do is not reentrant: calling
// Do from inside fn deadlocks.
func (b *Bus) Do(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn()
}
