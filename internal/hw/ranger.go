package hw

import (
	"time"
)

// Ranger measures the round trip time of an ultrasonic ping.
type Ranger interface {
	Echo() (time.Duration, error)
}

// HCSR04 drives an HC-SR04 style sensor: a 10µs trigger pulse, then the echo
// line stays high for the round trip time.
type HCSR04 struct {
	trigger OutputPin
	echo    InputPin
	timeout time.Duration
}

// NewHCSR04 wires a ranger to its pins. timeout bounds both the wait for the
// echo to start and its length.
func NewHCSR04(trigger OutputPin, echo InputPin, timeout time.Duration) *HCSR04 {
	if timeout <= 0 {
		timeout = 40 * time.Millisecond
	}
	trigger.Set(false)
	return &HCSR04{trigger: trigger, echo: echo, timeout: timeout}
}

func (h *HCSR04) Echo() (time.Duration, error) {
	h.trigger.Set(true)
	time.Sleep(10 * time.Microsecond)
	h.trigger.Set(false)

	deadline := time.Now().Add(h.timeout)
	for !h.echo.Read() {
		if time.Now().After(deadline) {
			return 0, ErrEchoTimeout
		}
	}

	start := time.Now()
	deadline = start.Add(h.timeout)
	for h.echo.Read() {
		if time.Now().After(deadline) {
			return 0, ErrEchoTimeout
		}
	}
	return time.Since(start), nil
}
