package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// quest
	"quest.loaded":  {},
	"quest.started": {},
	"quest.won":     {},
	"quest.lost":    {},
	"quest.aborted": {},

	// path
	"path.started":   {},
	"path.succeeded": {},
	"path.failed":    {},
	"path.timed_out": {},

	// step
	"step.matched":    {},
	"step.mismatched": {},
	"step.invalid":    {},
	"hint.requested":  {},

	// narration
	"narration.played":  {},
	"narration.missing": {},

	// timer
	"timer.started":   {},
	"timer.expired":   {},
	"timer.cancelled": {},

	// sensors
	"sensor.input":   {},
	"sensor.rotated": {},
	"input.injected": {},
	"input.dropped":  {},

	// outputs
	"output.dispatched": {},
	"output.dropped":    {},
	"output.error":      {},

	// operator
	"operator.hint":  {},
	"operator.input": {},

	// device
	"device.connected": {},
	"device.error":     {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate rejects event names outside the allow-list.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
