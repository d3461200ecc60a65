// Package sensors turns raw pin levels and register readings into logical
// sensor states: debounced presses, dial positions, distance bands and
// shakes. Nothing here builds events or owns goroutines; the input package
// polls these types and decides what to report.
package sensors

import "time"

// DefaultDebounce is the settle window for mechanical contacts.
const DefaultDebounce = 100 * time.Millisecond

// Debouncer filters contact bounce on one digital channel. A raw value that
// differs from the stable value only becomes stable after it has been seen
// continuously for the window; a flicker shorter than that never shows.
type Debouncer struct {
	window time.Duration
	now    func() time.Time

	initialized bool
	stable      bool

	pendingSet bool
	pending    bool
	since      time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, now: time.Now}
}

// Update feeds one raw sample and returns the stable value.
func (d *Debouncer) Update(raw bool) bool {
	now := d.now()

	if !d.initialized {
		d.initialized = true
		d.stable = raw
		return d.stable
	}

	if raw == d.stable {
		d.pendingSet = false
		return d.stable
	}

	if !d.pendingSet || d.pending != raw {
		d.pendingSet = true
		d.pending = raw
		d.since = now
	}
	if now.Sub(d.since) >= d.window {
		d.stable = raw
		d.pendingSet = false
	}
	return d.stable
}
