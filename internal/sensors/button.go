package sensors

import "time"

// LevelFunc reads one digital line; true means high.
type LevelFunc func() (bool, error)

// Button is an active-low push button with a pull-up: pressed reads low.
type Button struct {
	read     LevelFunc
	debounce *Debouncer
	primed   bool
	pressed  bool
}

func NewButton(read LevelFunc, window time.Duration) *Button {
	return &Button{read: read, debounce: NewDebouncer(window)}
}

// Poll samples the line and reports true exactly once per press, on the
// released to pressed transition. The first sample only records the state,
// so a button held at start-up does not count.
func (b *Button) Poll() (bool, error) {
	level, err := b.read()
	if err != nil {
		return false, err
	}

	pressed := !b.debounce.Update(level)
	if !b.primed {
		b.primed = true
		b.pressed = pressed
		return false, nil
	}

	edge := pressed && !b.pressed
	b.pressed = pressed
	return edge, nil
}
