package input

import (
	"time"

	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/sensors"
)

// Device types carried by events.
const (
	DeviceButton   = "button"
	DeviceGyro     = "gyro"
	DeviceDistance = "distance_sensor"
	DeviceJoystick = "joystick"
)

// Polling rates of the dedicated adapters.
const (
	RotaryInterval   = time.Millisecond
	DistanceInterval = 2 * time.Second
)

// ButtonAdapter reports a press of a colour or control button.
type ButtonAdapter struct {
	name   string
	value  string
	meta   map[string]any
	button *sensors.Button
}

func NewButtonAdapter(name, value string, meta map[string]any, b *sensors.Button) *ButtonAdapter {
	return &ButtonAdapter{name: name, value: value, meta: meta, button: b}
}

func (a *ButtonAdapter) Name() string { return a.name }

func (a *ButtonAdapter) Poll() (Event, bool, error) {
	pressed, err := a.button.Poll()
	if err != nil || !pressed {
		return Event{}, false, err
	}
	meta := make(map[string]any, len(a.meta))
	for k, v := range a.meta {
		meta[k] = v
	}
	return NewEvent(DeviceButton, a.value, meta), true, nil
}

// MotionAdapter reports shakes.
type MotionAdapter struct {
	name   string
	motion *sensors.Motion
}

func NewMotionAdapter(name string, m *sensors.Motion) *MotionAdapter {
	return &MotionAdapter{name: name, motion: m}
}

func (a *MotionAdapter) Name() string { return a.name }

func (a *MotionAdapter) Poll() (Event, bool, error) {
	mag, shaking, err := a.motion.Poll()
	if err != nil || !shaking {
		return Event{}, false, err
	}
	return NewEvent(DeviceGyro, "shaking", map[string]any{"magnitude": mag}), true, nil
}

// JoystickAdapter reports pushes of an analog stick. Letting go back to
// centre is not an input.
type JoystickAdapter struct {
	name     string
	joystick *sensors.Joystick
}

func NewJoystickAdapter(name string, j *sensors.Joystick) *JoystickAdapter {
	return &JoystickAdapter{name: name, joystick: j}
}

func (a *JoystickAdapter) Name() string { return a.name }

func (a *JoystickAdapter) Poll() (Event, bool, error) {
	dir, x, y, changed, err := a.joystick.Poll()
	if err != nil || !changed || dir == sensors.Center {
		return Event{}, false, err
	}
	return NewEvent(DeviceJoystick, string(dir), map[string]any{"name": a.name, "x": x, "y": y}), true, nil
}

// RotaryAdapter reports committed dial selections. The device type is the
// dial name, e.g. rotary_encoder_picture. Turning the dial is logged but
// not queued.
type RotaryAdapter struct {
	name   string
	rotary *sensors.Rotary
}

func NewRotaryAdapter(name string, r *sensors.Rotary) *RotaryAdapter {
	return &RotaryAdapter{name: name, rotary: r}
}

func (a *RotaryAdapter) Name() string { return a.name }

func (a *RotaryAdapter) Interval() time.Duration { return RotaryInterval }

func (a *RotaryAdapter) Poll() (Event, bool, error) {
	r, err := a.rotary.Poll()
	if err != nil {
		return Event{}, false, err
	}
	if r.Moved != 0 {
		events.Emit(events.LevelDebug, "sensor.rotated", "", map[string]interface{}{
			"name":      a.name,
			"direction": r.Moved,
			"index":     r.Index,
			"option":    r.Option,
		})
	}
	if !r.Committed {
		return Event{}, false, nil
	}
	return NewEvent(a.name, r.Option, map[string]any{"name": a.name, "index": r.Index}), true, nil
}

// DistanceAdapter reports distance band transitions.
type DistanceAdapter struct {
	name     string
	distance *sensors.Distance
	interval time.Duration
}

func NewDistanceAdapter(name string, d *sensors.Distance, interval time.Duration) *DistanceAdapter {
	if interval <= 0 {
		interval = DistanceInterval
	}
	return &DistanceAdapter{name: name, distance: d, interval: interval}
}

func (a *DistanceAdapter) Name() string { return a.name }

func (a *DistanceAdapter) Interval() time.Duration { return a.interval }

func (a *DistanceAdapter) Poll() (Event, bool, error) {
	band, cm, changed, err := a.distance.Poll()
	if err != nil || !changed {
		return Event{}, false, err
	}
	return NewEvent(DeviceDistance, string(band), map[string]any{"name": a.name, "distance_cm": cm}), true, nil
}
