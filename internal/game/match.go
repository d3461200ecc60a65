package game

import (
	"reflect"

	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/steps"
)

// Control values a button may carry outside any solution.
const (
	ControlHint   = "hint"
	ControlRepeat = "repeat"
)

// IsControl reports whether ev asks for the hint rather than attempting a
// step.
func IsControl(ev input.Event) bool {
	if ev.DeviceType != input.DeviceButton {
		return false
	}
	v, _ := ev.Value.(string)
	return v == ControlHint || v == ControlRepeat
}

// Matches reports whether ev satisfies step. The device type must equal the
// step type, and every declared field must be equal: "value" against the
// event value, anything else against the metadata of the same name.
func Matches(step steps.SensorStep, ev input.Event) bool {
	if ev.DeviceType != step.Type {
		return false
	}
	for key, want := range step.Params {
		var got any
		if key == "value" {
			got = ev.Value
		} else {
			v, ok := ev.Metadata[key]
			if !ok {
				return false
			}
			got = v
		}
		if !equal(want, got) {
			return false
		}
	}
	return true
}

// equal compares numbers by value so a JSON 3 matches an int 3.
func equal(want, got any) bool {
	if w, ok := steps.Number(want); ok {
		g, ok := steps.Number(got)
		return ok && w == g
	}
	return reflect.DeepEqual(want, got)
}
