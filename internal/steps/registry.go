// Package steps validates and normalises the steps of a quest document.
// A step is either a sensor step, which the player must perform, or an
// actuator step, which the box performs. Sensor steps are checked against a
// fixed registry of sensor types; actuator steps are handed to the output
// side as they are.
package steps

import "sort"

// Spec describes the fields of one sensor type.
type Spec struct {
	// Required fields must be present after aliases are applied.
	Required []string
	// Aliases maps alternative field names to their canonical name.
	Aliases map[string]string
}

var registry = map[string]Spec{
	"button": {
		Required: []string{"value"},
		Aliases: map[string]string{
			"count":   "times",
			"presses": "times",
			"num":     "times",
		},
	},
	"joystick":               {Required: []string{"value"}},
	"distance_sensor":        {Required: []string{"value"}},
	"gyro":                   {Required: []string{"value"}},
	"rotary_encoder_number":  {Required: []string{"value"}},
	"rotary_encoder_picture": {Required: []string{"value"}},
}

// Lookup returns the registry entry of a sensor type.
func Lookup(sensorType string) (Spec, bool) {
	s, ok := registry[sensorType]
	return s, ok
}

// SensorTypes lists every registered sensor type, sorted.
func SensorTypes() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Actuator classes understood by the output manager.
const (
	ClassLight     = "light"
	ClassVibration = "vibration"
	ClassSound     = "sound"
)
