package steps

import (
	"fmt"
	"sort"
)

// Kind tells sensor steps from actuator steps.
type Kind string

const (
	KindSensor   Kind = "sensor"
	KindActuator Kind = "actuator"
)

// Canonical is a validated step with aliases resolved. Params holds every
// field except the discriminator key.
type Canonical struct {
	Kind   Kind           `json:"kind"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Normalize validates a raw step. It never modifies raw.
func Normalize(raw map[string]any) (Canonical, error) {
	sensor, hasSensor := raw["sensor"]
	actuator, hasActuator := raw["actuator"]

	switch {
	case hasSensor && hasActuator:
		return Canonical{}, &ValidationError{Reason: "step has both sensor and actuator"}
	case hasSensor:
		name, ok := sensor.(string)
		if !ok || name == "" {
			return Canonical{}, &ValidationError{Reason: "sensor must be a non-empty string"}
		}
		return normalizeSensor(name, raw)
	case hasActuator:
		class, ok := actuator.(string)
		if !ok || class == "" {
			return Canonical{}, &ValidationError{Reason: "actuator must be a non-empty string"}
		}
		return normalizeActuator(class, raw)
	default:
		return Canonical{}, &ValidationError{Reason: "step has neither sensor nor actuator"}
	}
}

func normalizeSensor(name string, raw map[string]any) (Canonical, error) {
	spec, ok := registry[name]
	if !ok {
		return Canonical{}, &ValidationError{Type: name, unknown: true}
	}

	params := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "sensor" {
			continue
		}
		canonical := k
		if alias, ok := spec.Aliases[k]; ok {
			canonical = alias
		}
		if _, dup := params[canonical]; dup {
			return Canonical{}, &ValidationError{Type: name, Reason: fmt.Sprintf("field %q given more than once", canonical)}
		}
		params[canonical] = v
	}

	var missing []string
	for _, f := range spec.Required {
		if _, ok := params[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Canonical{}, &ValidationError{Type: name, Missing: missing}
	}

	return Canonical{Kind: KindSensor, Type: name, Params: params}, nil
}

func normalizeActuator(class string, raw map[string]any) (Canonical, error) {
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "actuator" {
			params[k] = v
		}
	}

	if mode, ok := params["mode"]; ok {
		if s, isString := mode.(string); !isString || s == "" {
			return Canonical{}, &ValidationError{Type: class, Reason: "mode must be a non-empty string"}
		}
	} else if class != ClassSound {
		return Canonical{}, &ValidationError{Type: class, Missing: []string{"mode"}}
	}

	if d, ok := params["duration"]; ok {
		if _, isNumber := Number(d); !isNumber {
			return Canonical{}, &ValidationError{Type: class, Reason: "duration must be a number of seconds"}
		}
	}

	return Canonical{Kind: KindActuator, Type: class, Params: params}, nil
}

// Step is the decoded form of a step: SensorStep or ActuatorStep.
type Step interface {
	Kind() Kind
}

// SensorStep is an activation the player must perform. Params includes the
// expected "value" plus any metadata to match.
type SensorStep struct {
	Type   string
	Params map[string]any
}

func (SensorStep) Kind() Kind { return KindSensor }

// Value is the expected primary value.
func (s SensorStep) Value() any { return s.Params["value"] }

// ActuatorStep is an effect the box performs.
type ActuatorStep struct {
	Type     string
	Mode     string
	Color    string
	Duration float64
	Params   map[string]any
}

func (ActuatorStep) Kind() Kind { return KindActuator }

// Decode validates raw and returns its typed form.
func Decode(raw map[string]any) (Step, error) {
	c, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return c.Step(), nil
}

// Step converts a canonical step to its typed form.
func (c Canonical) Step() Step {
	if c.Kind == KindSensor {
		return SensorStep{Type: c.Type, Params: c.Params}
	}
	a := ActuatorStep{Type: c.Type, Params: c.Params}
	a.Mode, _ = c.Params["mode"].(string)
	a.Color, _ = c.Params["color"].(string)
	a.Duration, _ = Number(c.Params["duration"])
	return a
}

// Number reports the value of any Go numeric type as a float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
