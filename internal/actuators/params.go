// Package actuators holds the controllers behind the output manager's
// classes: the LED strip, the vibration motor and audio playback.
package actuators

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
)

// Palette is the set of named colours quest documents may use.
var Palette = map[string]hw.Color{
	"off":        {R: 0, G: 0, B: 0},
	"white":      {R: 255, G: 255, B: 255},
	"green":      {R: 12, G: 255, B: 28},
	"blue":       {R: 0, G: 0, B: 255},
	"yellow":     {R: 255, G: 255, B: 0},
	"orange-red": {R: 255, G: 120, B: 0},
	"red":        {R: 255, G: 0, B: 0},
}

// ParseColor accepts a palette name or #rrggbb.
func ParseColor(s string) (hw.Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if c, ok := Palette[name]; ok {
		return c, nil
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err == nil {
			return hw.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
		}
	}
	return hw.Color{}, fmt.Errorf("unknown color %q", s)
}

func stringParam(params map[string]any, key, def string) (string, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

func numberParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

func intParam(params map[string]any, key string, def int) (int, error) {
	f, err := numberParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return int(f), nil
}

// secondsParam reads a duration given in seconds.
func secondsParam(params map[string]any, key string, def time.Duration) (time.Duration, error) {
	f, err := numberParam(params, key, def.Seconds())
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return time.Duration(f * float64(time.Second)), nil
}
