package steps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ButtonAliases(t *testing.T) {
	for _, alias := range []string{"count", "presses", "num"} {
		t.Run(alias, func(t *testing.T) {
			raw := map[string]any{"sensor": "button", "value": "red", alias: 2}
			c, err := Normalize(raw)
			require.NoError(t, err)

			assert.Equal(t, KindSensor, c.Kind)
			assert.Equal(t, "button", c.Type)
			assert.Equal(t, map[string]any{"value": "red", "times": 2}, c.Params)
			assert.Contains(t, raw, alias, "input left untouched")
		})
	}
}

func TestNormalize_AliasConflict(t *testing.T) {
	_, err := Normalize(map[string]any{"sensor": "button", "value": "red", "count": 2, "times": 3})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, "more than once")
}

func TestNormalize_Idempotent(t *testing.T) {
	c1, err := Normalize(map[string]any{"sensor": "button", "value": "red", "presses": 1})
	require.NoError(t, err)

	again := map[string]any{"sensor": c1.Type}
	for k, v := range c1.Params {
		again[k] = v
	}
	c2, err := Normalize(again)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestNormalize_UnknownSensor(t *testing.T) {
	_, err := Normalize(map[string]any{"sensor": "laser", "value": "on"})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, `"laser"`)
}

func TestNormalize_MissingRequired(t *testing.T) {
	for _, typ := range SensorTypes() {
		_, err := Normalize(map[string]any{"sensor": typ})

		var verr *ValidationError
		require.True(t, errors.As(err, &verr), typ)
		assert.Equal(t, []string{"value"}, verr.Missing)
		assert.False(t, errors.Is(err, ErrUnknownType))
	}
}

func TestNormalize_Discriminator(t *testing.T) {
	cases := map[string]map[string]any{
		"neither":        {"value": "red"},
		"both":           {"sensor": "button", "actuator": "light", "value": "red"},
		"sensor not str": {"sensor": 3, "value": "red"},
		"empty actuator": {"actuator": "", "mode": "static"},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(raw)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNormalize_Actuator(t *testing.T) {
	c, err := Normalize(map[string]any{"actuator": "light", "mode": "blink", "color": "red", "duration": 2})
	require.NoError(t, err)
	assert.Equal(t, KindActuator, c.Kind)
	assert.Equal(t, "light", c.Type)

	_, err = Normalize(map[string]any{"actuator": "vibration"})
	assert.ErrorContains(t, err, "mode")

	_, err = Normalize(map[string]any{"actuator": "sound", "file": "victory"})
	assert.NoError(t, err, "sound needs no mode")

	_, err = Normalize(map[string]any{"actuator": "light", "mode": "static", "duration": "long"})
	assert.ErrorContains(t, err, "duration")
}

func TestDecode(t *testing.T) {
	s, err := Decode(map[string]any{"sensor": "rotary_encoder_picture", "value": "key"})
	require.NoError(t, err)
	sensor, ok := s.(SensorStep)
	require.True(t, ok)
	assert.Equal(t, "key", sensor.Value())

	s, err = Decode(map[string]any{"actuator": "vibration", "mode": "rattle", "duration": 1.5})
	require.NoError(t, err)
	act, ok := s.(ActuatorStep)
	require.True(t, ok)
	assert.Equal(t, "rattle", act.Mode)
	assert.Equal(t, 1.5, act.Duration)
	assert.Equal(t, KindActuator, act.Kind())

	_, err = Decode(map[string]any{"sensor": "gyro"})
	assert.Error(t, err)
}

func TestSensorTypes(t *testing.T) {
	assert.Equal(t, []string{
		"button", "distance_sensor", "gyro", "joystick",
		"rotary_encoder_number", "rotary_encoder_picture",
	}, SensorTypes())

	spec, ok := Lookup("button")
	require.True(t, ok)
	assert.Equal(t, "times", spec.Aliases["presses"])
}
