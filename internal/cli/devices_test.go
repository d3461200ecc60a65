package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/QuestBox/internal/config"
)

const devicesBox = `
version: 1
box:
  id: attic-box
devices:
  - type: expander_button
    value: red
    pin: 3
  - type: gpio_button
    value: hint
    pin: 26
  - type: rotary_encoder
    name: rotary_encoder_picture
    clk_pin: 5
    dt_pin: 6
    button_pin: 13
  - type: distance_sensor
    trigger_pin: 23
    echo_pin: 24
audio:
  enabled: false
`

func TestDevices_Text(t *testing.T) {
	cfg, err := config.Parse([]byte(devicesBox))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, runDevices(&RootOptions{Format: "text"}, cfg, buf))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "mcp23017 0x20 pin 3")
	assert.Contains(t, out, "gpio 26")
	assert.Contains(t, out, "rotary_encoder_picture")
	assert.Contains(t, out, "gpio trigger 23 echo 24")
	assert.Contains(t, out, "outputs: [light sound vibration]")
}

func TestDevices_JSON(t *testing.T) {
	cfg, err := config.Parse([]byte(devicesBox))
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, runDevices(&RootOptions{Format: "json"}, cfg, buf))

	var report DevicesReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "attic-box", report.Box)
	require.Len(t, report.Devices, 4)
	assert.Equal(t, config.DeviceExpanderButton, report.Devices[0].Type)
	assert.Equal(t, []string{"light", "sound", "vibration"}, report.Outputs)
}

func TestDevices_OutputsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Outputs.LED.Enabled = false
	cfg.Outputs.Vibration.Enabled = false

	buf := &bytes.Buffer{}
	require.NoError(t, runDevices(&RootOptions{Format: "json"}, cfg, buf))

	var report DevicesReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Empty(t, report.Devices)
	assert.Equal(t, []string{"sound"}, report.Outputs)
}
