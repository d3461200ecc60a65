package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBox = `
version: 1
box:
  id: attic-box
  games_dir: /srv/games
input:
  loop_delay: 20ms
devices:
  - type: expander_button
    value: red
    pin: 3
  - type: gpio_button
    value: hint
    pin: 26
  - type: gyro
    threshold: 1.8
  - type: rotary_encoder
    name: rotary_encoder_number
    clk_pin: 5
    dt_pin: 6
    button_pin: 13
  - type: distance_sensor
    trigger_pin: 23
    echo_pin: 24
    interval: 1s
  - type: joystick
    x_channel: 2
    y_channel: 3
    threshold: 0.3
    calibration: 500ms
cues:
  match:
    - actuator: light
      mode: static
      color: white
storage:
  driver: sqlite
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleBox))
	require.NoError(t, err)

	assert.Equal(t, "attic-box", cfg.Box.ID)
	assert.Equal(t, 20*time.Millisecond, cfg.Input.LoopDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Input.Debounce, "default kept")
	assert.Equal(t, 256, cfg.Input.QueueSize)
	assert.Equal(t, 32, cfg.Outputs.LED.Pixels)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)

	require.Len(t, cfg.Devices, 6)
	assert.Equal(t, "expander_button:red", cfg.Devices[0].Label())
	assert.Equal(t, 1.8, cfg.Devices[2].Threshold)
	assert.Equal(t, "rotary_encoder_number", cfg.Devices[3].Label())
	assert.Equal(t, time.Second, cfg.Devices[4].Interval)
	assert.Equal(t, 2, cfg.Devices[5].XChannel)
	assert.Equal(t, 3, cfg.Devices[5].YChannel)
	assert.Equal(t, 500*time.Millisecond, cfg.Devices[5].Calibration)

	require.Len(t, cfg.Cues.Match, 1)
	assert.Equal(t, "white", cfg.Cues.Match[0]["color"])
	assert.Len(t, cfg.Cues.Mismatch, 2, "unset cues keep defaults")
}

func TestParse_RejectsBadVersion(t *testing.T) {
	_, err := Parse([]byte("version: 2\nbox:\n  id: x\n"))
	assert.ErrorContains(t, err, "unsupported box.yaml version")

	_, err = Parse([]byte("box:\n  id: x\n"))
	assert.Error(t, err, "version is required")
}

func TestParse_RejectsBadDevices(t *testing.T) {
	cases := map[string]string{
		"unknown type":    "  - type: joystick\n",
		"button no value": "  - type: expander_button\n    pin: 1\n",
		"pin range":       "  - type: expander_button\n    value: red\n    pin: 16\n",
		"encoder no name": "  - type: rotary_encoder\n    clk_pin: 1\n    dt_pin: 2\n",
		"shared pins":     "  - type: distance_sensor\n    trigger_pin: 4\n    echo_pin: 4\n",
		"adc channel":     "  - type: joystick\n    x_channel: 8\n    y_channel: 1\n",
		"same channel":    "  - type: joystick\n    x_channel: 2\n    y_channel: 2\n",
		"stick threshold": "  - type: joystick\n    threshold: 0.5\n",
	}
	for name, dev := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte("version: 1\ndevices:\n" + dev))
			assert.ErrorContains(t, err, "devices[0]")
		})
	}
}

func TestParse_JoystickDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\ndevices:\n  - type: joystick\n"))
	require.NoError(t, err)
	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "joystick", cfg.Devices[0].Label())
	assert.Zero(t, cfg.Devices[0].XChannel)
	assert.Zero(t, cfg.Devices[0].YChannel)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("QUESTBOX_BOX_ID", "from-env")
	t.Setenv("QUESTBOX_STORAGE_DRIVER", "postgres")
	t.Setenv("QUESTBOX_PG_PORT", "6543")

	cfg, err := Parse([]byte("version: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Box.ID)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, 6543, cfg.Storage.Postgres.Port)
}

func TestParse_UnknownStorageDriver(t *testing.T) {
	_, err := Parse([]byte("version: 1\nstorage:\n  driver: redis\n"))
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestLoadBoxConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleBox), 0600))

	cfg, err := LoadBoxConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/games", cfg.Box.GamesDir)

	_, err = LoadBoxConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
