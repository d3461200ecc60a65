package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Device types accepted in the devices list.
const (
	DeviceExpanderButton = "expander_button"
	DeviceGPIOButton     = "gpio_button"
	DeviceGyro           = "gyro"
	DeviceRotaryEncoder  = "rotary_encoder"
	DeviceDistanceSensor = "distance_sensor"
	DeviceJoystick       = "joystick"
)

// Storage drivers.
const (
	StorageNone     = "none"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// BoxConfig is the top level of box.yaml.
type BoxConfig struct {
	Version   int             `yaml:"version"`
	Box       BoxInfo         `yaml:"box"`
	Bus       BusConfig       `yaml:"bus"`
	Input     InputConfig     `yaml:"input"`
	Devices   []Device        `yaml:"devices"`
	Outputs   OutputsConfig   `yaml:"outputs"`
	Audio     AudioConfig     `yaml:"audio"`
	Game      GameConfig      `yaml:"game"`
	Cues      CuesConfig      `yaml:"cues"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type BoxInfo struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	GamesDir string `yaml:"games_dir"`
}

// BusConfig describes the shared I2C bus and the devices hanging off it.
type BusConfig struct {
	I2CBus               int `yaml:"i2c_bus"`
	ExpanderAddress      int `yaml:"expander_address"`
	AccelerometerAddress int `yaml:"accelerometer_address"`
}

type InputConfig struct {
	LoopDelay time.Duration `yaml:"loop_delay"`
	QueueSize int           `yaml:"queue_size"`
	Debounce  time.Duration `yaml:"debounce"`
}

// Device is one entry of the devices list. Which fields apply depends on Type.
type Device struct {
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Pin   int    `yaml:"pin"`

	ClkPin         int      `yaml:"clk_pin"`
	DtPin          int      `yaml:"dt_pin"`
	ButtonPin      int      `yaml:"button_pin"`
	StepsPerOption int      `yaml:"steps_per_option"`
	Options        []string `yaml:"options"`

	TriggerPin int           `yaml:"trigger_pin"`
	EchoPin    int           `yaml:"echo_pin"`
	Interval   time.Duration `yaml:"interval"`

	Threshold  float64       `yaml:"threshold"`
	Refractory time.Duration `yaml:"refractory"`

	// Joystick channels on the ADC; both zero means X on 0 and Y on 1.
	XChannel    int           `yaml:"x_channel"`
	YChannel    int           `yaml:"y_channel"`
	Calibration time.Duration `yaml:"calibration"`
}

// Label returns the name used in logs for the device.
func (d Device) Label() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Value != "":
		return d.Type + ":" + d.Value
	default:
		return d.Type
	}
}

type OutputsConfig struct {
	QueueSize   int             `yaml:"queue_size"`
	PollTimeout time.Duration   `yaml:"poll_timeout"`
	LED         LEDConfig       `yaml:"led"`
	Vibration   VibrationConfig `yaml:"vibration"`
}

type LEDConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Pixels     int     `yaml:"pixels"`
	Brightness float64 `yaml:"brightness"`
	SPISpeed   int     `yaml:"spi_speed"`
}

type VibrationConfig struct {
	Enabled bool `yaml:"enabled"`
	Pin     int  `yaml:"pin"`
}

type AudioConfig struct {
	Enabled bool     `yaml:"enabled"`
	Player  string   `yaml:"player"`
	Args    []string `yaml:"args"`
}

type GameConfig struct {
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

// CuesConfig holds the actuator steps sent as feedback. Each entry uses the
// same shape as an actuator step in a quest document.
type CuesConfig struct {
	Match    []map[string]any `yaml:"match"`
	Mismatch []map[string]any `yaml:"mismatch"`
	Error    []map[string]any `yaml:"error"`
	Victory  []map[string]any `yaml:"victory"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig configures the operator HTTP API. TLS is used when both the
// certificate and key are set.
type APIConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Listen   string `yaml:"listen"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// TLSEnabled reports whether the API serves HTTPS.
func (c APIConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with every default applied and no devices.
func Default() *BoxConfig {
	return &BoxConfig{
		Version: 1,
		Box:     BoxInfo{ID: "questbox", Name: "QuestBox", GamesDir: "games"},
		Bus:     BusConfig{I2CBus: 1, ExpanderAddress: 0x20, AccelerometerAddress: 0x68},
		Input: InputConfig{
			LoopDelay: 50 * time.Millisecond,
			QueueSize: 256,
			Debounce:  100 * time.Millisecond,
		},
		Outputs: OutputsConfig{
			QueueSize:   64,
			PollTimeout: 100 * time.Millisecond,
			LED:         LEDConfig{Enabled: true, Pixels: 32, Brightness: 0.5, SPISpeed: 2400000},
			Vibration:   VibrationConfig{Enabled: true, Pin: 17},
		},
		Audio: AudioConfig{Enabled: true, Player: "mpg123", Args: []string{"-q"}},
		Game:  GameConfig{PollTimeout: 100 * time.Millisecond},
		Cues: CuesConfig{
			Match: []map[string]any{
				{"actuator": "light", "mode": "blink", "color": "green", "repeat": 1},
			},
			Mismatch: []map[string]any{
				{"actuator": "light", "mode": "blink", "color": "red", "repeat": 1},
				{"actuator": "vibration", "mode": "rattle", "duration": 0.4},
			},
			Error: []map[string]any{
				{"actuator": "light", "mode": "blink", "color": "red", "repeat": 5},
				{"actuator": "vibration", "mode": "vibrate", "duration": 1.0},
			},
			Victory: []map[string]any{
				{"actuator": "light", "mode": "pulse", "color": "green", "repeat": 3},
			},
		},
		MQTT: MQTTConfig{URL: "tcp://localhost:1883", TopicPrefix: "questbox"},
		Storage: StorageConfig{
			Driver: StorageNone,
			SQLite: SQLiteConfig{Path: "data/questbox.db", BusyTimeout: 5},
			Postgres: PostgresConfig{
				Host: "127.0.0.1", Port: 5432, User: "questbox", Database: "questbox", SSLMode: "disable",
			},
		},
		Telemetry: TelemetryConfig{Org: "questbox", Bucket: "questbox", BatchSize: 100, FlushInterval: 10},
		API:       APIConfig{Enabled: true, Listen: ":8080"},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadBoxConfig reads box.yaml on top of the defaults, then applies
// QUESTBOX_* environment overrides and validates the result.
func LoadBoxConfig(path string) (*BoxConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes box.yaml content.
func Parse(b []byte) (*BoxConfig, error) {
	cfg := Default()
	cfg.Version = 0
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse box config: %w", err)
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported box.yaml version: %d", cfg.Version)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BoxConfig) applyEnv() {
	if v := os.Getenv("QUESTBOX_BOX_ID"); v != "" {
		c.Box.ID = v
	}
	if v := os.Getenv("QUESTBOX_MQTT_URL"); v != "" {
		c.MQTT.URL = v
	}
	if v := os.Getenv("QUESTBOX_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("QUESTBOX_PG_HOST"); v != "" {
		c.Storage.Postgres.Host = v
	}
	if v := os.Getenv("QUESTBOX_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("QUESTBOX_API_LISTEN"); v != "" {
		c.API.Listen = v
	}
	if v := os.Getenv("QUESTBOX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks cross-field constraints that yaml decoding cannot.
func (c *BoxConfig) Validate() error {
	if c.Box.ID == "" {
		return fmt.Errorf("box.id is required")
	}
	if c.Input.QueueSize <= 0 {
		return fmt.Errorf("input.queue_size must be positive, got %d", c.Input.QueueSize)
	}
	if c.Outputs.QueueSize <= 0 {
		return fmt.Errorf("outputs.queue_size must be positive, got %d", c.Outputs.QueueSize)
	}
	if c.Outputs.LED.Brightness < 0 || c.Outputs.LED.Brightness > 1 {
		return fmt.Errorf("outputs.led.brightness must be within [0, 1], got %v", c.Outputs.LED.Brightness)
	}

	switch c.Storage.Driver {
	case StorageNone, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	for i, d := range c.Devices {
		if err := d.validate(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
	}
	return nil
}

func (d Device) validate() error {
	switch d.Type {
	case DeviceExpanderButton:
		if d.Value == "" {
			return fmt.Errorf("%s requires value", d.Type)
		}
		if d.Pin < 0 || d.Pin > 15 {
			return fmt.Errorf("%s pin %d out of range 0-15", d.Type, d.Pin)
		}
	case DeviceGPIOButton:
		if d.Value == "" {
			return fmt.Errorf("%s requires value", d.Type)
		}
	case DeviceRotaryEncoder:
		if d.Name == "" {
			return fmt.Errorf("%s requires name", d.Type)
		}
		if d.ClkPin == d.DtPin {
			return fmt.Errorf("%s %s: clk_pin and dt_pin must differ", d.Type, d.Name)
		}
	case DeviceDistanceSensor:
		if d.TriggerPin == d.EchoPin {
			return fmt.Errorf("%s: trigger_pin and echo_pin must differ", d.Type)
		}
	case DeviceJoystick:
		for _, ch := range []int{d.XChannel, d.YChannel} {
			if ch < 0 || ch > 7 {
				return fmt.Errorf("%s channel %d out of range 0-7", d.Type, ch)
			}
		}
		if d.XChannel == d.YChannel && d.XChannel != 0 {
			return fmt.Errorf("%s: x_channel and y_channel must differ", d.Type)
		}
		if d.Threshold < 0 || d.Threshold >= 0.5 {
			return fmt.Errorf("%s threshold %v out of range 0-0.5", d.Type, d.Threshold)
		}
	case DeviceGyro:
	default:
		return fmt.Errorf("unknown device type: %q", d.Type)
	}
	return nil
}
