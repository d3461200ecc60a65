package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/AaronLay10/QuestBox/internal/actuators"
	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/hw"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/output"
	"github.com/AaronLay10/QuestBox/internal/steps"
	"github.com/AaronLay10/QuestBox/internal/storage/postgres"
	"github.com/AaronLay10/QuestBox/internal/storage/sqlite"
)

// simDistanceCM is where the simulated ranger reports its object: far
// enough to read as open.
const simDistanceCM = 200

// hardware is the set of devices opened for one run.
type hardware struct {
	Input     input.Hardware
	Strip     hw.Strip
	Vibration hw.OutputPin

	closers []func() error
}

// Close releases devices in reverse order of opening.
func (h *hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

func needsDevice(devices []config.Device, deviceType string) bool {
	for _, d := range devices {
		if d.Type == deviceType {
			return true
		}
	}
	return false
}

// openHardware opens the GPIO, the shared I2C bus devices and the output
// hardware named in cfg. Only devices that something uses are opened.
func openHardware(cfg *config.BoxConfig, simulate bool) (*hardware, error) {
	if simulate {
		return simulatedHardware(cfg)
	}

	h := &hardware{}
	gpio, err := hw.OpenRPIO()
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, gpio.Close)
	h.Input.GPIO = gpio

	bus := &hw.Bus{}
	fail := func(err error) (*hardware, error) {
		h.Close()
		return nil, err
	}

	if needsDevice(cfg.Devices, config.DeviceExpanderButton) {
		exp, err := hw.OpenMCP23017(bus, uint8(cfg.Bus.I2CBus), uint8(cfg.Bus.ExpanderAddress))
		if err != nil {
			return fail(err)
		}
		h.closers = append(h.closers, exp.Close)
		h.Input.Expander = exp
	}
	if needsDevice(cfg.Devices, config.DeviceGyro) {
		accel, err := hw.OpenMPU6050(bus, cfg.Bus.I2CBus, uint8(cfg.Bus.AccelerometerAddress))
		if err != nil {
			return fail(err)
		}
		h.closers = append(h.closers, accel.Close)
		h.Input.Accelerometer = accel
	}
	if needsDevice(cfg.Devices, config.DeviceJoystick) {
		adc, err := gpio.MCP3008(hw.MCP3008ChipSelect, 0)
		if err != nil {
			return fail(err)
		}
		h.Input.ADC = adc
	}

	led := cfg.Outputs.LED
	if led.Enabled {
		strip, err := gpio.WS2812(led.Pixels, led.Brightness, led.SPISpeed)
		if err != nil {
			return fail(err)
		}
		h.Strip = strip
	}
	if cfg.Outputs.Vibration.Enabled {
		pin, err := gpio.Output(cfg.Outputs.Vibration.Pin)
		if err != nil {
			return fail(err)
		}
		h.Vibration = pin
	}
	return h, nil
}

func simulatedHardware(cfg *config.BoxConfig) (*hardware, error) {
	gpio := hw.NewSimGPIO()
	h := &hardware{
		Input: input.Hardware{
			GPIO:          gpio,
			Expander:      hw.NewSimExpander(&hw.Bus{}),
			Accelerometer: hw.NewSimAccelerometer(),
			ADC:           hw.NewSimADC(),
			Ranger: func(config.Device) (hw.Ranger, error) {
				r := &hw.SimRanger{}
				r.SetDistance(simDistanceCM)
				return r, nil
			},
		},
	}
	if cfg.Outputs.LED.Enabled {
		h.Strip = hw.NewSimStrip(cfg.Outputs.LED.Pixels)
	}
	if cfg.Outputs.Vibration.Enabled {
		pin, err := gpio.Output(cfg.Outputs.Vibration.Pin)
		if err != nil {
			return nil, err
		}
		h.Vibration = pin
	}
	return h, nil
}

// buildOutputs registers a controller for every enabled actuator class.
// The audio controller is always registered; with audio disabled it plays
// nothing but still keeps narration timing consistent.
func buildOutputs(cfg *config.BoxConfig, h *hardware, log *logging.Logger) (*output.Manager, *actuators.Audio) {
	outputs := output.NewManager(cfg.Outputs.QueueSize, cfg.Outputs.PollTimeout, log)

	if h.Strip != nil {
		outputs.Register(steps.ClassLight, actuators.NewLED(h.Strip, log))
	}
	if h.Vibration != nil {
		outputs.Register(steps.ClassVibration, actuators.NewVibration(h.Vibration, log))
	}

	var player actuators.Player = actuators.SilentPlayer{}
	if cfg.Audio.Enabled {
		player = actuators.ExecPlayer{Command: cfg.Audio.Player, Args: cfg.Audio.Args}
	}
	audio := actuators.NewAudio(player, log)
	outputs.Register(steps.ClassSound, audio)

	return outputs, audio
}

// eventStore is what both storage backends provide.
type eventStore interface {
	events.Store
	events.Reader
	Close() error
}

// openStore opens the configured event store, or returns nil when storage
// is disabled.
func openStore(ctx context.Context, cfg *config.BoxConfig, secrets config.Secrets) (eventStore, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		c, err := postgres.New(ctx, cfg.Storage.Postgres, secrets.PostgresPassword, cfg.Box.ID)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return c, nil
	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.Storage.SQLite, cfg.Box.ID)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}
