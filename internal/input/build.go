package input

import (
	"fmt"
	"time"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/hw"
	"github.com/AaronLay10/QuestBox/internal/logging"
	"github.com/AaronLay10/QuestBox/internal/sensors"
)

// Hardware is what Build needs to open the configured devices. Expander,
// Accelerometer and ADC may be nil when no device uses them.
type Hardware struct {
	GPIO          hw.GPIO
	Expander      hw.Expander
	Accelerometer hw.Accelerometer
	ADC           hw.ADC

	// Ranger overrides how an ultrasonic sensor is opened. By default an
	// HC-SR04 is wired to GPIO.
	Ranger func(dev config.Device) (hw.Ranger, error)
}

// Build turns the devices list into adapters. Unknown device types are
// logged and skipped; a device whose hardware cannot be opened is an error.
func Build(cfg config.InputConfig, devices []config.Device, h Hardware, log *logging.Logger) ([]Adapter, error) {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = sensors.DefaultDebounce
	}

	var adapters []Adapter
	for i, dev := range devices {
		a, err := buildOne(dev, debounce, h)
		if err != nil {
			return nil, fmt.Errorf("device %d (%s): %w", i, dev.Label(), err)
		}
		if a == nil {
			log.Warn("unknown device type, skipped", "index", i, "type", dev.Type)
			continue
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

func buildOne(dev config.Device, debounce time.Duration, h Hardware) (Adapter, error) {
	switch dev.Type {
	case config.DeviceExpanderButton:
		if h.Expander == nil {
			return nil, fmt.Errorf("no i/o expander available")
		}
		pin := uint8(dev.Pin)
		if err := h.Expander.ConfigureInput(pin); err != nil {
			return nil, err
		}
		read := func() (bool, error) { return h.Expander.ReadPin(pin) }
		meta := map[string]any{"pin": dev.Pin, "source": "expander"}
		return NewButtonAdapter(dev.Label(), dev.Value, meta, sensors.NewButton(read, debounce)), nil

	case config.DeviceGPIOButton:
		p, err := h.GPIO.Input(dev.Pin, hw.PullUp)
		if err != nil {
			return nil, err
		}
		read := func() (bool, error) { return p.Read(), nil }
		meta := map[string]any{"pin": dev.Pin, "source": "gpio"}
		return NewButtonAdapter(dev.Label(), dev.Value, meta, sensors.NewButton(read, debounce)), nil

	case config.DeviceGyro:
		if h.Accelerometer == nil {
			return nil, fmt.Errorf("no accelerometer available")
		}
		det := sensors.NewShakeDetector(dev.Threshold, dev.Refractory)
		return NewMotionAdapter(dev.Label(), sensors.NewMotion(h.Accelerometer, det)), nil

	case config.DeviceRotaryEncoder:
		clk, err := h.GPIO.Input(dev.ClkPin, hw.PullUp)
		if err != nil {
			return nil, err
		}
		dt, err := h.GPIO.Input(dev.DtPin, hw.PullUp)
		if err != nil {
			return nil, err
		}
		btn, err := h.GPIO.Input(dev.ButtonPin, hw.PullUp)
		if err != nil {
			return nil, err
		}
		r, err := sensors.NewRotary(clk, dt, btn, optionsFor(dev), dev.StepsPerOption, debounce)
		if err != nil {
			return nil, err
		}
		return NewRotaryAdapter(dev.Name, r), nil

	case config.DeviceDistanceSensor:
		var ranger hw.Ranger
		var err error
		if h.Ranger != nil {
			ranger, err = h.Ranger(dev)
		} else {
			ranger, err = openHCSR04(h.GPIO, dev)
		}
		if err != nil {
			return nil, err
		}
		return NewDistanceAdapter(dev.Label(), sensors.NewDistance(ranger), dev.Interval), nil

	case config.DeviceJoystick:
		if h.ADC == nil {
			return nil, fmt.Errorf("no adc available")
		}
		x, y := joystickChannels(dev)
		j := sensors.NewJoystick(h.ADC, x, y, dev.Threshold)
		calibration := dev.Calibration
		if calibration <= 0 {
			calibration = sensors.DefaultCalibration
		}
		if err := j.Calibrate(calibration); err != nil {
			return nil, err
		}
		return NewJoystickAdapter(dev.Label(), j), nil
	}
	return nil, nil
}

// joystickChannels defaults an unset pair to X on channel 0 and Y on 1.
func joystickChannels(dev config.Device) (x, y int) {
	if dev.XChannel == 0 && dev.YChannel == 0 {
		return 0, 1
	}
	return dev.XChannel, dev.YChannel
}

func openHCSR04(g hw.GPIO, dev config.Device) (hw.Ranger, error) {
	trig, err := g.Output(dev.TriggerPin)
	if err != nil {
		return nil, err
	}
	echo, err := g.Input(dev.EchoPin, hw.PullDown)
	if err != nil {
		return nil, err
	}
	return hw.NewHCSR04(trig, echo, 0), nil
}

// optionsFor picks the option list of a dial: explicit options first, then
// the list implied by the dial name.
func optionsFor(dev config.Device) []string {
	if len(dev.Options) > 0 {
		return dev.Options
	}
	if dev.Name == "rotary_encoder_picture" {
		return sensors.PictureOptions
	}
	return sensors.NumberOptions
}
