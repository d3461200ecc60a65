package hw

import (
	"fmt"

	"github.com/racerxdl/go-mcp23017"
)

// Expander is a 16-pin I2C I/O expander used for the colour buttons.
type Expander interface {
	// ConfigureInput makes pin an input with the pull-up enabled.
	ConfigureInput(pin uint8) error
	// ReadPin returns the pin level; true means high.
	ReadPin(pin uint8) (bool, error)
}

// MCP23017 is an Expander whose every transaction holds the shared bus.
type MCP23017 struct {
	bus    *Bus
	device *mcp23017.Device
}

// OpenMCP23017 opens the expander at 0x20+devNum on the given I2C bus.
func OpenMCP23017(bus *Bus, i2cBus, address uint8) (*MCP23017, error) {
	if address < 0x20 || address > 0x27 {
		return nil, fmt.Errorf("mcp23017 address 0x%02x out of range 0x20-0x27", address)
	}

	m := &MCP23017{bus: bus}
	err := bus.Do(func() error {
		dev, err := mcp23017.Open(i2cBus, address-0x20)
		if err != nil {
			return err
		}
		m.device = dev
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open mcp23017 at 0x%02x: %w", address, err)
	}
	return m, nil
}

func (m *MCP23017) ConfigureInput(pin uint8) error {
	return m.bus.Do(func() error {
		if err := m.device.PinMode(pin, mcp23017.INPUT); err != nil {
			return fmt.Errorf("pin %d mode: %w", pin, err)
		}
		if err := m.device.SetPullUp(pin, true); err != nil {
			return fmt.Errorf("pin %d pull-up: %w", pin, err)
		}
		return nil
	})
}

func (m *MCP23017) ReadPin(pin uint8) (bool, error) {
	var level bool
	err := m.bus.Do(func() error {
		v, err := m.device.DigitalRead(pin)
		if err != nil {
			return err
		}
		level = bool(v)
		return nil
	})
	return level, err
}

func (m *MCP23017) Close() error {
	return m.bus.Do(m.device.Close)
}
