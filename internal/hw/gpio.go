package hw

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Pull selects the internal resistor of an input pin.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// InputPin reports the electrical level of a pin; true means high.
type InputPin interface {
	Read() bool
}

// OutputPin drives a pin high or low.
type OutputPin interface {
	Set(high bool)
}

// GPIO hands out pins by BCM number.
type GPIO interface {
	Input(pin int, pull Pull) (InputPin, error)
	Output(pin int) (OutputPin, error)
}

// RPIO is the Raspberry Pi GPIO block, memory mapped through go-rpio.
type RPIO struct {
	mu      sync.Mutex
	spiOpen bool

	// spi serialises SPI0 transactions between the strip and the ADC.
	spi Bus
}

// OpenRPIO maps the GPIO registers. Requires /dev/gpiomem or root.
func OpenRPIO() (*RPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open gpio: %w", err)
	}
	return &RPIO{}, nil
}

type rpioIn struct{ pin rpio.Pin }

func (p rpioIn) Read() bool { return p.pin.Read() == rpio.High }

type rpioOut struct{ pin rpio.Pin }

func (p rpioOut) Set(high bool) {
	if high {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

func (r *RPIO) Input(pin int, pull Pull) (InputPin, error) {
	if pin < 0 || pin > 27 {
		return nil, fmt.Errorf("gpio pin %d out of range", pin)
	}
	p := rpio.Pin(pin)
	p.Input()
	switch pull {
	case PullUp:
		p.PullUp()
	case PullDown:
		p.PullDown()
	default:
		p.PullOff()
	}
	return rpioIn{pin: p}, nil
}

func (r *RPIO) Output(pin int) (OutputPin, error) {
	if pin < 0 || pin > 27 {
		return nil, fmt.Errorf("gpio pin %d out of range", pin)
	}
	p := rpio.Pin(pin)
	p.Output()
	p.Low()
	return rpioOut{pin: p}, nil
}

// openSPI starts SPI0 once.
func (r *RPIO) openSPI() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spiOpen {
		return nil
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return fmt.Errorf("failed to start spi: %w", err)
	}
	r.spiOpen = true
	return nil
}

// spiDo runs fn as one SPI0 transaction. Devices sharing SPI0 run at
// different clocks, so speed and chip select are set every time.
func (r *RPIO) spiDo(speed int, cs uint8, fn func()) {
	r.spi.Do(func() error {
		rpio.SpiSpeed(speed)
		rpio.SpiChipSelect(cs)
		fn()
		return nil
	})
}

// Close releases SPI if it was started and unmaps the registers.
func (r *RPIO) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spiOpen {
		rpio.SpiEnd(rpio.Spi0)
		r.spiOpen = false
	}
	return rpio.Close()
}
