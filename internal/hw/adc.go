package hw

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// ADC reads single-ended analog channels as a fraction of full scale: 0 at
// ground, 1 at the reference voltage.
type ADC interface {
	Read(channel int) (float64, error)
}

const (
	mcp3008Channels = 8
	mcp3008Max      = 1023

	// MCP3008ChipSelect is the SPI0 chip select the converter is wired to.
	// The LED strip only uses MOSI, so CE0 stays free for it.
	MCP3008ChipSelect = 1

	// defaultMCP3008Speed stays under the 1.35MHz limit at 2.7V.
	defaultMCP3008Speed = 1000000
)

// MCP3008 is an 8-channel 10-bit converter on SPI0.
type MCP3008 struct {
	rpio  *RPIO
	cs    uint8
	speed int
}

// MCP3008 starts SPI0 if needed and returns the converter on chip select
// cs. A zero speed selects defaultMCP3008Speed.
func (r *RPIO) MCP3008(cs uint8, speed int) (*MCP3008, error) {
	if cs > 1 {
		return nil, fmt.Errorf("spi0 chip select %d out of range 0-1", cs)
	}
	if speed <= 0 {
		speed = defaultMCP3008Speed
	}
	if err := r.openSPI(); err != nil {
		return nil, err
	}
	return &MCP3008{rpio: r, cs: cs, speed: speed}, nil
}

func (m *MCP3008) Read(channel int) (float64, error) {
	if channel < 0 || channel >= mcp3008Channels {
		return 0, fmt.Errorf("mcp3008 channel %d out of range 0-7", channel)
	}
	frame := mcp3008Request(channel)
	m.rpio.spiDo(m.speed, m.cs, func() {
		rpio.SpiExchange(frame[:])
	})
	return float64(mcp3008Decode(frame)) / mcp3008Max, nil
}

// mcp3008Request is the frame of a single-ended read: the start bit, then
// SGL=1 and the channel in the high nibble of the second byte.
func mcp3008Request(channel int) [3]byte {
	return [3]byte{0x01, byte(0x80 | channel<<4), 0x00}
}

// mcp3008Decode extracts the 10-bit result from an exchanged frame.
func mcp3008Decode(rx [3]byte) int {
	return int(rx[1]&0x03)<<8 | int(rx[2])
}
