package hw

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Scale multiplies every channel by f, clamped to [0, 1].
func (c Color) Scale(f float64) Color {
	if f <= 0 {
		return Color{}
	}
	if f >= 1 {
		return c
	}
	return Color{
		R: uint8(float64(c.R)*f + 0.5),
		G: uint8(float64(c.G)*f + 0.5),
		B: uint8(float64(c.B)*f + 0.5),
	}
}

// Lerp blends from c towards to by f in [0, 1].
func (c Color) Lerp(to Color, f float64) Color {
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5)
	}
	if f <= 0 {
		return c
	}
	if f >= 1 {
		return to
	}
	return Color{R: mix(c.R, to.R), G: mix(c.G, to.G), B: mix(c.B, to.B)}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Strip is an addressable LED strip shown as one colour.
type Strip interface {
	Fill(c Color) error
	Len() int
}

// ws2812 timing: each data bit becomes three SPI bits, 110 for one and 100
// for zero, clocked at 2.4MHz so one SPI bit lasts ~417ns.
const (
	ws2812Reset = 60
)

// WS2812 drives a strip from the SPI0 MOSI pin.
type WS2812 struct {
	mu         sync.Mutex
	rpio       *RPIO
	speed      int
	pixels     int
	brightness float64
	buf        []byte
}

// WS2812 starts SPI0 and returns a strip of the given length. brightness
// scales every colour written.
func (r *RPIO) WS2812(pixels int, brightness float64, speed int) (*WS2812, error) {
	if err := r.openSPI(); err != nil {
		return nil, err
	}
	return &WS2812{
		rpio:       r,
		speed:      speed,
		pixels:     pixels,
		brightness: brightness,
		buf:        make([]byte, 0, pixels*9+ws2812Reset),
	}, nil
}

func (s *WS2812) Len() int { return s.pixels }

func (s *WS2812) Fill(c Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf = EncodeWS2812(s.buf[:0], c.Scale(s.brightness), s.pixels)
	s.rpio.spiDo(s.speed, 0, func() {
		rpio.SpiTransmit(s.buf...)
	})
	return nil
}

// EncodeWS2812 appends the SPI bit stream for n pixels of colour c to dst,
// followed by the low reset period.
func EncodeWS2812(dst []byte, c Color, n int) []byte {
	var px [9]byte
	encodePixel(&px, c)
	for i := 0; i < n; i++ {
		dst = append(dst, px[:]...)
	}
	for i := 0; i < ws2812Reset; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// encodePixel writes GRB order, most significant bit first. Each colour
// byte expands to exactly three SPI bytes.
func encodePixel(px *[9]byte, c Color) {
	for k, b := range [3]uint8{c.G, c.R, c.B} {
		var bits uint32
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				bits = bits<<3 | 0b110
			} else {
				bits = bits<<3 | 0b100
			}
		}
		px[k*3] = byte(bits >> 16)
		px[k*3+1] = byte(bits >> 8)
		px[k*3+2] = byte(bits)
	}
}
