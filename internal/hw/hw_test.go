package hw

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_MutualExclusion(t *testing.T) {
	var bus Bus
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = bus.Do(func() error {
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(10 * time.Microsecond)
					atomic.AddInt32(&inside, -1)
					return nil
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestBus_ReleasedOnError(t *testing.T) {
	var bus Bus
	boom := errors.New("nack")

	err := bus.Do(func() error { return boom })
	assert.ErrorIs(t, err, boom)

	done := make(chan struct{})
	go func() {
		_ = bus.Do(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bus still held after an error")
	}
}

func TestBus_ReleasedOnPanic(t *testing.T) {
	var bus Bus

	func() {
		defer func() { _ = recover() }()
		_ = bus.Do(func() error { panic("driver bug") })
	}()

	require.NoError(t, bus.Do(func() error { return nil }))
}

func TestColorScaleAndLerp(t *testing.T) {
	c := Color{R: 255, G: 120, B: 0}

	assert.Equal(t, Color{R: 128, G: 60, B: 0}, c.Scale(0.5))
	assert.Equal(t, Color{}, c.Scale(0))
	assert.Equal(t, c, c.Scale(2))

	off := Color{}
	assert.Equal(t, off, off.Lerp(c, 0))
	assert.Equal(t, c, off.Lerp(c, 1))
	assert.Equal(t, Color{R: 128, G: 60, B: 0}, off.Lerp(c, 0.5))
	assert.Equal(t, "#ff7800", c.String())
}

func TestEncodeWS2812(t *testing.T) {
	buf := EncodeWS2812(nil, Color{R: 0, G: 0xFF, B: 0x80}, 2)
	require.Len(t, buf, 2*9+ws2812Reset)

	// G = 0xFF: eight 110 groups.
	assert.Equal(t, []byte{0xDB, 0x6D, 0xB6}, buf[0:3])
	// R = 0x00: eight 100 groups.
	assert.Equal(t, []byte{0x92, 0x49, 0x24}, buf[3:6])
	// B = 0x80: one 110 then seven 100 groups.
	assert.Equal(t, []byte{0xD2, 0x49, 0x24}, buf[6:9])
	assert.Equal(t, buf[0:9], buf[9:18])
	for _, b := range buf[18:] {
		assert.Zero(t, b)
	}
}

func TestHCSR04_Timeout(t *testing.T) {
	g := NewSimGPIO()
	trig, _ := g.Output(23)
	echo, _ := g.Input(24, PullNone)

	r := NewHCSR04(trig, echo, 2*time.Millisecond)
	_, err := r.Echo()
	assert.ErrorIs(t, err, ErrEchoTimeout)
	assert.Equal(t, 4, g.Pin(23).Writes(), "two inits low, then pulse high and low")
}

func TestSimExpander(t *testing.T) {
	var bus Bus
	e := NewSimExpander(&bus)

	require.NoError(t, e.ConfigureInput(3))
	assert.True(t, e.Configured(3))

	level, err := e.ReadPin(3)
	require.NoError(t, err)
	assert.True(t, level, "pull-up reads high")

	e.Press(3)
	level, _ = e.ReadPin(3)
	assert.False(t, level)

	e.Fail(errors.New("bus error"))
	_, err = e.ReadPin(3)
	assert.Error(t, err)
}

func TestSimRanger(t *testing.T) {
	var r SimRanger
	r.SetDistance(34.3)
	d, err := r.Echo()
	require.NoError(t, err)
	assert.InDelta(t, float64(2*time.Millisecond), float64(d), float64(time.Microsecond))
}

func TestMCP3008Frame(t *testing.T) {
	assert.Equal(t, [3]byte{0x01, 0x80, 0x00}, mcp3008Request(0))
	assert.Equal(t, [3]byte{0x01, 0xf0, 0x00}, mcp3008Request(7))

	// Only the low two bits of the second byte carry data.
	assert.Equal(t, 1023, mcp3008Decode([3]byte{0xff, 0xff, 0xff}))
	assert.Equal(t, 512, mcp3008Decode([3]byte{0x00, 0xfe, 0x00}))
	assert.Equal(t, 0, mcp3008Decode([3]byte{0x00, 0x00, 0x00}))
}

func TestSimADC(t *testing.T) {
	adc := NewSimADC()

	v, err := adc.Read(3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	adc.Set(3, 0.9)
	v, err = adc.Read(3)
	require.NoError(t, err)
	assert.Equal(t, 0.9, v)

	boom := errors.New("spi down")
	adc.Fail(boom)
	_, err = adc.Read(3)
	assert.ErrorIs(t, err, boom)

	adc.Fail(nil)
	_, err = adc.Read(3)
	assert.NoError(t, err)
}
