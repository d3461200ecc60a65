package hw

import (
	"sync"
	"time"
)

// The Sim types are in-memory devices. They back `questbox run --simulate`
// and the tests of every package above hw.

// SimPin is a GPIO pin whose level is set by the caller.
type SimPin struct {
	mu   sync.Mutex
	high bool
	sets int
}

func (p *SimPin) Read() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

func (p *SimPin) Set(high bool) {
	p.mu.Lock()
	p.high = high
	p.sets++
	p.mu.Unlock()
}

// Writes counts Set calls.
func (p *SimPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}

// SimGPIO hands out SimPins by number.
type SimGPIO struct {
	mu   sync.Mutex
	pins map[int]*SimPin
}

func NewSimGPIO() *SimGPIO {
	return &SimGPIO{pins: make(map[int]*SimPin)}
}

// Pin returns the pin with the given number, creating it low.
func (g *SimGPIO) Pin(n int) *SimPin {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pins[n]
	if !ok {
		p = &SimPin{}
		g.pins[n] = p
	}
	return p
}

func (g *SimGPIO) Input(pin int, pull Pull) (InputPin, error) {
	g.mu.Lock()
	_, existed := g.pins[pin]
	g.mu.Unlock()

	p := g.Pin(pin)
	if !existed && pull == PullUp {
		p.Set(true)
	}
	return p, nil
}

func (g *SimGPIO) Output(pin int) (OutputPin, error) {
	p := g.Pin(pin)
	p.Set(false)
	return p, nil
}

// SimExpander reads high on every pin until told otherwise, like an
// expander with pull-ups and nothing pressed.
type SimExpander struct {
	bus *Bus

	mu         sync.Mutex
	low        map[uint8]bool
	configured map[uint8]bool
	err        error
}

// NewSimExpander returns an expander whose transactions hold bus when bus
// is not nil.
func NewSimExpander(bus *Bus) *SimExpander {
	return &SimExpander{
		bus:        bus,
		low:        make(map[uint8]bool),
		configured: make(map[uint8]bool),
	}
}

func (e *SimExpander) do(fn func() error) error {
	if e.bus == nil {
		return fn()
	}
	return e.bus.Do(fn)
}

func (e *SimExpander) ConfigureInput(pin uint8) error {
	return e.do(func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.err != nil {
			return e.err
		}
		e.configured[pin] = true
		return nil
	})
}

func (e *SimExpander) ReadPin(pin uint8) (bool, error) {
	var level bool
	err := e.do(func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.err != nil {
			return e.err
		}
		level = !e.low[pin]
		return nil
	})
	return level, err
}

// Press pulls pin low.
func (e *SimExpander) Press(pin uint8) {
	e.mu.Lock()
	e.low[pin] = true
	e.mu.Unlock()
}

// Release lets pin float back high.
func (e *SimExpander) Release(pin uint8) {
	e.mu.Lock()
	delete(e.low, pin)
	e.mu.Unlock()
}

// Fail makes every following transaction return err until Fail(nil).
func (e *SimExpander) Fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// Configured reports whether ConfigureInput was called for pin.
func (e *SimExpander) Configured(pin uint8) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configured[pin]
}

// SimAccelerometer starts at rest: 1 g on the z axis.
type SimAccelerometer struct {
	mu      sync.Mutex
	x, y, z float64
	err     error
}

func NewSimAccelerometer() *SimAccelerometer {
	return &SimAccelerometer{z: 1}
}

func (a *SimAccelerometer) Acceleration() (x, y, z float64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.x, a.y, a.z, a.err
}

func (a *SimAccelerometer) Set(x, y, z float64) {
	a.mu.Lock()
	a.x, a.y, a.z = x, y, z
	a.mu.Unlock()
}

func (a *SimAccelerometer) Fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

// SimRanger returns a fixed echo time.
type SimRanger struct {
	mu   sync.Mutex
	echo time.Duration
	err  error
}

// SetDistance sets the echo time an object at cm centimetres would produce.
func (r *SimRanger) SetDistance(cm float64) {
	r.mu.Lock()
	r.echo = time.Duration(cm * 2 / 34300 * float64(time.Second))
	r.err = nil
	r.mu.Unlock()
}

func (r *SimRanger) Fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *SimRanger) Echo() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.echo, r.err
}

// SimADC reads mid-scale on every channel until told otherwise, like a
// joystick at rest.
type SimADC struct {
	mu     sync.Mutex
	values map[int]float64
	err    error
}

func NewSimADC() *SimADC {
	return &SimADC{values: make(map[int]float64)}
}

func (a *SimADC) Read(channel int) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	if v, ok := a.values[channel]; ok {
		return v, nil
	}
	return 0.5, nil
}

// Set fixes the reading of channel.
func (a *SimADC) Set(channel int, v float64) {
	a.mu.Lock()
	a.values[channel] = v
	a.mu.Unlock()
}

// Fail makes every later read return err; nil clears it.
func (a *SimADC) Fail(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}

// SimStrip records every frame written to it.
type SimStrip struct {
	mu     sync.Mutex
	n      int
	frames []Color
}

func NewSimStrip(pixels int) *SimStrip {
	return &SimStrip{n: pixels}
}

func (s *SimStrip) Len() int { return s.n }

func (s *SimStrip) Fill(c Color) error {
	s.mu.Lock()
	s.frames = append(s.frames, c)
	s.mu.Unlock()
	return nil
}

// Last returns the most recent frame, or off when nothing was written.
func (s *SimStrip) Last() Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Color{}
	}
	return s.frames[len(s.frames)-1]
}

// Frames returns a copy of every frame so far.
func (s *SimStrip) Frames() []Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Color(nil), s.frames...)
}
