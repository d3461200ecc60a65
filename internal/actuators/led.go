package actuators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// LED effect defaults.
const (
	DefaultBlinkRepeat   = 5
	DefaultBlinkInterval = 300 * time.Millisecond
	DefaultPulseRepeat   = 5
	DefaultFrameDelay    = 30 * time.Millisecond
	DefaultFadeSteps     = 50
)

type ledEffect struct {
	gen      uint64
	mode     string
	color    hw.Color
	from     hw.Color
	repeat   int
	interval time.Duration
	delay    time.Duration
	steps    int
	hold     time.Duration
}

// LED plays effects on a strip. Effects run one at a time on the LED's own
// goroutine; a new effect interrupts the one playing.
type LED struct {
	strip hw.Strip
	log   *logging.Logger

	effects chan ledEffect

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewLED(strip hw.Strip, log *logging.Logger) *LED {
	l := &LED{
		strip:   strip,
		log:     log.With("component", "led"),
		effects: make(chan ledEffect, 8),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.worker()
	return l
}

// SetEffect validates params and queues the effect.
//
// Params: mode (static, blink, pulse, fade), color, plus per mode repeat,
// interval, delay, steps, from and duration. Times are in seconds.
func (l *LED) SetEffect(_ context.Context, params map[string]any) error {
	e, err := parseLEDEffect(params)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.gen++
	e.gen = l.gen
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	select {
	case l.effects <- e:
		return nil
	case <-l.stopCh:
		return fmt.Errorf("led controller stopped")
	default:
		return fmt.Errorf("led effect queue full")
	}
}

// Stop interrupts the running effect, waits for the worker and turns the
// strip off.
func (l *LED) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.mu.Lock()
		l.gen++
		if l.cancel != nil {
			l.cancel()
		}
		l.mu.Unlock()
		<-l.done
		l.fill(hw.Color{})
	})
}

func parseLEDEffect(params map[string]any) (ledEffect, error) {
	mode, err := stringParam(params, "mode", "static")
	if err != nil {
		return ledEffect{}, err
	}
	colorName, err := stringParam(params, "color", "white")
	if err != nil {
		return ledEffect{}, err
	}
	color, err := ParseColor(colorName)
	if err != nil {
		return ledEffect{}, err
	}

	e := ledEffect{mode: mode, color: color}
	switch mode {
	case "static":
		e.hold, err = secondsParam(params, "duration", 0)
	case "blink":
		if e.repeat, err = intParam(params, "repeat", DefaultBlinkRepeat); err != nil {
			break
		}
		e.interval, err = secondsParam(params, "interval", DefaultBlinkInterval)
	case "pulse":
		if e.repeat, err = intParam(params, "repeat", DefaultPulseRepeat); err != nil {
			break
		}
		e.steps = DefaultFadeSteps
		e.delay, err = secondsParam(params, "delay", DefaultFrameDelay)
	case "fade":
		if e.steps, err = intParam(params, "steps", DefaultFadeSteps); err != nil {
			break
		}
		if e.steps < 2 {
			e.steps = 2
		}
		fromName, ferr := stringParam(params, "from", "off")
		if ferr != nil {
			return ledEffect{}, ferr
		}
		if e.from, err = ParseColor(fromName); err != nil {
			break
		}
		var total time.Duration
		if total, err = secondsParam(params, "duration", 0); err != nil {
			break
		}
		e.delay = DefaultFrameDelay
		if total > 0 {
			e.delay = total / time.Duration(e.steps)
		}
	default:
		return ledEffect{}, fmt.Errorf("unknown led mode %q", mode)
	}
	if err != nil {
		return ledEffect{}, err
	}
	return e, nil
}

func (l *LED) worker() {
	defer close(l.done)

	for {
		select {
		case <-l.stopCh:
			return
		case e := <-l.effects:
			ctx, cancel := context.WithCancel(context.Background())
			l.mu.Lock()
			if e.gen != l.gen {
				// Superseded before it started.
				l.mu.Unlock()
				cancel()
				continue
			}
			l.cancel = cancel
			l.mu.Unlock()

			l.run(ctx, e)

			l.mu.Lock()
			l.cancel = nil
			l.mu.Unlock()
			cancel()
		}
	}
}

// run plays one effect. Finite effects finish with the strip off; an
// interrupted effect leaves the strip to the effect that interrupted it.
func (l *LED) run(ctx context.Context, e ledEffect) {
	off := hw.Color{}

	switch e.mode {
	case "static":
		l.fill(e.color)
		if e.hold > 0 && sleep(ctx, e.hold) {
			l.fill(off)
		}

	case "blink":
		for i := 0; i < e.repeat; i++ {
			l.fill(e.color)
			if !sleep(ctx, e.interval) {
				return
			}
			l.fill(off)
			if !sleep(ctx, e.interval) {
				return
			}
		}
		l.fill(off)

	case "pulse":
		for i := 0; i < e.repeat; i++ {
			if !l.fade(ctx, off, e.color, e.steps, e.delay) || !l.fade(ctx, e.color, off, e.steps, e.delay) {
				return
			}
		}
		l.fill(off)

	case "fade":
		if l.fade(ctx, e.from, e.color, e.steps, e.delay) {
			l.fill(off)
		}
	}
}

// fade steps linearly from one colour to another with factor i/(steps-1).
// It returns false when interrupted.
func (l *LED) fade(ctx context.Context, from, to hw.Color, steps int, delay time.Duration) bool {
	for i := 0; i < steps; i++ {
		l.fill(from.Lerp(to, float64(i)/float64(steps-1)))
		if !sleep(ctx, delay) {
			return false
		}
	}
	return true
}

func (l *LED) fill(c hw.Color) {
	if err := l.strip.Fill(c); err != nil {
		l.log.Warn("led write failed", "error", err)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
