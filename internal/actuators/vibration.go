package actuators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

const (
	DefaultVibrateDuration = time.Second
	DefaultRattleInterval  = 100 * time.Millisecond
)

// Vibration drives the motor pin. At most one effect runs; a new effect
// stops the running one first. The pin is low whenever no effect runs.
type Vibration struct {
	pin hw.OutputPin
	log *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewVibration(pin hw.OutputPin, log *logging.Logger) *Vibration {
	pin.Set(false)
	return &Vibration{pin: pin, log: log.With("component", "vibration")}
}

// SetEffect starts mode "vibrate" (steady) or "rattle" (on/off at interval)
// for duration seconds.
func (v *Vibration) SetEffect(_ context.Context, params map[string]any) error {
	mode, err := stringParam(params, "mode", "vibrate")
	if err != nil {
		return err
	}
	duration, err := secondsParam(params, "duration", DefaultVibrateDuration)
	if err != nil {
		return err
	}
	interval, err := secondsParam(params, "interval", DefaultRattleInterval)
	if err != nil {
		return err
	}
	if mode == "rattle" && interval <= 0 {
		return fmt.Errorf("rattle interval must be positive")
	}

	var run func(ctx context.Context)
	switch mode {
	case "vibrate":
		run = func(ctx context.Context) {
			v.pin.Set(true)
			sleep(ctx, duration)
		}
	case "rattle":
		run = func(ctx context.Context) {
			end := time.Now().Add(duration)
			for time.Now().Before(end) {
				v.pin.Set(true)
				if !sleep(ctx, interval) {
					return
				}
				v.pin.Set(false)
				if !sleep(ctx, interval) {
					return
				}
			}
		}
	default:
		return fmt.Errorf("unknown vibration mode %q", mode)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	v.cancel, v.done = cancel, done
	go func() {
		defer close(done)
		defer v.pin.Set(false)
		run(ctx)
	}()
	return nil
}

// Stop ends the running effect and leaves the motor off.
func (v *Vibration) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopLocked()
	v.pin.Set(false)
}

func (v *Vibration) stopLocked() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel, v.done = nil, nil
}

// Active reports whether an effect is running.
func (v *Vibration) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.done == nil {
		return false
	}
	select {
	case <-v.done:
		return false
	default:
		return true
	}
}
