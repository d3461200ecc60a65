// Package output owns the actuator command queue. Game code sends commands
// without waiting; one dispatcher goroutine hands them to the controller
// registered for their class.
package output

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// DefaultPollTimeout bounds how long the dispatcher waits for a command
// before checking for shutdown.
const DefaultPollTimeout = 100 * time.Millisecond

// Command asks the controller of Class to run an effect.
type Command struct {
	Class  string         `json:"class"`
	Params map[string]any `json:"params,omitempty"`
}

// Controller runs effects for one actuator class. SetEffect must return
// promptly; long effects run on the controller's own goroutine.
type Controller interface {
	SetEffect(ctx context.Context, params map[string]any) error
}

// Stopper is implemented by controllers with goroutines or hardware state
// to release at shutdown.
type Stopper interface {
	Stop()
}

// Activity is implemented by controllers that can tell whether an effect
// is still running.
type Activity interface {
	Active() bool
}

type Manager struct {
	log         *logging.Logger
	commands    chan Command
	pollTimeout time.Duration

	mu          sync.Mutex
	controllers map[string]Controller
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func NewManager(queueSize int, pollTimeout time.Duration, log *logging.Logger) *Manager {
	if queueSize <= 0 {
		queueSize = 64
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Manager{
		log:         log.With("component", "output"),
		commands:    make(chan Command, queueSize),
		pollTimeout: pollTimeout,
		controllers: make(map[string]Controller),
	}
}

// Register binds a controller to a class, replacing any previous one.
func (m *Manager) Register(class string, c Controller) {
	m.mu.Lock()
	m.controllers[class] = c
	m.mu.Unlock()
}

// Classes lists the registered classes, sorted.
func (m *Manager) Classes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.controllers))
	for k := range m.controllers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Active reports, per class, whether its controller is running an effect.
// Controllers that do not implement Activity are left out.
func (m *Manager) Active() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.controllers))
	for class, c := range m.controllers {
		if a, ok := c.(Activity); ok {
			out[class] = a.Active()
		}
	}
	return out
}

// Send queues cmd without blocking. It returns false, and logs, when the
// queue is full.
func (m *Manager) Send(cmd Command) bool {
	select {
	case m.commands <- cmd:
		return true
	default:
		m.log.Warn("command queue full, dropped command", "class", cmd.Class)
		events.Emit(events.LevelWarn, "output.dropped", "command queue full", map[string]interface{}{
			"class": cmd.Class,
		})
		return false
	}
}

// Start launches the dispatcher. Calling Start on a running manager does
// nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(1)
	go m.dispatchLoop(ctx, m.stopCh)
}

// Stop waits for the dispatcher to exit, then stops every controller that
// implements Stopper.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	controllers := make([]Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		controllers = append(controllers, c)
	}
	m.mu.Unlock()

	for _, c := range controllers {
		if s, ok := c.(Stopper); ok {
			s.Stop()
		}
	}
}

func (m *Manager) dispatchLoop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	timer := time.NewTimer(m.pollTimeout)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case cmd := <-m.commands:
			m.dispatch(ctx, cmd)
		case <-timer.C:
		}
		timer.Reset(m.pollTimeout)
	}
}

func (m *Manager) dispatch(ctx context.Context, cmd Command) {
	m.mu.Lock()
	c, ok := m.controllers[cmd.Class]
	m.mu.Unlock()

	if !ok {
		m.log.Warn("unknown actuator class, command dropped", "class", cmd.Class)
		events.Emit(events.LevelWarn, "output.dropped", "unknown actuator class", map[string]interface{}{
			"class": cmd.Class,
		})
		return
	}

	if err := safeSetEffect(ctx, c, cmd.Params); err != nil {
		m.log.Warn("actuator command failed", "class", cmd.Class, "error", err)
		events.Emit(events.LevelWarn, "output.error", err.Error(), map[string]interface{}{
			"class": cmd.Class,
		})
		return
	}
	events.Emit(events.LevelDebug, "output.dispatched", "", map[string]interface{}{
		"class":  cmd.Class,
		"params": cmd.Params,
	})
}

// safeSetEffect keeps a panicking controller from taking the dispatcher down.
func safeSetEffect(ctx context.Context, c Controller, params map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("controller panic: %v", r)
		}
	}()
	return c.SetEffect(ctx, params)
}
