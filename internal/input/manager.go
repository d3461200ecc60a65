package input

import (
	"context"
	"sync"
	"time"

	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// DefaultLoopDelay is the pause between two adapters of the shared loop.
const DefaultLoopDelay = 50 * time.Millisecond

// errorLogInterval bounds how often one adapter's errors are logged.
const errorLogInterval = 10 * time.Second

// Adapter is one logical sensor. Poll reports at most one event per call;
// ok is false when nothing changed. An error means the sample was lost and is
// treated like no change.
type Adapter interface {
	Name() string
	Poll() (ev Event, ok bool, err error)
}

// Dedicated adapters need their own polling rate, either much faster than
// the shared loop (encoders) or slower (ultrasonic ranging).
type Dedicated interface {
	Adapter
	Interval() time.Duration
}

// Manager runs the polling goroutines and owns the event queue.
type Manager struct {
	log       *logging.Logger
	queue     *Queue
	loopDelay time.Duration

	shared    []Adapter
	dedicated []Dedicated

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	errMu   sync.Mutex
	lastErr map[string]time.Time
}

func NewManager(queue *Queue, log *logging.Logger, loopDelay time.Duration) *Manager {
	if loopDelay <= 0 {
		loopDelay = DefaultLoopDelay
	}
	return &Manager{
		log:       log.With("component", "input"),
		queue:     queue,
		loopDelay: loopDelay,
		lastErr:   make(map[string]time.Time),
	}
}

// Add registers an adapter. Adapters must be added before Start.
func (m *Manager) Add(a Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := a.(Dedicated); ok {
		m.dedicated = append(m.dedicated, d)
		return
	}
	m.shared = append(m.shared, a)
}

// Adapters lists adapter names, shared loop first.
func (m *Manager) Adapters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.shared)+len(m.dedicated))
	for _, a := range m.shared {
		names = append(names, a.Name())
	}
	for _, d := range m.dedicated {
		names = append(names, d.Name())
	}
	return names
}

// Queue returns the queue the manager feeds.
func (m *Manager) Queue() *Queue {
	return m.queue
}

// Start launches the shared loop and one goroutine per dedicated adapter.
// Calling Start on a running manager does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	if len(m.shared) > 0 {
		m.wg.Add(1)
		go m.sharedLoop(ctx, m.stopCh, append([]Adapter(nil), m.shared...))
	}
	for _, d := range m.dedicated {
		m.wg.Add(1)
		go m.dedicatedLoop(ctx, m.stopCh, d)
	}

	m.log.Info("input manager started", "shared", len(m.shared), "dedicated", len(m.dedicated))
}

// Stop signals every polling goroutine and waits for all of them to exit.
// After Stop returns no adapter is polled again.
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
	m.log.Info("input manager stopped")
}

// Running reports whether the polling goroutines are active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Inject queues an event that did not come from a local adapter, such as an
// operator hint or an MQTT message.
func (m *Manager) Inject(ev Event, source string) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	fields := ev.Fields()
	fields["source"] = source
	events.Emit(events.LevelInfo, "input.injected", "", fields)
	m.deliver(ev)
}

func (m *Manager) sharedLoop(ctx context.Context, stop <-chan struct{}, adapters []Adapter) {
	defer m.wg.Done()

	for {
		for _, a := range adapters {
			m.poll(a)

			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(m.loopDelay):
			}
		}
	}
}

func (m *Manager) dedicatedLoop(ctx context.Context, stop <-chan struct{}, d Dedicated) {
	defer m.wg.Done()

	interval := d.Interval()
	if interval <= 0 {
		interval = m.loopDelay
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(d)
		}
	}
}

func (m *Manager) poll(a Adapter) {
	ev, ok, err := a.Poll()
	if err != nil {
		m.reportError(a.Name(), err)
		return
	}
	if !ok {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	m.log.Debug("sensor input", "adapter", a.Name(), "device_type", ev.DeviceType, "value", ev.Value)
	fields := ev.Fields()
	fields["adapter"] = a.Name()
	events.Emit(events.LevelInfo, "sensor.input", "", fields)
	m.deliver(ev)
}

func (m *Manager) deliver(ev Event) {
	if old, displaced := m.queue.Push(ev); displaced {
		m.log.Warn("input queue full, dropped oldest event",
			"device_type", old.DeviceType, "value", old.Value, "dropped_total", m.queue.Dropped())
		events.Emit(events.LevelWarn, "input.dropped", "queue full", old.Fields())
	}
}

func (m *Manager) reportError(name string, err error) {
	m.errMu.Lock()
	last, seen := m.lastErr[name]
	now := time.Now()
	if seen && now.Sub(last) < errorLogInterval {
		m.errMu.Unlock()
		return
	}
	m.lastErr[name] = now
	m.errMu.Unlock()

	m.log.Warn("sensor read failed", "adapter", name, "error", err)
	events.Emit(events.LevelWarn, "device.error", "sensor read failed", map[string]interface{}{
		"adapter": name,
		"error":   err.Error(),
	})
}
