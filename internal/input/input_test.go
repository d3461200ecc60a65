package input

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/hw"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

type scriptedAdapter struct {
	name     string
	interval time.Duration

	mu      sync.Mutex
	polls   int
	pending []Event
	err     error
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) Poll() (Event, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.polls++
	if a.err != nil {
		return Event{}, false, a.err
	}
	if len(a.pending) == 0 {
		return Event{}, false, nil
	}
	ev := a.pending[0]
	a.pending = a.pending[1:]
	return ev, true, nil
}

func (a *scriptedAdapter) Polls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.polls
}

type dedicatedAdapter struct {
	*scriptedAdapter
}

func (a dedicatedAdapter) Interval() time.Duration { return a.interval }

func receive(t *testing.T, q *Queue) Event {
	t.Helper()
	select {
	case ev := <-q.C():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestQueue_FIFOAndDropOldest(t *testing.T) {
	q := NewQueue(2)

	_, dropped := q.Push(NewEvent("button", "red", nil))
	assert.False(t, dropped)
	q.Push(NewEvent("button", "green", nil))

	old, dropped := q.Push(NewEvent("button", "blue", nil))
	assert.True(t, dropped)
	assert.Equal(t, "red", old.Value)
	assert.Equal(t, uint64(1), q.Dropped())

	assert.Equal(t, "green", (<-q.C()).Value)
	assert.Equal(t, "blue", (<-q.C()).Value)
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 5; i++ {
		q.Push(NewEvent("gyro", "shaking", nil))
	}
	assert.Equal(t, 5, q.Drain())
	assert.Zero(t, q.Len())
	assert.Equal(t, 8, q.Cap())
}

func TestEventFields(t *testing.T) {
	ev := NewEvent("rotary_encoder_picture", "key", map[string]any{"name": "rotary_encoder_picture", "value": "shadowed"})
	f := ev.Fields()
	assert.Equal(t, "key", f["value"], "metadata cannot overwrite the event value")
	assert.Equal(t, "rotary_encoder_picture", f["name"])
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"device_type":"rotary_encoder_number","value":7}`))
	require.NoError(t, err)
	assert.Equal(t, "rotary_encoder_number", ev.DeviceType)
	assert.Equal(t, float64(7), ev.Value)
	assert.False(t, ev.At.IsZero())

	_, err = ParseEvent([]byte(`{"device_type":""}`))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestManager_SharedLoopPreservesOrder(t *testing.T) {
	q := NewQueue(16)
	m := NewManager(q, logging.Discard(), time.Millisecond)

	red := &scriptedAdapter{name: "red", pending: []Event{NewEvent("button", "red", nil)}}
	gyro := &scriptedAdapter{name: "gyro", pending: []Event{NewEvent("gyro", "shaking", nil)}}
	m.Add(red)
	m.Add(gyro)

	m.Start(testContext(t))
	defer m.Stop()

	assert.Equal(t, "red", receive(t, q).Value)
	assert.Equal(t, "shaking", receive(t, q).Value)
}

func TestManager_StartIdempotentStopJoins(t *testing.T) {
	q := NewQueue(16)
	m := NewManager(q, logging.Discard(), time.Millisecond)
	shared := &scriptedAdapter{name: "shared"}
	fast := dedicatedAdapter{&scriptedAdapter{name: "fast", interval: time.Millisecond}}
	m.Add(shared)
	m.Add(fast)
	assert.Equal(t, []string{"shared", "fast"}, m.Adapters())

	m.Start(testContext(t))
	m.Start(testContext(t))
	assert.True(t, m.Running())

	require.Eventually(t, func() bool { return shared.Polls() > 3 && fast.Polls() > 3 },
		2*time.Second, time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	afterShared, afterFast := shared.Polls(), fast.Polls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, afterShared, shared.Polls(), "no polling after Stop")
	assert.Equal(t, afterFast, fast.Polls())

	m.Stop()
}

func TestManager_ErrorsDoNotStopPolling(t *testing.T) {
	q := NewQueue(16)
	m := NewManager(q, logging.Discard(), time.Millisecond)
	broken := &scriptedAdapter{name: "broken", err: errors.New("i2c nack")}
	m.Add(broken)

	m.Start(testContext(t))
	defer m.Stop()

	require.Eventually(t, func() bool { return broken.Polls() > 5 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, q.Len())
}

func TestManager_Inject(t *testing.T) {
	q := NewQueue(4)
	m := NewManager(q, logging.Discard(), 0)

	m.Inject(Event{DeviceType: "button", Value: "hint"}, "operator")

	ev := receive(t, q)
	assert.Equal(t, "hint", ev.Value)
	assert.False(t, ev.At.IsZero())
}

func TestBuild_SimHardware(t *testing.T) {
	var bus hw.Bus
	expander := hw.NewSimExpander(&bus)
	gpio := hw.NewSimGPIO()
	ranger := &hw.SimRanger{}
	ranger.SetDistance(100)

	devices := []config.Device{
		{Type: config.DeviceExpanderButton, Value: "red", Pin: 2},
		{Type: config.DeviceGPIOButton, Value: "hint", Pin: 26},
		{Type: config.DeviceGyro},
		{Type: config.DeviceRotaryEncoder, Name: "rotary_encoder_picture", ClkPin: 5, DtPin: 6, ButtonPin: 13},
		{Type: config.DeviceDistanceSensor, TriggerPin: 23, EchoPin: 24},
		{Type: "laser_tripwire"},
	}
	h := Hardware{
		GPIO:          gpio,
		Expander:      expander,
		Accelerometer: hw.NewSimAccelerometer(),
		Ranger:        func(config.Device) (hw.Ranger, error) { return ranger, nil },
	}

	adapters, err := Build(config.InputConfig{Debounce: time.Millisecond}, devices, h, logging.Discard())
	require.NoError(t, err)
	require.Len(t, adapters, 5, "unknown type skipped")
	assert.True(t, expander.Configured(2))

	_, isDedicated := adapters[3].(Dedicated)
	assert.True(t, isDedicated, "rotary gets its own loop")
	assert.Equal(t, time.Millisecond, adapters[3].(Dedicated).Interval())
	assert.Equal(t, DistanceInterval, adapters[4].(Dedicated).Interval())

	q := NewQueue(16)
	m := NewManager(q, logging.Discard(), time.Millisecond)
	for _, a := range adapters {
		m.Add(a)
	}
	m.Start(testContext(t))
	defer m.Stop()

	time.Sleep(20 * time.Millisecond)
	expander.Press(2)

	ev := receive(t, q)
	assert.Equal(t, DeviceButton, ev.DeviceType)
	assert.Equal(t, "red", ev.Value)
	assert.Equal(t, "expander", ev.Metadata["source"])
}

func TestBuild_MissingHardware(t *testing.T) {
	devices := []config.Device{{Type: config.DeviceExpanderButton, Value: "red", Pin: 1}}
	_, err := Build(config.InputConfig{}, devices, Hardware{GPIO: hw.NewSimGPIO()}, logging.Discard())
	assert.ErrorContains(t, err, "expander")
}

func TestBuild_Joystick(t *testing.T) {
	adc := hw.NewSimADC()
	adc.Set(2, 0.48)
	adc.Set(3, 0.52)
	devices := []config.Device{{Type: config.DeviceJoystick, XChannel: 2, YChannel: 3, Calibration: time.Millisecond}}

	_, err := Build(config.InputConfig{}, devices, Hardware{GPIO: hw.NewSimGPIO()}, logging.Discard())
	assert.ErrorContains(t, err, "adc")

	adapters, err := Build(config.InputConfig{}, devices, Hardware{GPIO: hw.NewSimGPIO(), ADC: adc}, logging.Discard())
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	_, isDedicated := adapters[0].(Dedicated)
	assert.False(t, isDedicated, "joystick shares the main loop")

	q := NewQueue(8)
	m := NewManager(q, logging.Discard(), time.Millisecond)
	m.Add(adapters[0])
	m.Start(testContext(t))
	defer m.Stop()

	adc.Set(3, 0.02)
	ev := receive(t, q)
	assert.Equal(t, DeviceJoystick, ev.DeviceType)
	assert.Equal(t, "up", ev.Value)
	assert.Equal(t, "joystick", ev.Metadata["name"])

	// Letting go queues nothing; the next push does.
	adc.Set(3, 0.52)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, q.Len())
	adc.Set(2, 0.99)
	ev = receive(t, q)
	assert.Equal(t, "right", ev.Value)
}

func TestJoystickChannels(t *testing.T) {
	x, y := joystickChannels(config.Device{})
	assert.Equal(t, []int{0, 1}, []int{x, y})
	x, y = joystickChannels(config.Device{XChannel: 4, YChannel: 0})
	assert.Equal(t, []int{4, 0}, []int{x, y})
}

func TestOptionsFor(t *testing.T) {
	assert.Equal(t, "compass", optionsFor(config.Device{Name: "rotary_encoder_picture"})[9])
	assert.Equal(t, "9", optionsFor(config.Device{Name: "rotary_encoder_number"})[9])
	assert.Equal(t, []string{"a"}, optionsFor(config.Device{Options: []string{"a"}}))
}
