package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// mockTransport records subscriptions and publishes.
type mockTransport struct {
	mu            sync.Mutex
	subscriptions map[string]paho.MessageHandler
	published     map[string][][]byte
	connected     bool
	subscribeErr  error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		subscriptions: make(map[string]paho.MessageHandler),
		published:     make(map[string][][]byte),
		connected:     true,
	}
}

func (m *mockTransport) Subscribe(topic string, handler paho.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockTransport) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[topic] = append(m.published[topic], payload)
	return nil
}

func (m *mockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockTransport) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *mockTransport) publishedTo(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[topic]...)
}

func (m *mockTransport) simulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(nil, &mockMessage{topic: topic, payload: payload})
	}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type recordingInjector struct {
	mu     sync.Mutex
	events []input.Event
	source string
}

func (r *recordingInjector) Inject(ev input.Event, source string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.source = source
	r.mu.Unlock()
}

func TestBridge_Topics(t *testing.T) {
	b := NewBridge(newMockTransport(), &recordingInjector{}, "/escape/", "box-1", logging.Discard())
	assert.Equal(t, "escape/box-1/input", b.InputTopic())
	assert.Equal(t, "escape/box-1/events/quest.won", b.EventTopic("quest.won"))

	b = NewBridge(newMockTransport(), &recordingInjector{}, "", "box-1", logging.Discard())
	assert.Equal(t, "questbox/box-1/input", b.InputTopic())
}

func TestBridge_SubscribeIdempotent(t *testing.T) {
	tr := newMockTransport()
	b := NewBridge(tr, &recordingInjector{}, "questbox", "box", logging.Discard())

	require.NoError(t, b.SubscribeInput())
	require.NoError(t, b.SubscribeInput())
	assert.True(t, b.IsSubscribed(b.InputTopic()))
	assert.Len(t, tr.subscriptions, 1)

	b.ClearSubscriptions()
	assert.False(t, b.IsSubscribed(b.InputTopic()))

	tr.subscribeErr = errors.New("not authorized")
	assert.Error(t, b.SubscribeInput())
	assert.False(t, b.IsSubscribed(b.InputTopic()))
}

func TestBridge_InjectsRemoteInput(t *testing.T) {
	tr := newMockTransport()
	inj := &recordingInjector{}
	b := NewBridge(tr, inj, "questbox", "box", logging.Discard())
	require.NoError(t, b.SubscribeInput())

	tr.simulateMessage(b.InputTopic(), []byte(`{"device_type":"button","value":"red","metadata":{"times":2}}`))
	tr.simulateMessage(b.InputTopic(), []byte(`not json`))
	tr.simulateMessage(b.InputTopic(), []byte(`{"value":"red"}`))

	inj.mu.Lock()
	defer inj.mu.Unlock()
	require.Len(t, inj.events, 1)
	assert.Equal(t, "button", inj.events[0].DeviceType)
	assert.Equal(t, "red", inj.events[0].Value)
	assert.Equal(t, float64(2), inj.events[0].Metadata["times"])
	assert.False(t, inj.events[0].At.IsZero())
	assert.Equal(t, "mqtt", inj.source)
}

func TestBridge_MirrorsEvents(t *testing.T) {
	tr := newMockTransport()
	b := NewBridge(tr, &recordingInjector{}, "questbox", "box", logging.Discard())

	sub := events.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx, sub) }()

	_, err := events.Emit(events.LevelInfo, "path.started", "Siren", map[string]interface{}{"path": "Siren"})
	require.NoError(t, err)

	topic := b.EventTopic("path.started")
	require.Eventually(t, func() bool { return len(tr.publishedTo(topic)) == 1 }, time.Second, time.Millisecond)

	var got events.Event
	require.NoError(t, json.Unmarshal(tr.publishedTo(topic)[0], &got))
	assert.Equal(t, "path.started", got.Name)
	assert.Equal(t, "Siren", got.Fields["path"])

	tr.setConnected(false)
	_, err = events.Emit(events.LevelInfo, "path.started", "Lock", nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, tr.publishedTo(topic), 1, "skipped while disconnected")

	events.Unsubscribe(sub)
	require.NoError(t, <-done)
	cancel()
}
