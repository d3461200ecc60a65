package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

// Transport is the broker side of a Bridge. *Client implements it.
type Transport interface {
	Subscribe(topic string, handler paho.MessageHandler) error
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// Injector accepts remote input. *input.Manager implements it.
type Injector interface {
	Inject(ev input.Event, source string)
}

// Bridge mirrors events to <prefix>/<box>/events/<name> and injects input
// published on <prefix>/<box>/input.
type Bridge struct {
	transport Transport
	injector  Injector
	base      string
	log       *logging.Logger

	mu         sync.RWMutex
	subscribed map[string]bool
}

func NewBridge(t Transport, inj Injector, prefix, boxID string, log *logging.Logger) *Bridge {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "questbox"
	}
	return &Bridge{
		transport:  t,
		injector:   inj,
		base:       prefix + "/" + boxID,
		log:        log.With("component", "mqtt"),
		subscribed: make(map[string]bool),
	}
}

// EventTopic is the topic an event is mirrored to.
func (b *Bridge) EventTopic(name string) string {
	return b.base + "/events/" + name
}

// InputTopic is the topic remote input is read from.
func (b *Bridge) InputTopic() string {
	return b.base + "/input"
}

// SubscribeInput subscribes to the input topic. Calling it again while
// subscribed is a no-op.
func (b *Bridge) SubscribeInput() error {
	topic := b.InputTopic()

	b.mu.RLock()
	done := b.subscribed[topic]
	b.mu.RUnlock()
	if done {
		return nil
	}

	if err := b.transport.Subscribe(topic, b.handleInput); err != nil {
		return err
	}

	b.mu.Lock()
	b.subscribed[topic] = true
	b.mu.Unlock()
	b.log.Info("subscribed", "topic", topic)
	return nil
}

// ClearSubscriptions forgets subscriptions so they are made again after a
// reconnect.
func (b *Bridge) ClearSubscriptions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = make(map[string]bool)
}

// IsSubscribed reports whether topic is subscribed.
func (b *Bridge) IsSubscribed(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subscribed[topic]
}

func (b *Bridge) handleInput(_ paho.Client, msg paho.Message) {
	ev, err := input.ParseEvent(msg.Payload())
	if err != nil {
		b.log.Warn("rejected remote input", "topic", msg.Topic(), "error", err)
		events.Emit(events.LevelWarn, "device.error", "rejected remote input", map[string]interface{}{
			"topic": msg.Topic(),
			"error": err.Error(),
		})
		return
	}
	b.injector.Inject(ev, "mqtt")
}

// Run mirrors every event from sub until ctx ends or sub is closed. Events
// raised while the broker is unreachable are skipped.
func (b *Bridge) Run(ctx context.Context, sub events.Subscriber) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			if !b.transport.IsConnected() {
				continue
			}
			payload, err := json.Marshal(e)
			if err != nil {
				b.log.Warn("failed to encode event", "event", e.Name, "error", err)
				continue
			}
			if err := b.transport.Publish(b.EventTopic(e.Name), payload); err != nil {
				b.log.Warn("publish failed", "event", e.Name, "error", err)
			}
		}
	}
}
