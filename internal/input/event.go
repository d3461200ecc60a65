// Package input polls the box sensors and feeds their events, in arrival
// order, into the single queue the game engine reads.
package input

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is one logical sensor activation. Value carries the primary reading
// (button colour, dial option, distance band); Metadata carries the rest.
type Event struct {
	DeviceType string         `json:"device_type"`
	Value      any            `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	At         time.Time      `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(deviceType string, value any, metadata map[string]any) Event {
	return Event{
		DeviceType: deviceType,
		Value:      value,
		Metadata:   metadata,
		At:         time.Now(),
	}
}

// Fields flattens the event for the event log.
func (e Event) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"device_type": e.DeviceType,
		"value":       e.Value,
	}
	for k, v := range e.Metadata {
		if _, taken := f[k]; !taken {
			f[k] = v
		}
	}
	return f
}

// remoteEvent is the JSON shape of input arriving over MQTT or the operator API.
type remoteEvent struct {
	DeviceType string         `json:"device_type"`
	Value      any            `json:"value"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ParseEvent decodes remote input:
//
//	{"device_type": "button", "value": "red", "metadata": {"times": 2}}
func ParseEvent(payload []byte) (Event, error) {
	var m remoteEvent
	if err := json.Unmarshal(payload, &m); err != nil {
		return Event{}, fmt.Errorf("invalid input payload: %w", err)
	}
	if m.DeviceType == "" {
		return Event{}, errors.New("input payload needs device_type")
	}
	return NewEvent(m.DeviceType, m.Value, m.Metadata), nil
}
