// Package events is the process-wide event log. Every state change of the
// box goes through Emit, which validates the name, keeps the event in a ring
// buffer, fans it out to live subscribers and persists it to the configured
// Store.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Levels.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var buffer = NewRingBuffer(256)

// Store persists events. Implemented by the postgres and sqlite packages.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error
}

// Record is an event read back from a store.
type Record struct {
	ID        int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	BoxID     string                 `json:"box_id"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Reader returns the most recent records, newest first.
type Reader interface {
	Query(limit int) ([]Record, error)
}

var (
	store         Store
	storeMu       sync.RWMutex
	storeErrorLog bool
)

// SetStore sets the event store. nil disables persistence.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeErrorLog = false
	storeMu.Unlock()
}

// CurrentStore returns the configured store, or nil.
func CurrentStore() Store {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event and returns its JSON encoding. A "session_id"
// string field is also stored in the dedicated session column.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	storeMu.RLock()
	s := store
	errorLogged := storeErrorLog
	storeMu.RUnlock()

	if s != nil {
		sessionID, _ := fields["session_id"].(string)
		if err := s.Append(ts, level, name, msg, fields, sessionID); err != nil && !errorLogged {
			// Added to the buffer directly rather than through Emit so a
			// failing store cannot recurse.
			storeMu.Lock()
			first := !storeErrorLog
			storeErrorLog = true
			storeMu.Unlock()
			if first {
				buffer.Add(Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     LevelError,
					Name:      "system.error",
					Message:   "event store append failed",
					Fields:    map[string]interface{}{"error": err.Error()},
				})
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// Total counts every event emitted since start.
func Total() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
