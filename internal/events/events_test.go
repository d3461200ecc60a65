package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu       sync.Mutex
	names    []string
	sessions []string
	err      error
}

func (s *recordingStore) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.names = append(s.names, event)
	s.sessions = append(s.sessions, sessionID)
	return nil
}

func TestEmit_RejectsUnknownName(t *testing.T) {
	_, err := Emit(LevelInfo, "puzzle.solved", "", nil)
	assert.ErrorContains(t, err, "unknown event")
}

func TestEmit_ReturnsJSON(t *testing.T) {
	b, err := Emit(LevelInfo, "path.started", "entering the cave", map[string]interface{}{"path": "cave"})
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal(b, &e))
	assert.Equal(t, "path.started", e.Name)
	assert.Equal(t, "entering the cave", e.Message)
	assert.Equal(t, "cave", e.Fields["path"])
	_, err = time.Parse(time.RFC3339Nano, e.Timestamp)
	assert.NoError(t, err)
}

func TestEmit_PersistsWithSession(t *testing.T) {
	store := &recordingStore{}
	SetStore(store)
	defer SetStore(nil)

	_, err := Emit(LevelInfo, "quest.started", "", map[string]interface{}{"session_id": "s-1"})
	require.NoError(t, err)
	_, err = Emit(LevelInfo, "system.startup", "", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"quest.started", "system.startup"}, store.names)
	assert.Equal(t, []string{"s-1", ""}, store.sessions)
}

func TestEmit_StoreFailureLoggedOnce(t *testing.T) {
	Clear()
	SetStore(&recordingStore{err: errors.New("connection refused")})
	defer SetStore(nil)

	for i := 0; i < 3; i++ {
		_, err := Emit(LevelInfo, "step.matched", "", nil)
		require.NoError(t, err, "store errors never reach the caller")
	}

	var systemErrors int
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			systemErrors++
		}
	}
	assert.Equal(t, 1, systemErrors)
}

func TestRingBuffer_Wraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Name: "sensor.input", Fields: map[string]interface{}{"i": i}})
	}

	snap := rb.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, 2, snap[0].Fields["i"])
	assert.Equal(t, 4, snap[2].Fields["i"])
	assert.Equal(t, uint64(5), rb.Total())

	rb.Clear()
	assert.Empty(t, rb.Snapshot())
}
