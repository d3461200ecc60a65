package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/QuestBox/internal/config"
	"github.com/AaronLay10/QuestBox/internal/events"
	"github.com/AaronLay10/QuestBox/internal/logging"
)

const ts = "2026-03-01T20:00:00Z"

func line(t *testing.T, e events.Event) string {
	t.Helper()
	p, ok := Point(e)
	require.True(t, ok, "event %s should map to a point", e.Name)
	return write.PointToLineProtocol(p, time.Second)
}

func TestPoint_SensorInput(t *testing.T) {
	got := line(t, events.Event{Timestamp: ts, Name: "sensor.input", Fields: map[string]interface{}{
		"device_type": "distance_sensor",
		"value":       "covered",
		"distance_cm": 4.5,
		"name":        "well",
	}})
	assert.Contains(t, got, "sensor_input,device_type=distance_sensor,value=covered count=1i,distance_cm=4.5 1772395200")
}

func TestPoint_PathOutcome(t *testing.T) {
	got := line(t, events.Event{Timestamp: ts, Name: "path.succeeded", Fields: map[string]interface{}{
		"quest": "cove", "path": "Siren", "elapsed_ms": int64(1500), "hints": 1, "mismatches": 0,
	}})
	assert.Contains(t, got, "path_outcome,outcome=succeeded,path=Siren,quest=cove ")
	assert.Contains(t, got, "elapsed_ms=1500")
	assert.Contains(t, got, "hints=1")
}

func TestPoint_Others(t *testing.T) {
	assert.Contains(t, line(t, events.Event{Timestamp: ts, Name: "quest.lost", Fields: map[string]interface{}{"quest": "cove"}}),
		"quest_outcome,outcome=lost,quest=cove count=1i")
	assert.Contains(t, line(t, events.Event{Timestamp: ts, Name: "step.mismatched", Fields: map[string]interface{}{"quest": "cove", "path": "Siren"}}),
		"step,path=Siren,quest=cove,result=mismatched")
	assert.Contains(t, line(t, events.Event{Timestamp: ts, Name: "input.dropped"}), "drops,kind=input")

	for _, name := range []string{"path.started", "quest.started", "timer.started", "output.dispatched"} {
		_, ok := Point(events.Event{Timestamp: ts, Name: name})
		assert.False(t, ok, name)
	}
}

type recorder struct {
	mu     sync.Mutex
	points []*write.Point
}

func (r *recorder) WritePoint(p *write.Point) {
	r.mu.Lock()
	r.points = append(r.points, p)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func TestForward(t *testing.T) {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Forward(ctx, rec, sub)
		close(done)
	}()

	_, err := events.Emit(events.LevelInfo, "sensor.input", "", map[string]interface{}{"device_type": "button", "value": "red"})
	require.NoError(t, err)
	_, err = events.Emit(events.LevelInfo, "timer.started", "", nil)
	require.NoError(t, err)
	_, err = events.Emit(events.LevelInfo, "quest.won", "", map[string]interface{}{"quest": "cove"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.TelemetryConfig{}, "", logging.Discard())
	assert.ErrorIs(t, err, ErrDisabled)
}
