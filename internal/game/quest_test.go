package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/QuestBox/internal/input"
	"github.com/AaronLay10/QuestBox/internal/steps"
)

func TestLoadQuest(t *testing.T) {
	q, err := LoadQuest("testdata/pirate_cove.json")
	require.NoError(t, err)

	assert.Equal(t, "pirate_cove", q.ID)
	assert.Equal(t, "Pirate Cove", q.Title)
	require.Len(t, q.Paths, 2)
	assert.Equal(t, 90*time.Second, q.Paths[0].Limit())

	seq, err := q.Paths[1].Solution()
	require.NoError(t, err)
	assert.Equal(t, "rotary_encoder_picture", seq[0].Type)
	assert.Equal(t, "Parrot", seq[0].Value())
}

func TestParseQuest_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
	}{
		{"bad json", `{"paths": [`, nil},
		{"no paths", `{"title": "x", "paths": []}`, nil},
		{"no name", `{"paths": [{"time_limit": 5, "solution_sequence": [{"sensor": "gyro", "value": "shaking"}]}]}`, nil},
		{"zero limit", `{"paths": [{"path_name": "a", "time_limit": 0, "solution_sequence": [{"sensor": "gyro", "value": "shaking"}]}]}`, nil},
		{"empty sequence", `{"paths": [{"path_name": "a", "time_limit": 5, "solution_sequence": []}]}`, nil},
		{"unknown sensor", `{"paths": [{"path_name": "a", "time_limit": 5, "solution_sequence": [{"sensor": "laser", "value": 1}]}]}`, steps.ErrUnknownType},
		{"missing value", `{"paths": [{"path_name": "a", "time_limit": 5, "solution_sequence": [{"sensor": "button"}]}]}`, steps.ErrValidation},
		{"actuator in solution", `{"paths": [{"path_name": "a", "time_limit": 5, "solution_sequence": [{"actuator": "light", "mode": "static"}]}]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuest([]byte(tt.doc), "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuest)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	button := steps.SensorStep{Type: "button", Params: map[string]any{"value": "red"}}
	assert.True(t, Matches(button, input.NewEvent("button", "red", nil)))
	assert.False(t, Matches(button, input.NewEvent("button", "blue", nil)))
	assert.False(t, Matches(button, input.NewEvent("joystick", "red", nil)))

	counted := steps.SensorStep{Type: "button", Params: map[string]any{"value": "red", "times": float64(3)}}
	assert.True(t, Matches(counted, input.NewEvent("button", "red", map[string]any{"times": 3})))
	assert.False(t, Matches(counted, input.NewEvent("button", "red", map[string]any{"times": 2})))
	assert.False(t, Matches(counted, input.NewEvent("button", "red", nil)), "missing metadata")

	number := steps.SensorStep{Type: "rotary_encoder_number", Params: map[string]any{"value": float64(7)}}
	assert.True(t, Matches(number, input.NewEvent("rotary_encoder_number", 7, nil)))
	assert.False(t, Matches(number, input.NewEvent("rotary_encoder_number", "7", nil)))
}

func TestIsControl(t *testing.T) {
	assert.True(t, IsControl(input.NewEvent("button", "hint", nil)))
	assert.True(t, IsControl(input.NewEvent("button", "repeat", nil)))
	assert.False(t, IsControl(input.NewEvent("button", "red", nil)))
	assert.False(t, IsControl(input.NewEvent("gyro", "hint", nil)))
}

func TestDeadline(t *testing.T) {
	d := StartDeadline(10 * time.Millisecond)
	select {
	case <-d.Expired():
	case <-time.After(time.Second):
		t.Fatal("deadline never fired")
	}
	assert.True(t, d.Fired())
	assert.False(t, d.Cancel())
	assert.Zero(t, d.Remaining())

	d = StartDeadline(time.Hour)
	assert.False(t, d.Fired())
	assert.Greater(t, d.Remaining(), 59*time.Minute)
	assert.True(t, d.Cancel())
	assert.True(t, d.Cancel(), "cancel is idempotent")
	assert.False(t, d.Fired())
}

func TestPathStateFailed(t *testing.T) {
	assert.True(t, PathTimedOut.Failed())
	assert.True(t, PathFailed.Failed())
	assert.False(t, PathSucceeded.Failed())
}
