// Package game runs a quest: the ordered paths a player works through, each
// with its narration, effects, solution sequence and time limit.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AaronLay10/QuestBox/internal/steps"
)

// ErrInvalidQuest is wrapped by every quest loading and validation error.
var ErrInvalidQuest = errors.New("invalid quest")

// Quest is a loaded quest document. It is not modified after loading.
type Quest struct {
	ID                  string `json:"-"`
	Title               string `json:"title"`
	StartingDescription string `json:"starting_description"`
	Paths               []Path `json:"paths"`
}

// Path is one stage of a quest.
type Path struct {
	Name             string           `json:"path_name"`
	Description      string           `json:"description"`
	Hint             string           `json:"hint"`
	SolutionSequence []map[string]any `json:"solution_sequence"`
	TimeLimit        float64          `json:"time_limit"`
	DeathText        string           `json:"death_text"`
	Effects          []map[string]any `json:"effects"`
}

// Limit is the time limit as a duration.
func (p Path) Limit() time.Duration {
	return time.Duration(p.TimeLimit * float64(time.Second))
}

// Solution validates and decodes the solution sequence. Every step must be
// a sensor step.
func (p Path) Solution() ([]steps.SensorStep, error) {
	if len(p.SolutionSequence) == 0 {
		return nil, fmt.Errorf("%w: path %q has an empty solution_sequence", ErrInvalidQuest, p.Name)
	}
	seq := make([]steps.SensorStep, 0, len(p.SolutionSequence))
	for i, raw := range p.SolutionSequence {
		st, err := steps.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: path %q step %d: %w", ErrInvalidQuest, p.Name, i, err)
		}
		sensor, ok := st.(steps.SensorStep)
		if !ok {
			return nil, fmt.Errorf("%w: path %q step %d: solution steps must be sensor steps", ErrInvalidQuest, p.Name, i)
		}
		seq = append(seq, sensor)
	}
	return seq, nil
}

// LoadQuest reads a quest document. The quest id is the file name without
// its extension, matching the <id>/<id>.json layout of the games folder.
func LoadQuest(path string) (*Quest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quest file: %w", err)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseQuest(data, id)
}

// ParseQuest decodes and validates a quest document.
func ParseQuest(data []byte, id string) (*Quest, error) {
	var q Quest
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("%w: failed to parse quest JSON: %w", ErrInvalidQuest, err)
	}
	q.ID = id
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Validate checks the document shape and every solution step. Effects are
// checked when they are sent; an invalid effect is skipped, not fatal.
func (q *Quest) Validate() error {
	if len(q.Paths) == 0 {
		return fmt.Errorf("%w: quest has no paths", ErrInvalidQuest)
	}
	for i, p := range q.Paths {
		if p.Name == "" {
			return fmt.Errorf("%w: paths[%d] has no path_name", ErrInvalidQuest, i)
		}
		if p.TimeLimit <= 0 {
			return fmt.Errorf("%w: path %q time_limit must be positive", ErrInvalidQuest, p.Name)
		}
		if _, err := p.Solution(); err != nil {
			return err
		}
	}
	return nil
}
