package sensors

import (
	"fmt"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
)

// DefaultStepsPerOption is the number of counted edges per detent change.
const DefaultStepsPerOption = 4

var (
	// PictureOptions are the faces of the picture dial.
	PictureOptions = []string{
		"dynamite", "knife", "candle", "rope", "key",
		"book", "dice", "potion", "stick", "compass",
	}
	// NumberOptions are the faces of the number dial.
	NumberOptions = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
)

// Quadrature decodes a two-line incremental encoder. Every edge on the clock
// line counts one step; the data line sampled at that edge gives the
// direction. Once the count reaches steps in either direction Update reports
// a move of one option and the count restarts.
type Quadrature struct {
	steps   int
	primed  bool
	lastClk bool
	count   int
}

func NewQuadrature(steps int) *Quadrature {
	if steps <= 0 {
		steps = DefaultStepsPerOption
	}
	return &Quadrature{steps: steps}
}

// Update returns +1 for a clockwise option change, -1 for counter-clockwise
// and 0 otherwise.
func (q *Quadrature) Update(clk, dt bool) int {
	if !q.primed {
		q.primed = true
		q.lastClk = clk
		return 0
	}
	if clk == q.lastClk {
		return 0
	}
	q.lastClk = clk

	if dt != clk {
		q.count++
	} else {
		q.count--
	}

	switch {
	case q.count >= q.steps:
		q.count = 0
		return 1
	case q.count <= -q.steps:
		q.count = 0
		return -1
	}
	return 0
}

// RotaryReading is the outcome of one rotary poll.
type RotaryReading struct {
	Moved     int
	Index     int
	Option    string
	Committed bool
}

// Rotary is a detented dial over a fixed option list with a push button to
// commit the selected option.
type Rotary struct {
	clk, dt hw.InputPin
	button  *Button
	decoder *Quadrature
	options []string
	index   int
}

func NewRotary(clk, dt, button hw.InputPin, options []string, steps int, debounce time.Duration) (*Rotary, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("rotary encoder needs at least one option")
	}
	return &Rotary{
		clk:     clk,
		dt:      dt,
		button:  NewButton(func() (bool, error) { return button.Read(), nil }, debounce),
		decoder: NewQuadrature(steps),
		options: options,
	}, nil
}

// Poll samples both encoder lines and the button once.
func (r *Rotary) Poll() (RotaryReading, error) {
	moved := r.decoder.Update(r.clk.Read(), r.dt.Read())
	if moved != 0 {
		n := len(r.options)
		r.index = ((r.index+moved)%n + n) % n
	}

	committed, err := r.button.Poll()
	if err != nil {
		return RotaryReading{}, err
	}

	return RotaryReading{
		Moved:     moved,
		Index:     r.index,
		Option:    r.options[r.index],
		Committed: committed,
	}, nil
}
