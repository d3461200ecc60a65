package sensors

import (
	"fmt"
	"math"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
)

// Direction is where a joystick is pushed.
type Direction string

const (
	Center Direction = "center"
	Left   Direction = "left"
	Right  Direction = "right"
	Up     Direction = "up"
	Down   Direction = "down"
)

const (
	// DefaultJoystickThreshold is the deflection from rest, as a fraction of
	// full scale, a push has to pass.
	DefaultJoystickThreshold = 0.35
	DefaultCalibration       = time.Second

	calibrationInterval = 10 * time.Millisecond
)

// Joystick reads a two-axis analog stick through an ADC.
type Joystick struct {
	adc       hw.ADC
	xCh, yCh  int
	threshold float64
	sleep     func(time.Duration)

	restX, restY float64
	last         Direction
}

// NewJoystick returns a stick assumed to rest at mid-scale until Calibrate
// says otherwise. A threshold outside (0, 0.5) selects the default.
func NewJoystick(adc hw.ADC, xCh, yCh int, threshold float64) *Joystick {
	if threshold <= 0 || threshold >= 0.5 {
		threshold = DefaultJoystickThreshold
	}
	return &Joystick{
		adc:       adc,
		xCh:       xCh,
		yCh:       yCh,
		threshold: threshold,
		sleep:     time.Sleep,
		restX:     0.5,
		restY:     0.5,
		last:      Center,
	}
}

// Calibrate averages the resting position over d. The stick must be left
// alone meanwhile.
func (j *Joystick) Calibrate(d time.Duration) error {
	n := int(d / calibrationInterval)
	if n < 1 {
		n = 1
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		x, y, err := j.read()
		if err != nil {
			return fmt.Errorf("calibrate joystick: %w", err)
		}
		sumX += x
		sumY += y
		j.sleep(calibrationInterval)
	}
	j.restX = sumX / float64(n)
	j.restY = sumY / float64(n)
	return nil
}

func (j *Joystick) read() (x, y float64, err error) {
	if x, err = j.adc.Read(j.xCh); err != nil {
		return 0, 0, err
	}
	if y, err = j.adc.Read(j.yCh); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Classify maps a position to a direction. The axis deflected further wins;
// a larger x is right and a larger y is down.
func (j *Joystick) Classify(x, y float64) Direction {
	dx, dy := x-j.restX, y-j.restY
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ax <= j.threshold && ay <= j.threshold:
		return Center
	case ax >= ay && dx > 0:
		return Right
	case ax >= ay:
		return Left
	case dy > 0:
		return Down
	default:
		return Up
	}
}

// Poll takes one reading. changed is true when the direction differs from
// the previous reading; the stick starts out centred.
func (j *Joystick) Poll() (dir Direction, x, y float64, changed bool, err error) {
	x, y, err = j.read()
	if err != nil {
		return "", 0, 0, false, err
	}
	dir = j.Classify(x, y)
	changed = dir != j.last
	j.last = dir
	return dir, x, y, changed, nil
}
