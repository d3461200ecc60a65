package sensors

import (
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
)

// Band is a coarse distance class.
type Band string

const (
	BandCovered Band = "covered"
	BandHovered Band = "hovered"
	BandClear   Band = "clear"
)

// Band limits in centimetres.
const (
	CoveredBelow = 6.0
	HoveredBelow = 60.0

	// speedOfSound in cm/s at room temperature.
	speedOfSound = 34300.0
)

// Classify maps a distance to its band.
func Classify(cm float64) Band {
	switch {
	case cm < CoveredBelow:
		return BandCovered
	case cm < HoveredBelow:
		return BandHovered
	default:
		return BandClear
	}
}

// EchoDistance converts a round trip echo time to centimetres.
func EchoDistance(echo time.Duration) float64 {
	return echo.Seconds() * speedOfSound / 2
}

// Distance reports band transitions of an ultrasonic ranger.
type Distance struct {
	ranger hw.Ranger
	primed bool
	last   Band
}

func NewDistance(r hw.Ranger) *Distance {
	return &Distance{ranger: r}
}

// Poll takes one measurement. changed is true only when the band differs
// from the previous successful measurement; the first one only primes it.
func (d *Distance) Poll() (band Band, cm float64, changed bool, err error) {
	echo, err := d.ranger.Echo()
	if err != nil {
		return "", 0, false, err
	}

	cm = EchoDistance(echo)
	band = Classify(cm)
	if !d.primed {
		d.primed = true
		d.last = band
		return band, cm, false, nil
	}

	changed = band != d.last
	d.last = band
	return band, cm, changed, nil
}
