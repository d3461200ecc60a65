package sensors

import (
	"math"
	"time"

	"github.com/AaronLay10/QuestBox/internal/hw"
)

const (
	DefaultShakeThreshold  = 1.5
	DefaultShakeRefractory = 500 * time.Millisecond
)

// ShakeDetector reports a shake when the acceleration magnitude exceeds the
// threshold, at most once per refractory period.
type ShakeDetector struct {
	threshold  float64
	refractory time.Duration
	now        func() time.Time
	last       time.Time
}

func NewShakeDetector(threshold float64, refractory time.Duration) *ShakeDetector {
	if threshold <= 0 {
		threshold = DefaultShakeThreshold
	}
	if refractory <= 0 {
		refractory = DefaultShakeRefractory
	}
	return &ShakeDetector{threshold: threshold, refractory: refractory, now: time.Now}
}

// Observe feeds one sample in g and returns its magnitude and whether it
// counts as a new shake.
func (s *ShakeDetector) Observe(x, y, z float64) (float64, bool) {
	mag := math.Sqrt(x*x + y*y + z*z)
	if mag <= s.threshold {
		return mag, false
	}

	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.refractory {
		return mag, false
	}
	s.last = now
	return mag, true
}

// Motion polls an accelerometer through a ShakeDetector.
type Motion struct {
	accel    hw.Accelerometer
	detector *ShakeDetector
}

func NewMotion(a hw.Accelerometer, d *ShakeDetector) *Motion {
	return &Motion{accel: a, detector: d}
}

func (m *Motion) Poll() (magnitude float64, shaking bool, err error) {
	x, y, z, err := m.accel.Acceleration()
	if err != nil {
		return 0, false, err
	}
	magnitude, shaking = m.detector.Observe(x, y, z)
	return magnitude, shaking, nil
}
