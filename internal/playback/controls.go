package playback

import (
	"fmt"
	"math"
)

// SpeedPresets are the playback rates offered to the viewer.
var SpeedPresets = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// SeekStep is the jump used by the skip controls.
const SeekStep = 10.0

// ValidRate reports whether m is one of SpeedPresets.
func ValidRate(m float64) bool {
	for _, p := range SpeedPresets {
		if math.Abs(p-m) < 1e-9 {
			return true
		}
	}
	return false
}

// SeekRelative moves the position by delta seconds, clamped to [0, duration]
// when the duration is known. It returns the new position.
func SeekRelative(t Transport, delta float64) (float64, error) {
	pos, err := t.Position()
	if err != nil {
		return 0, err
	}
	target := math.Max(0, pos+delta)
	if dur, err := t.Duration(); err == nil && dur > 0 && target > dur {
		target = dur
	}
	if err := t.SetPosition(target); err != nil {
		return 0, err
	}
	return target, nil
}

// FormatClock renders seconds as MM:SS, or HH:MM:SS from one hour up.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Progress is the played share of the media in percent.
func Progress(pos, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return math.Min(100, math.Max(0, pos/duration*100))
}
