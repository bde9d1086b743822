// Package pitch maps note numbers to frequencies.
package pitch

import (
	"math"

	"github.com/cbegin/bitsynth/internal/note"
)

var table [int(note.MaxPitch) + 1]float64

func init() {
	for i := range table {
		table[i] = 440 * math.Pow(2, float64(i-69)/12)
	}
}

// Frequency returns the equal-tempered frequency of p in Hz. Rests and
// out-of-range pitches have no sound and return 0.
func Frequency(p note.Pitch) float64 {
	if p < note.MinPitch || p > note.MaxPitch {
		return 0
	}
	return table[p]
}
