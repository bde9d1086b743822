// Package tempo converts note durations in ticks to sample counts.
package tempo

const (
	SampleRate   = 22000
	TicksPerBeat = 48
	DefaultBPM   = 100
)

// Func maps a duration in ticks at a tempo in beats per minute to a number of
// samples.
type Func func(ticks, bpm int) int

// Milliseconds returns the length of ticks at bpm. A non-positive bpm falls
// back to DefaultBPM.
func Milliseconds(ticks, bpm int) int {
	if ticks <= 0 {
		return 0
	}
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	return ticks * 60000 / (bpm * TicksPerBeat)
}

// Samples converts ticks at bpm to samples at SampleRate via milliseconds.
// Any positive duration lasts at least one sample.
func Samples(ticks, bpm int) int {
	if ticks <= 0 {
		return 0
	}
	n := Milliseconds(ticks, bpm) * SampleRate / 1000
	if n < 1 {
		n = 1
	}
	return n
}
