package voice

import (
	"math"

	"github.com/cbegin/bitsynth/internal/filter"
	"github.com/cbegin/bitsynth/internal/note"
	"github.com/cbegin/bitsynth/internal/pitch"
	"github.com/cbegin/bitsynth/internal/tempo"
)

const twoPi = math.Pi * 2

// Loudness of each waveform relative to a full-scale sine. Noise is set by
// RMS after the bandpass and then limited to full scale.
const (
	sawScale    = 0.7
	squareScale = 0.5
	noiseRMS    = 0.25
)

// lcg output is uniform in [-1, 1).
var uniformRMS = 1 / math.Sqrt(3)

type Params struct {
	SampleRate     float64
	EnvelopeWindow int // attack and decay ramp length in samples
	Durations      tempo.Func
}

func DefaultParams() Params {
	return Params{
		SampleRate:     tempo.SampleRate,
		EnvelopeWindow: 64,
		Durations:      tempo.Samples,
	}
}

// slot is the oscillator of one chord position. The bandpass only matters
// for noise but lives here for every waveform so a voice's state is fixed
// size.
type slot struct {
	phase float64
	step  float64
	coef  float64
	norm  float64 // noise level correction for coef
	on    bool
	bp    filter.Bandpass
}

// Voice plays one monophonic line of chords from a note sequence.
//
// Oscillator phase and filter state carry over from one note to the next
// within a loaded sequence, whatever the waveform; only Start clears them.
type Voice struct {
	params    Params
	seq       note.Sequence
	cur       note.Index
	note      note.Note
	rest      bool
	processed int
	total     int
	slots     [note.MaxChord]slot
	wave      note.Waveform
	active    bool
	seed      uint64
	noise     uint64
}

// Init configures the voice. seed fixes the noise sequence so renders are
// reproducible.
func (v *Voice) Init(params Params, seed uint64) {
	if params.SampleRate <= 0 {
		params.SampleRate = tempo.SampleRate
	}
	if params.EnvelopeWindow < 0 {
		params.EnvelopeWindow = 0
	}
	if params.Durations == nil {
		params.Durations = tempo.Samples
	}
	*v = Voice{params: params, seed: seed, cur: note.None}
	v.noise = seed
}

// Start begins playing seq from its first note. It returns false and leaves
// the voice idle when seq is empty.
func (v *Voice) Start(seq note.Sequence, wave note.Waveform, bpm int) bool {
	v.Stop()
	for i := range v.slots {
		v.slots[i] = slot{}
	}
	v.noise = v.seed
	v.seq = seq
	v.wave = wave
	first := seq.First()
	if first == note.None {
		return false
	}
	v.active = true
	v.enter(first, bpm)
	return true
}

// Stop makes the voice idle.
func (v *Voice) Stop() {
	v.active = false
	v.cur = note.None
	v.processed = 0
	v.total = 0
}

func (v *Voice) Active() bool            { return v.active }
func (v *Voice) Current() note.Index     { return v.cur }
func (v *Voice) Processed() int          { return v.processed }
func (v *Voice) Total() int              { return v.total }
func (v *Voice) Waveform() note.Waveform { return v.wave }

// Phase returns the oscillator phase of chord slot i.
func (v *Voice) Phase(i int) float64 {
	if i < 0 || i >= len(v.slots) {
		return 0
	}
	return v.slots[i].phase
}

func (v *Voice) enter(i note.Index, bpm int) {
	n, _ := v.seq.At(i)
	v.cur = i
	v.note = n
	v.rest = n.IsRest()
	v.processed = 0
	v.total = v.params.Durations(int(n.Ticks), bpm)
	if v.total < 1 {
		v.total = 1
	}
	chord := n.Chord()
	for k := range v.slots {
		s := &v.slots[k]
		s.on = false
		if k >= len(chord) || chord[k] == note.Rest {
			continue
		}
		freq := pitch.Frequency(chord[k])
		if freq <= 0 {
			continue
		}
		s.on = true
		s.step = freq / v.params.SampleRate
		s.coef = filter.Coefficient(freq, v.params.SampleRate)
		s.norm = noiseRMS / (uniformRMS * filter.NoiseGain(s.coef))
	}
}

func (v *Voice) advance(bpm int, repeat bool) {
	next := v.seq.Next(v.cur)
	if next == note.None {
		if !repeat {
			v.Stop()
			return
		}
		next = v.seq.First()
	}
	v.enter(next, bpm)
}

// Envelope returns the ramp factor for the sample about to be rendered.
func (v *Voice) Envelope() float64 {
	if !v.active {
		return 0
	}
	if v.wave == note.Noise || v.params.EnvelopeWindow == 0 {
		return 1
	}
	w := float64(v.params.EnvelopeWindow)
	env := 1.0
	if v.processed < v.params.EnvelopeWindow {
		env = float64(v.processed) / w
	}
	if rem := v.total - 1 - v.processed; rem < v.params.EnvelopeWindow {
		if d := float64(rem) / w; d < env {
			env = d
		}
	}
	if env < 0 {
		env = 0
	}
	return env
}

// Render computes one sample, scales it by gain and the envelope and adds it
// into dst. bpm sizes any note entered during this step; repeat decides what
// follows the last note.
func (v *Voice) Render(dst *int16, gain float64, bpm int, repeat bool) {
	if !v.active {
		return
	}
	if v.processed >= v.total {
		v.advance(bpm, repeat)
		if !v.active {
			return
		}
	}
	if !v.rest {
		if s := v.chordSample(); s != 0 {
			mixInto(dst, s*gain*v.Envelope())
		}
	}
	v.processed++
	if v.processed >= v.total {
		v.advance(bpm, repeat)
	}
}

func (v *Voice) chordSample() float64 {
	size := int(v.note.Size)
	if size > note.MaxChord {
		size = note.MaxChord
	}
	var sum float64
	for i := 0; i < size; i++ {
		s := &v.slots[i]
		if !s.on {
			continue
		}
		s.phase += s.step
		if s.phase >= 1 {
			s.phase -= math.Floor(s.phase)
		}
		sum += v.oscillate(s)
	}
	if size > 1 {
		sum /= float64(size)
	}
	return sum
}

func (v *Voice) oscillate(s *slot) float64 {
	switch v.wave {
	case note.Saw:
		return (s.phase*2 - 1) * sawScale
	case note.Square:
		if s.phase < 0.5 {
			return -squareScale
		}
		return squareScale
	case note.Noise:
		y := s.bp.Process(lcg(&v.noise), s.coef) * s.norm
		return math.Max(-1, math.Min(1, y))
	default:
		return math.Sin(twoPi * s.phase)
	}
}

// lcg returns a uniform value in [-1, 1).
func lcg(seed *uint64) float64 {
	*seed = *seed*6364136223846793005 + 1442695040888963407
	return float64(int64(*seed>>33)-int64(1<<30)) / float64(1<<30)
}

func mixInto(dst *int16, x float64) {
	if x > 2*math.MaxInt16 {
		x = 2 * math.MaxInt16
	} else if x < 2*math.MinInt16 {
		x = 2 * math.MinInt16
	}
	sum := int32(*dst) + int32(math.Round(x))
	if sum > math.MaxInt16 {
		sum = math.MaxInt16
	}
	if sum < math.MinInt16 {
		sum = math.MinInt16
	}
	*dst = int16(sum)
}
