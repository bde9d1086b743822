package note

import (
	"errors"
	"strings"
)

// MaxChord is the number of pitches a single note can sound at once.
const MaxChord = 3

// Pitch is a MIDI note number. Rest marks a silent chord slot.
type Pitch int16

const (
	Rest     Pitch = -1
	MinPitch Pitch = 0
	MaxPitch Pitch = 127
)

var (
	ErrChordTooLarge = errors.New("chord has too many pitches")
	ErrBadPitch      = errors.New("pitch out of range")
	ErrBadDuration   = errors.New("duration out of range")
)

// MaxTicks is the longest duration a note can carry.
const MaxTicks = 1<<16 - 1

// Note is an immutable chord of up to MaxChord pitches held for Ticks.
type Note struct {
	Pitches [MaxChord]Pitch
	Size    uint8
	Ticks   uint16
}

// NewNote builds a note from its duration and pitches. No pitches means a rest.
func NewNote(ticks int, pitches ...Pitch) (Note, error) {
	if ticks < 0 || ticks > MaxTicks {
		return Note{}, ErrBadDuration
	}
	if len(pitches) > MaxChord {
		return Note{}, ErrChordTooLarge
	}
	n := Note{Size: uint8(len(pitches)), Ticks: uint16(ticks)}
	for i := range n.Pitches {
		n.Pitches[i] = Rest
	}
	for i, p := range pitches {
		if p != Rest && (p < MinPitch || p > MaxPitch) {
			return Note{}, ErrBadPitch
		}
		n.Pitches[i] = p
	}
	return n, nil
}

// IsRest reports whether the note makes no sound.
func (n Note) IsRest() bool {
	for i := 0; i < int(n.Size) && i < MaxChord; i++ {
		if n.Pitches[i] != Rest {
			return false
		}
	}
	return true
}

// Chord returns the used slots of the note.
func (n Note) Chord() []Pitch {
	size := int(n.Size)
	if size > MaxChord {
		size = MaxChord
	}
	return n.Pitches[:size]
}

// Waveform selects the oscillator a voice plays with.
type Waveform uint8

const (
	WaveDefault Waveform = iota
	Sine
	Saw
	Square
	Noise
)

var waveNames = [...]string{
	WaveDefault: "default",
	Sine:        "sine",
	Saw:         "saw",
	Square:      "square",
	Noise:       "noise",
}

func (w Waveform) String() string {
	if int(w) < len(waveNames) {
		return waveNames[w]
	}
	return "unknown"
}

// ParseWaveform accepts a waveform name or the console's numeric code
// (0=sine, 1=saw, 2=square, 3=noise).
func ParseWaveform(s string) (Waveform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sine", "sin", "0":
		return Sine, true
	case "saw", "sawtooth", "1":
		return Saw, true
	case "square", "sq", "2":
		return Square, true
	case "noise", "3":
		return Noise, true
	}
	return WaveDefault, false
}

// WaveformCode maps the console's numeric code to a waveform.
func WaveformCode(code int) (Waveform, bool) {
	switch code {
	case 0:
		return Sine, true
	case 1:
		return Saw, true
	case 2:
		return Square, true
	case 3:
		return Noise, true
	}
	return WaveDefault, false
}
