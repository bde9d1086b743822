package mml

import (
	"errors"
	"fmt"

	"github.com/cbegin/bitsynth/internal/note"
	"github.com/cbegin/bitsynth/internal/tempo"
)

var ErrTooManyVoices = errors.New("too many voices")

// SyntaxError reports malformed notation. Pos is a byte offset into the
// voice's text after comments and loops have been expanded.
type SyntaxError struct {
	Voice int
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mml: voice %d at %d: %s", e.Voice, e.Pos, e.Msg)
}

// Voice is one parsed line of notes.
type Voice struct {
	Wave  note.Waveform
	Notes []note.Note
}

// Score holds every voice of a parsed notation string.
type Score struct {
	TicksPerBeat int
	Voices       []Voice
}

type ParserConfig struct {
	TicksPerBeat   int
	DefaultLValue  int
	DefaultOctave  int
	MinOctave      int
	MaxOctave      int
	OctavePolarize int // -1: '>' raises the octave, 1: '<' raises it
	MaxVoices      int
	MaxExpanded    int // upper bound on a voice's text after loop expansion
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		TicksPerBeat:   tempo.TicksPerBeat,
		DefaultLValue:  4,
		DefaultOctave:  5,
		MinOctave:      0,
		MaxOctave:      9,
		OctavePolarize: -1,
		MaxVoices:      3,
		MaxExpanded:    1 << 16,
	}
}
