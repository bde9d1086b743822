package channel

import (
	"errors"
	"fmt"

	"github.com/cbegin/bitsynth/internal/note"
	"github.com/cbegin/bitsynth/internal/tempo"
	"github.com/cbegin/bitsynth/internal/voice"
)

// MaxVoices is the number of simultaneous voices in a channel.
const MaxVoices = 3

var (
	ErrEmptySequence = errors.New("sequence has no notes")
	ErrTooManyVoices = errors.New("source wrote too many voices")
)

// Source fills note arenas, one per voice. Decode resets the arenas it is
// given, writes each voice's notes and waveform tag, and returns the number of
// voices written.
type Source interface {
	Decode(dst []*note.Arena, tags []note.Waveform) (int, error)
}

type Params struct {
	Capacity int     // notes per voice
	Gain     float64 // peak level of a lone voice, in sample units
	BPM      int
	Voice    voice.Params
	Seed     uint64 // noise seed; each voice derives its own from it
}

func DefaultParams() Params {
	return Params{
		Capacity: 256,
		Gain:     5000,
		BPM:      tempo.DefaultBPM,
		Voice:    voice.DefaultParams(),
		Seed:     0x9E3779B97F4A7C15,
	}
}

// Channel is a group of voices sharing tempo and repeat policy. Loads go
// through a second set of arenas so a failed load leaves playback untouched.
type Channel struct {
	params  Params
	voices  [MaxVoices]voice.Voice
	live    [MaxVoices]*note.Arena
	staging [MaxVoices]*note.Arena
	tags    [MaxVoices]note.Waveform
	repeat  bool
	bpm     int
	active  int
}

func New(params Params) *Channel {
	def := DefaultParams()
	if params.Capacity <= 0 {
		params.Capacity = def.Capacity
	}
	if params.Gain < 0 {
		params.Gain = 0
	}
	if params.BPM <= 0 {
		params.BPM = def.BPM
	}
	c := &Channel{params: params, bpm: params.BPM}
	for i := range c.voices {
		c.live[i] = note.NewArena(params.Capacity)
		c.staging[i] = note.NewArena(params.Capacity)
		c.voices[i].Init(params.Voice, params.Seed+uint64(i)*0x2545F4914F6CDD1D)
	}
	return c
}

// Load replaces the channel's sequence with the notes decoded from src. Each
// voice plays the waveform tagged by the source, else def, else sine. On error
// the previous sequence keeps playing as if Load was never called.
func (c *Channel) Load(src Source, def note.Waveform, repeat bool) error {
	if src == nil {
		return ErrEmptySequence
	}
	for i := range c.tags {
		c.tags[i] = note.WaveDefault
	}
	n, err := src.Decode(c.staging[:], c.tags[:])
	if err != nil {
		return err
	}
	if n < 0 || n > MaxVoices {
		return fmt.Errorf("%w: %d", ErrTooManyVoices, n)
	}
	notes := 0
	for i := 0; i < n; i++ {
		notes += c.staging[i].Len()
	}
	if notes == 0 {
		return ErrEmptySequence
	}

	c.live, c.staging = c.staging, c.live
	c.repeat = repeat
	c.active = 0
	for i := range c.voices {
		v := &c.voices[i]
		if i >= n {
			v.Stop()
			continue
		}
		wave := c.tags[i]
		if wave == note.WaveDefault {
			wave = def
		}
		if wave == note.WaveDefault {
			wave = note.Sine
		}
		if v.Start(c.live[i].Sequence(), wave, c.bpm) {
			c.active++
		}
	}
	return nil
}

// Stop silences every voice. Stopping an idle channel does nothing.
func (c *Channel) Stop() {
	for i := range c.voices {
		c.voices[i].Stop()
	}
	c.active = 0
}

// SetTempo changes the tempo for notes entered from now on. Non-positive
// values are ignored.
func (c *Channel) SetTempo(bpm int) {
	if bpm <= 0 {
		return
	}
	c.bpm = bpm
}

// SetGain sets the peak level of a lone voice. Negative values are ignored.
func (c *Channel) SetGain(gain float64) {
	if gain < 0 {
		return
	}
	c.params.Gain = gain
}

func (c *Channel) Gain() float64 { return c.params.Gain }

func (c *Channel) Tempo() int        { return c.bpm }
func (c *Channel) Repeat() bool      { return c.repeat }
func (c *Channel) Active() bool      { return c.active > 0 }
func (c *Channel) ActiveVoices() int { return c.active }

// Voice exposes voice i for inspection.
func (c *Channel) Voice(i int) *voice.Voice {
	if i < 0 || i >= MaxVoices {
		return nil
	}
	return &c.voices[i]
}

// Mix adds the channel's output to dst, one sample at a time across all
// voices. The gain of each voice is the channel gain split evenly between the
// voices still active when it renders; a voice that ends mid-sample frees its
// share for the voices after it in that same sample.
func (c *Channel) Mix(dst []int16) {
	if c.active == 0 {
		return
	}
	for i := range dst {
		for k := range c.voices {
			v := &c.voices[k]
			if !v.Active() {
				continue
			}
			v.Render(&dst[i], c.params.Gain/float64(c.active), c.bpm, c.repeat)
			if !v.Active() {
				c.recount()
				if c.active == 0 {
					return
				}
			}
		}
	}
}

func (c *Channel) recount() {
	c.active = 0
	for i := range c.voices {
		if c.voices[i].Active() {
			c.active++
		}
	}
}
