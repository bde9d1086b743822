package bitsynth

import (
	"errors"
	"fmt"

	intchan "github.com/cbegin/bitsynth/internal/channel"
	intmml "github.com/cbegin/bitsynth/internal/mml"
	intnote "github.com/cbegin/bitsynth/internal/note"
	inttempo "github.com/cbegin/bitsynth/internal/tempo"
	intvoice "github.com/cbegin/bitsynth/internal/voice"
)

const (
	SampleRate   = inttempo.SampleRate
	FrameRate    = 60
	FrameSamples = SampleRate / FrameRate
)

// Channel ids and their per-voice note capacities.
const (
	ChannelMusic = 0
	ChannelSFX   = 1
	NumChannels  = 2

	MusicCapacity = 512
	SFXCapacity   = 64
)

// MaxVolume is the loudest master volume; the gain applies in full there.
const MaxVolume = 10

// Waveform selects the oscillator of a voice.
type Waveform = intnote.Waveform

const (
	WaveDefault = intnote.WaveDefault
	Sine        = intnote.Sine
	Saw         = intnote.Saw
	Square      = intnote.Square
	Noise       = intnote.Noise
)

// FrameBuffer is one render frame of mono signed 16-bit PCM at SampleRate.
type FrameBuffer [FrameSamples]int16

var (
	ErrInvalidChannel = errors.New("invalid channel")
	ErrArenaFull      = intnote.ErrArenaFull
	ErrEmptySequence  = intchan.ErrEmptySequence
)

// LoadError reports a failed LoadChannel. The channel it names is unchanged.
type LoadError struct {
	Channel int
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load channel %d: %v", e.Channel, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type Option func(*config)

type config struct {
	gain      float64
	volume    int
	bpm       int
	durations inttempo.Func
	parser    intmml.ParserConfig
	window    int
	seed      uint64
}

func defaultConfig() config {
	return config{
		gain:      5000,
		volume:    MaxVolume,
		bpm:       inttempo.DefaultBPM,
		durations: inttempo.Samples,
		parser:    intmml.DefaultParserConfig(),
		window:    intvoice.DefaultParams().EnvelopeWindow,
		seed:      intchan.DefaultParams().Seed,
	}
}

// WithGain sets the peak sample level of a lone voice at full volume.
func WithGain(gain float64) Option {
	return func(cfg *config) {
		if gain >= 0 {
			cfg.gain = gain
		}
	}
}

// WithVolume sets the initial master volume, 0..MaxVolume.
func WithVolume(v int) Option {
	return func(cfg *config) {
		if v >= 0 && v <= MaxVolume {
			cfg.volume = v
		}
	}
}

// WithTempo sets the initial tempo in beats per minute.
func WithTempo(bpm int) Option {
	return func(cfg *config) {
		if bpm > 0 {
			cfg.bpm = bpm
		}
	}
}

// WithDurations replaces the ticks-to-samples conversion.
func WithDurations(fn func(ticks, bpm int) int) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.durations = fn
		}
	}
}

// WithEnvelopeWindow sets the attack and decay ramp length in samples.
func WithEnvelopeWindow(samples int) Option {
	return func(cfg *config) {
		if samples >= 0 {
			cfg.window = samples
		}
	}
}

func WithParserConfig(pc intmml.ParserConfig) Option {
	return func(cfg *config) {
		cfg.parser = pc
	}
}

// WithNoiseSeed fixes the noise generator seed.
func WithNoiseSeed(seed uint64) Option {
	return func(cfg *config) {
		cfg.seed = seed
	}
}

// Synth is the audio core: a fixed set of channels mixed into one frame
// buffer per call to ProcessFrame. It is not safe for concurrent use; loads,
// stops and frames must come from one goroutine.
type Synth struct {
	parser   *intmml.Parser
	channels [NumChannels]*intchan.Channel
	bpm      int
	gain     float64
	volume   int
	frame    FrameBuffer
}

func New(opts ...Option) *Synth {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Synth{
		parser: intmml.NewParser(cfg.parser),
		bpm:    cfg.bpm,
		gain:   cfg.gain,
		volume: cfg.volume,
	}
	capacities := [NumChannels]int{ChannelMusic: MusicCapacity, ChannelSFX: SFXCapacity}
	for id := range s.channels {
		params := intchan.DefaultParams()
		params.Capacity = capacities[id]
		params.Gain = s.scaledGain()
		params.BPM = cfg.bpm
		params.Voice.Durations = cfg.durations
		params.Voice.EnvelopeWindow = cfg.window
		params.Seed = cfg.seed + uint64(id)<<32
		s.channels[id] = intchan.New(params)
	}
	return s
}

// LoadChannel parses text and starts it on channel id. Voices without a
// waveform tag in the text play wave. On failure the channel keeps whatever it
// was playing and the returned error is a *LoadError.
func (s *Synth) LoadChannel(id int, text string, wave Waveform, repeat bool) error {
	return s.LoadChannelSource(id, s.parser.Source(text), wave, repeat)
}

// LoadChannelSource is LoadChannel for notes coming from another parser.
func (s *Synth) LoadChannelSource(id int, src intchan.Source, wave Waveform, repeat bool) error {
	ch, err := s.channel(id)
	if err != nil {
		return &LoadError{Channel: id, Err: err}
	}
	if err := ch.Load(src, wave, repeat); err != nil {
		return &LoadError{Channel: id, Err: err}
	}
	return nil
}

func (s *Synth) StopChannel(id int) error {
	ch, err := s.channel(id)
	if err != nil {
		return err
	}
	ch.Stop()
	return nil
}

func (s *Synth) StopAll() {
	for _, ch := range s.channels {
		ch.Stop()
	}
}

// SetTempo sets the tempo of every channel. Non-positive values are ignored.
func (s *Synth) SetTempo(bpm int) {
	if bpm <= 0 {
		return
	}
	s.bpm = bpm
	for _, ch := range s.channels {
		ch.SetTempo(bpm)
	}
}

func (s *Synth) Tempo() int { return s.bpm }

// SetVolume sets the master volume from 0 (silent) to MaxVolume. Out of range
// values are ignored. It applies to notes already sounding.
func (s *Synth) SetVolume(v int) {
	if v < 0 || v > MaxVolume {
		return
	}
	s.volume = v
	for _, ch := range s.channels {
		ch.SetGain(s.scaledGain())
	}
}

func (s *Synth) Volume() int { return s.volume }

func (s *Synth) scaledGain() float64 {
	return s.gain * float64(s.volume) / MaxVolume
}

// IsChannelActive reports whether any voice of channel id is playing. Unknown
// ids are never active.
func (s *Synth) IsChannelActive(id int) bool {
	ch, err := s.channel(id)
	if err != nil {
		return false
	}
	return ch.Active()
}

// ProcessFrame renders the next frame. The returned buffer is reused by the
// following call.
func (s *Synth) ProcessFrame() *FrameBuffer {
	s.frame = FrameBuffer{}
	for _, ch := range s.channels {
		ch.Mix(s.frame[:])
	}
	return &s.frame
}

// Parser returns the notation parser used by LoadChannel.
func (s *Synth) Parser() *intmml.Parser { return s.parser }

func (s *Synth) channel(id int) (*intchan.Channel, error) {
	if id < 0 || id >= NumChannels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, id)
	}
	return s.channels[id], nil
}
