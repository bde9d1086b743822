package bitsynth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedDurations(samples int) Option {
	return WithDurations(func(ticks, bpm int) int { return samples })
}

func peak(buf []int16) int {
	m := 0
	for _, v := range buf {
		a := int(v)
		if a < 0 {
			a = -a
		}
		if a > m {
			m = a
		}
	}
	return m
}

func TestNewDefaults(t *testing.T) {
	assert := assert.New(t)

	s := New()
	assert.Equal(100, s.Tempo())
	assert.False(s.IsChannelActive(ChannelMusic))
	assert.False(s.IsChannelActive(ChannelSFX))
	assert.Equal(366, FrameSamples)

	frame := s.ProcessFrame()
	assert.Len(frame[:], FrameSamples)
	assert.Zero(peak(frame[:]))
}

func TestSingleNotePlaysForExactSampleCount(t *testing.T) {
	assert := assert.New(t)

	s := New(fixedDurations(100))
	require.NoError(t, s.LoadChannel(ChannelMusic, "c", Sine, false))
	assert.True(s.IsChannelActive(ChannelMusic))

	frame := s.ProcessFrame()
	assert.False(s.IsChannelActive(ChannelMusic))
	assert.NotZero(peak(frame[:100]))
	assert.Zero(peak(frame[100:]))
}

func TestNoteSpanningFrames(t *testing.T) {
	assert := assert.New(t)

	s := New(fixedDurations(2 * FrameSamples))
	require.NoError(t, s.LoadChannel(ChannelMusic, "c", Square, false))
	s.ProcessFrame()
	assert.True(s.IsChannelActive(ChannelMusic))
	s.ProcessFrame()
	assert.False(s.IsChannelActive(ChannelMusic))
}

func TestRepeatKeepsPlaying(t *testing.T) {
	s := New(fixedDurations(50))
	require.NoError(t, s.LoadChannel(ChannelMusic, "cde", Saw, true))
	for i := 0; i < 10; i++ {
		frame := s.ProcessFrame()
		require.True(t, s.IsChannelActive(ChannelMusic))
		require.NotZero(t, peak(frame[:]))
	}
}

func TestStopChannel(t *testing.T) {
	assert := assert.New(t)

	s := New()
	require.NoError(t, s.LoadChannel(ChannelSFX, "cdefg", Square, true))
	assert.True(s.IsChannelActive(ChannelSFX))

	assert.NoError(s.StopChannel(ChannelSFX))
	assert.False(s.IsChannelActive(ChannelSFX))
	assert.NoError(s.StopChannel(ChannelSFX))
	assert.Zero(peak(s.ProcessFrame()[:]))
}

func TestInvalidChannel(t *testing.T) {
	assert := assert.New(t)

	s := New()
	assert.ErrorIs(s.StopChannel(2), ErrInvalidChannel)
	assert.ErrorIs(s.StopChannel(-1), ErrInvalidChannel)
	assert.False(s.IsChannelActive(7))

	err := s.LoadChannel(5, "c", Sine, false)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(5, le.Channel)
	assert.ErrorIs(err, ErrInvalidChannel)
}

func TestStopAll(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadChannel(ChannelMusic, "c", Sine, true))
	require.NoError(t, s.LoadChannel(ChannelSFX, "e", Sine, true))
	s.StopAll()
	assert.False(t, s.IsChannelActive(ChannelMusic))
	assert.False(t, s.IsChannelActive(ChannelSFX))
}

func TestOversizedLoadLeavesChannelUntouched(t *testing.T) {
	assert := assert.New(t)

	a := New()
	b := New()
	for _, s := range []*Synth{a, b} {
		require.NoError(t, s.LoadChannel(ChannelSFX, "l16 cegc", Square, true))
		s.ProcessFrame()
	}

	err := a.LoadChannel(ChannelSFX, strings.Repeat("c", SFXCapacity+1), Saw, false)
	assert.ErrorIs(err, ErrArenaFull)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(ChannelSFX, le.Channel)
	assert.True(a.IsChannelActive(ChannelSFX))

	for i := 0; i < 4; i++ {
		assert.Equal(*b.ProcessFrame(), *a.ProcessFrame(), "frame %d", i)
	}
}

func TestMusicChannelHoldsMoreNotes(t *testing.T) {
	s := New()
	text := strings.Repeat("c", SFXCapacity+1)
	assert.NoError(t, s.LoadChannel(ChannelMusic, text, Sine, false))
	assert.ErrorIs(t, s.LoadChannel(ChannelMusic, strings.Repeat("c", MusicCapacity+1), Sine, false), ErrArenaFull)
}

func TestSyntaxErrorIsLoadError(t *testing.T) {
	s := New()
	err := s.LoadChannel(ChannelMusic, "c d ?", Sine, false)
	require.Error(t, err)
	var le *LoadError
	assert.True(t, errors.As(err, &le))
	assert.False(t, s.IsChannelActive(ChannelMusic))
}

func TestEmptyLoad(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.LoadChannel(ChannelMusic, "", Sine, false), ErrEmptySequence)
	assert.ErrorIs(t, s.LoadChannel(ChannelMusic, "   ", Sine, false), ErrEmptySequence)
}

func TestSetTempo(t *testing.T) {
	assert := assert.New(t)

	s := New(WithTempo(140))
	assert.Equal(140, s.Tempo())
	s.SetTempo(0)
	s.SetTempo(-20)
	assert.Equal(140, s.Tempo())
	s.SetTempo(90)
	assert.Equal(90, s.Tempo())
}

func TestTempoChangesNoteLength(t *testing.T) {
	slow := New(WithTempo(60))
	fast := New(WithTempo(240))
	require.NoError(t, slow.LoadChannel(ChannelMusic, "l16 c", Sine, false))
	require.NoError(t, fast.LoadChannel(ChannelMusic, "l16 c", Sine, false))

	// A sixteenth is 250ms at 60 bpm and 62.5ms at 240 bpm.
	for i := 0; i < 4; i++ {
		slow.ProcessFrame()
		fast.ProcessFrame()
	}
	assert.True(t, slow.IsChannelActive(ChannelMusic))
	assert.False(t, fast.IsChannelActive(ChannelMusic))
}

func TestChordDoesNotClip(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadChannel(ChannelMusic, "l1 'ceg' 'dfa'", Saw, false))
	max := 0
	for i := 0; i < 20; i++ {
		if p := peak(s.ProcessFrame()[:]); p > max {
			max = p
		}
	}
	assert.NotZero(t, max)
	assert.LessOrEqual(t, max, 5000)
}

func TestChannelsMixTogether(t *testing.T) {
	s := New(WithGain(1000))
	require.NoError(t, s.LoadChannel(ChannelMusic, "l1 c", Square, true))
	require.NoError(t, s.LoadChannel(ChannelSFX, "l1 c", Square, true))
	s.ProcessFrame()
	// Both channels are in phase, so the mix is twice a lone square.
	assert.InDelta(t, 1000, peak(s.ProcessFrame()[:]), 2)
}

func TestNoiseIsDeterministic(t *testing.T) {
	a := New(WithNoiseSeed(7))
	b := New(WithNoiseSeed(7))
	require.NoError(t, a.LoadChannel(ChannelSFX, "@noise c", Sine, false))
	require.NoError(t, b.LoadChannel(ChannelSFX, "@noise c", Sine, false))
	assert.Equal(t, *a.ProcessFrame(), *b.ProcessFrame())
}

func TestProcessFrameDoesNotAllocate(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadChannel(ChannelMusic, "l8 'ceg' d e; @saw o3 c; @noise r c", Sine, true))
	require.NoError(t, s.LoadChannel(ChannelSFX, "l16 cdefgab", Square, true))
	allocs := testing.AllocsPerRun(100, func() {
		s.ProcessFrame()
	})
	assert.Zero(t, allocs)
}

func TestSetVolume(t *testing.T) {
	assert := assert.New(t)

	s := New(WithGain(1000))
	assert.Equal(MaxVolume, s.Volume())
	require.NoError(t, s.LoadChannel(ChannelMusic, "l1 c", Square, true))
	s.ProcessFrame()
	assert.InDelta(500, peak(s.ProcessFrame()[:]), 1)

	s.SetVolume(5)
	assert.Equal(5, s.Volume())
	assert.InDelta(250, peak(s.ProcessFrame()[:]), 1)

	s.SetVolume(11)
	s.SetVolume(-1)
	assert.Equal(5, s.Volume())

	s.SetVolume(0)
	assert.Zero(peak(s.ProcessFrame()[:]))
	assert.True(s.IsChannelActive(ChannelMusic))
}

func TestWithVolume(t *testing.T) {
	s := New(WithGain(1000), WithVolume(2))
	assert.Equal(t, 2, s.Volume())
	require.NoError(t, s.LoadChannel(ChannelSFX, "l1 c", Square, true))
	s.ProcessFrame()
	assert.InDelta(t, 100, peak(s.ProcessFrame()[:]), 1)
	assert.Equal(t, MaxVolume, New(WithVolume(42)).Volume())
}
