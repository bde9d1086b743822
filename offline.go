package bitsynth

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Render runs frames calls of ProcessFrame and returns the concatenated PCM.
func Render(s *Synth, frames int) []int16 {
	if frames <= 0 {
		return nil
	}
	out := make([]int16, 0, frames*FrameSamples)
	for i := 0; i < frames; i++ {
		out = append(out, s.ProcessFrame()[:]...)
	}
	return out
}

// FramesFor returns the number of frames covering seconds of audio.
func FramesFor(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	n := int(seconds*FrameRate + 0.5)
	if n == 0 {
		n = 1
	}
	return n
}

// EncodeWAV writes samples as a mono 16-bit PCM WAV file at SampleRate.
func EncodeWAV(w io.WriteSeeker, samples []int16) error {
	enc := wav.NewEncoder(w, SampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
