package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/cbegin/bitsynth"
	"github.com/cbegin/bitsynth/internal/effects"
	"github.com/cbegin/bitsynth/internal/note"
	"github.com/cbegin/bitsynth/internal/script"
)

const defaultMML = "o5 l8 c e g >c< g e c4"

var (
	flagWave    string
	flagBPM     int
	flagLoop    bool
	flagChannel int
	flagFile    string
	flagSeconds float64
	flagBackend string

	flagDelay  float64
	flagReverb float64
	flagLimit  bool
)

var rootCmd = &cobra.Command{
	Use:   "bitsynth",
	Short: "Frame-synchronous chip synth",
	Long: `bitsynth plays note notation on a two channel chip synth, renders it to
WAV, exports it as a MIDI file or drives it from a Lua script.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagWave, "wave", "sine", "default waveform: sine|saw|square|noise")
	pf.IntVar(&flagBPM, "bpm", 100, "tempo in beats per minute")
	pf.BoolVar(&flagLoop, "loop", false, "repeat the sequence")
	pf.IntVar(&flagChannel, "channel", bitsynth.ChannelMusic, "channel to load: 0 music, 1 sfx")
	pf.StringVarP(&flagFile, "file", "f", "", "read notation from a file")
	pf.Float64Var(&flagDelay, "delay", 0, "echo delay in ms (0 = off)")
	pf.Float64Var(&flagReverb, "reverb", 0, "reverb wet mix 0..1 (0 = off)")
	pf.BoolVar(&flagLimit, "limit", false, "limit the mixed output")
}

// postChain builds the effects selected on the command line.
func postChain() *effects.Chain {
	c := effects.NewChain()
	if flagDelay > 0 {
		c.Add(effects.NewDelay(bitsynth.SampleRate, flagDelay, 0.35, 0.3))
	}
	if flagReverb > 0 {
		c.Add(effects.NewReverb(bitsynth.SampleRate, 0.6, 0.7, float32(flagReverb)))
	}
	if flagLimit {
		c.Add(effects.NewCompressor(bitsynth.SampleRate, -6, 20, 1, 80, 0))
	}
	return c
}

func main() {
	log.SetFlags(0)
	cobra.CheckErr(rootCmd.Execute())
}

func resolveInput(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if strings.TrimSpace(flagFile) != "" {
		data, err := os.ReadFile(flagFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return defaultMML, nil
}

func parseWave(name string) (note.Waveform, error) {
	w, ok := note.ParseWaveform(name)
	if !ok {
		return note.WaveDefault, fmt.Errorf("invalid --wave %q (expected sine|saw|square|noise)", name)
	}
	return w, nil
}

// newLoadedSynth builds a synth at --bpm and loads text into --channel.
func newLoadedSynth(text string) (*bitsynth.Synth, error) {
	wave, err := parseWave(flagWave)
	if err != nil {
		return nil, err
	}
	s := bitsynth.New(bitsynth.WithTempo(flagBPM))
	if err := s.LoadChannel(flagChannel, text, wave, flagLoop); err != nil {
		return nil, err
	}
	return s, nil
}

// frameSource runs the per-frame work on the audio goroutine: the script's
// update, then synthesis. Only done is shared with other goroutines.
type frameSource struct {
	synth    *bitsynth.Synth
	script   *script.Script
	post     *effects.Chain
	out      bitsynth.FrameBuffer
	done     atomic.Bool
	failed   bool
	frames   int
	maxFrame int // 0 = unbounded
}

func newFrameSource(s *bitsynth.Synth, sc *script.Script, maxFrame int) *frameSource {
	return &frameSource{synth: s, script: sc, post: postChain(), maxFrame: maxFrame}
}

func (f *frameSource) NextFrame() []int16 {
	if f.script != nil && !f.failed {
		if err := f.script.Update(); err != nil {
			log.Printf("script: %v", err)
			f.failed = true
		}
	}
	f.out = *f.synth.ProcessFrame()
	f.post.ProcessFrame(f.out[:])
	f.frames++
	if f.maxFrame > 0 && f.frames >= f.maxFrame {
		f.done.Store(true)
	}
	if (f.script == nil || !f.script.HasUpdate() || f.failed) && !f.anyActive() {
		f.done.Store(true)
	}
	return f.out[:]
}

func (f *frameSource) Finished() bool { return f.done.Load() }

func (f *frameSource) anyActive() bool {
	for id := 0; id < bitsynth.NumChannels; id++ {
		if f.synth.IsChannelActive(id) {
			return true
		}
	}
	return false
}
