package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/bitsynth"
)

// maxRenderSeconds bounds renders of looping input when no length is given.
const maxRenderSeconds = 600

var flagWAVOut string

func init() {
	renderCmd.Flags().StringVarP(&flagWAVOut, "out", "o", "out.wav", "output WAV path")
	renderCmd.Flags().Float64Var(&flagSeconds, "seconds", 0, "length to render (0 = until the sequence ends)")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [notation]",
	Short: "Render notation to a 16-bit mono WAV file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := resolveInput(args)
		if err != nil {
			return err
		}
		s, err := newLoadedSynth(text)
		if err != nil {
			return err
		}
		src := newFrameSource(s, nil, renderFrames(flagSeconds))
		return writeWAV(flagWAVOut, src)
	},
}

func renderFrames(seconds float64) int {
	if seconds > 0 {
		return bitsynth.FramesFor(seconds)
	}
	return bitsynth.FramesFor(maxRenderSeconds)
}

// writeWAV pulls frames from src until it finishes and writes them to path.
func writeWAV(path string, src *frameSource) error {
	var samples []int16
	for !src.Finished() {
		samples = append(samples, src.NextFrame()...)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bitsynth.EncodeWAV(f, samples); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.2fs)\n", path, float64(len(samples))/bitsynth.SampleRate)
	return nil
}
