package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/bitsynth"
	"github.com/cbegin/bitsynth/internal/audio"
)

func init() {
	playCmd.Flags().StringVar(&flagBackend, "backend", "ebiten", "audio backend: ebiten|oto")
	playCmd.Flags().Float64Var(&flagSeconds, "seconds", 0, "stop after this many seconds (0 = until the sequence ends)")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [notation]",
	Short: "Play notation on the host audio device",
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
		src := newFrameSource(s, nil, bitsynth.FramesFor(flagSeconds))
		return playLive(cmd.Context(), flagBackend, src)
	},
}

// playLive streams src until it finishes or the process is interrupted.
func playLive(ctx context.Context, backend string, src *frameSource) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	out, err := audio.Open(backend, bitsynth.SampleRate, src)
	if err != nil {
		return fmt.Errorf("open %s audio: %w", backend, err)
	}
	defer out.Close()
	out.Play()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for !src.Finished() {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
	// let the device drain what was already queued
	time.Sleep(200 * time.Millisecond)
	fmt.Println("playback completed")
	return nil
}
