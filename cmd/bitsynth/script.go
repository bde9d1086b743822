package main

import (
	"github.com/spf13/cobra"

	"github.com/cbegin/bitsynth"
	"github.com/cbegin/bitsynth/internal/script"
)

var flagScriptOut string

func init() {
	scriptCmd.Flags().StringVar(&flagBackend, "backend", "ebiten", "audio backend: ebiten|oto")
	scriptCmd.Flags().Float64Var(&flagSeconds, "seconds", 0, "stop after this many seconds (0 = until silent, or forever with update)")
	scriptCmd.Flags().StringVarP(&flagScriptOut, "out", "o", "", "render to this WAV path instead of playing")
	rootCmd.AddCommand(scriptCmd)
}

var scriptCmd = &cobra.Command{
	Use:   "script <file.lua>",
	Short: "Run a Lua script against the synth",
	Long: `Runs a Lua script with music, sfx, stop, bpm and playing bound to the
synth. If the script defines update(frame) it is called before every frame.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := bitsynth.New(bitsynth.WithTempo(flagBPM))
		sc := script.New(s)
		defer sc.Close()
		if err := sc.LoadFile(args[0]); err != nil {
			return err
		}
		if flagScriptOut != "" {
			return writeWAV(flagScriptOut, newFrameSource(s, sc, renderFrames(flagSeconds)))
		}
		return playLive(cmd.Context(), flagBackend, newFrameSource(s, sc, bitsynth.FramesFor(flagSeconds)))
	},
}
