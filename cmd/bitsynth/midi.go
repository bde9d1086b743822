package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/bitsynth/internal/midifile"
	"github.com/cbegin/bitsynth/internal/mml"
	"github.com/cbegin/bitsynth/internal/note"
)

var flagMIDIOut string

func init() {
	midiCmd.Flags().StringVarP(&flagMIDIOut, "out", "o", "out.mid", "output MIDI path")
	rootCmd.AddCommand(midiCmd)
}

var midiCmd = &cobra.Command{
	Use:   "midi [notation]",
	Short: "Export notation as a Standard MIDI File",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := resolveInput(args)
		if err != nil {
			return err
		}
		wave, err := parseWave(flagWave)
		if err != nil {
			return err
		}
		score, err := mml.NewParser(mml.DefaultParserConfig()).Parse(text)
		if err != nil {
			return err
		}
		for i := range score.Voices {
			if score.Voices[i].Wave == note.WaveDefault {
				score.Voices[i].Wave = wave
			}
		}
		f, err := os.Create(flagMIDIOut)
		if err != nil {
			return err
		}
		if err := midifile.Write(f, score.Voices, flagBPM); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d voices)\n", flagMIDIOut, len(score.Voices))
		return nil
	},
}
