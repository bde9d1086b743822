// Package midifile exports parsed voices as a Standard MIDI File.
package midifile

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/bitsynth/internal/mml"
	"github.com/cbegin/bitsynth/internal/note"
	"github.com/cbegin/bitsynth/internal/tempo"
)

const (
	Velocity     = 100
	DrumChannel  = 9
	maxMIDIVoice = 16
)

// Build lays out one track per voice after a tempo track. Voice i plays on
// MIDI channel i, except noise voices, which go to the drum channel. Chords
// become simultaneous notes.
func Build(voices []mml.Voice, bpm int) (*smf.SMF, error) {
	if bpm <= 0 {
		bpm = tempo.DefaultBPM
	}
	if len(voices) > maxMIDIVoice {
		return nil, fmt.Errorf("midifile: %d voices, at most %d", len(voices), maxMIDIVoice)
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(tempo.TicksPerBeat)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(float64(bpm)))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("midifile: tempo track: %w", err)
	}

	for i, v := range voices {
		ch := uint8(i)
		if v.Wave == note.Noise {
			ch = DrumChannel
		}
		track := voiceTrack(v, ch)
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("midifile: voice %d: %w", i, err)
		}
	}
	return sm, nil
}

func voiceTrack(v mml.Voice, ch uint8) smf.Track {
	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(v.Wave.String()))
	var delta uint32
	var keys [note.MaxChord]uint8
	for _, n := range v.Notes {
		k := 0
		for _, p := range n.Chord() {
			if p < note.MinPitch || p > note.MaxPitch || seen(keys[:k], uint8(p)) {
				continue
			}
			keys[k] = uint8(p)
			k++
		}
		if k == 0 {
			delta += uint32(n.Ticks)
			continue
		}
		for _, key := range keys[:k] {
			track.Add(delta, midi.NoteOn(ch, key, Velocity))
			delta = 0
		}
		delta = uint32(n.Ticks)
		for _, key := range keys[:k] {
			track.Add(delta, midi.NoteOff(ch, key))
			delta = 0
		}
	}
	track.Close(delta)
	return track
}

func seen(keys []uint8, key uint8) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// Write encodes voices at bpm to w.
func Write(w io.Writer, voices []mml.Voice, bpm int) error {
	sm, err := Build(voices, bpm)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("midifile: write: %w", err)
	}
	return nil
}
