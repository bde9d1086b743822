package midifile

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/bitsynth/internal/mml"
)

type noteEvent struct {
	on   bool
	ch   uint8
	key  uint8
	tick int64
}

func events(t *testing.T, tr smf.Track) []noteEvent {
	t.Helper()
	var out []noteEvent
	var abs int64
	for _, ev := range tr {
		abs += int64(ev.Delta)
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			out = append(out, noteEvent{true, ch, key, abs})
		case ev.Message.GetNoteOff(&ch, &key, &vel):
			out = append(out, noteEvent{false, ch, key, abs})
		}
	}
	return out
}

func roundTrip(t *testing.T, text string, bpm int) *smf.SMF {
	t.Helper()
	score, err := mml.NewParser(mml.DefaultParserConfig()).Parse(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, score.Voices, bpm); err != nil {
		t.Fatalf("write: %v", err)
	}
	sm, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return sm
}

func TestWriteMelodyWithChordAndRest(t *testing.T) {
	sm := roundTrip(t, "o5 l4 c 'ceg' r d", 120)
	if len(sm.Tracks) != 2 {
		t.Fatalf("expected tempo track plus one voice, got %d tracks", len(sm.Tracks))
	}
	if tf, ok := sm.TimeFormat.(smf.MetricTicks); !ok || uint16(tf) != 48 {
		t.Fatalf("unexpected time format %v", sm.TimeFormat)
	}
	want := []noteEvent{
		{true, 0, 60, 0},
		{false, 0, 60, 48},
		{true, 0, 60, 48},
		{true, 0, 64, 48},
		{true, 0, 67, 48},
		{false, 0, 60, 96},
		{false, 0, 64, 96},
		{false, 0, 67, 96},
		{true, 0, 62, 144},
		{false, 0, 62, 192},
	}
	got := events(t, sm.Tracks[1])
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteTempo(t *testing.T) {
	sm := roundTrip(t, "c", 90)
	var bpm float64
	found := false
	for _, ev := range sm.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			found = true
		}
	}
	if !found || bpm < 89.9 || bpm > 90.1 {
		t.Fatalf("expected tempo 90, got %v (found=%v)", bpm, found)
	}
}

func TestWriteNoiseOnDrumChannel(t *testing.T) {
	sm := roundTrip(t, "c; @noise c; e", 100)
	if len(sm.Tracks) != 4 {
		t.Fatalf("expected 4 tracks, got %d", len(sm.Tracks))
	}
	chans := []uint8{0, DrumChannel, 2}
	for i, want := range chans {
		ev := events(t, sm.Tracks[i+1])
		if len(ev) == 0 || ev[0].ch != want {
			t.Fatalf("voice %d: expected channel %d, got %+v", i, want, ev)
		}
	}
}

func TestWriteDuplicateChordKeys(t *testing.T) {
	sm := roundTrip(t, "'cc'", 100)
	if got := events(t, sm.Tracks[1]); len(got) != 2 {
		t.Fatalf("expected one note on and off, got %+v", got)
	}
}
