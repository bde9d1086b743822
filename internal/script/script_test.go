package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cbegin/bitsynth/internal/note"
)

type load struct {
	ch     int
	text   string
	wave   note.Waveform
	repeat bool
}

type fakeSynth struct {
	bpm     int
	volume  int
	loads   []load
	active  [2]bool
	stopped []int
	failOn  string
}

func (f *fakeSynth) LoadChannel(id int, text string, wave note.Waveform, repeat bool) error {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return errors.New("bad pattern")
	}
	f.loads = append(f.loads, load{id, text, wave, repeat})
	f.active[id] = true
	return nil
}

func (f *fakeSynth) StopChannel(id int) error {
	if id < 0 || id > 1 {
		return errors.New("invalid channel")
	}
	f.active[id] = false
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeSynth) StopAll() {
	f.active = [2]bool{}
	f.stopped = append(f.stopped, -1)
}

func (f *fakeSynth) SetTempo(bpm int) {
	if bpm > 0 {
		f.bpm = bpm
	}
}

func (f *fakeSynth) SetVolume(v int) {
	if v >= 0 && v <= 10 {
		f.volume = v
	}
}

func (f *fakeSynth) Volume() int                 { return f.volume }
func (f *fakeSynth) Tempo() int                  { return f.bpm }
func (f *fakeSynth) IsChannelActive(id int) bool { return id >= 0 && id < 2 && f.active[id] }

func newScript(t *testing.T, src string) (*Script, *fakeSynth) {
	t.Helper()
	fs := &fakeSynth{bpm: 100}
	sc := New(fs)
	t.Cleanup(sc.Close)
	if err := sc.Load(src); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sc, fs
}

func TestMusicAndSFX(t *testing.T) {
	_, fs := newScript(t, `
		music("cde", SQUARE)
		music("efg", "saw", false)
		sfx("c", NOISE)
		sfx("d")
	`)
	want := []load{
		{ChannelMusic, "cde", note.Square, true},
		{ChannelMusic, "efg", note.Saw, false},
		{ChannelSFX, "c", note.Noise, false},
		{ChannelSFX, "d", note.WaveDefault, false},
	}
	if len(fs.loads) != len(want) {
		t.Fatalf("expected %d loads, got %d", len(want), len(fs.loads))
	}
	for i, w := range want {
		if fs.loads[i] != w {
			t.Fatalf("load %d: got %+v want %+v", i, fs.loads[i], w)
		}
	}
}

func TestLoadFailureReturnsMessage(t *testing.T) {
	fs := &fakeSynth{bpm: 100, failOn: "?"}
	sc := New(fs)
	defer sc.Close()
	err := sc.Load(`
		ok, msg = music("c?")
		assert(ok == false)
		assert(msg == "bad pattern")
		assert(music("c") == true)
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestBadWaveformRaises(t *testing.T) {
	sc := New(&fakeSynth{})
	defer sc.Close()
	if err := sc.Load(`music("c", 9)`); err == nil {
		t.Fatalf("expected error for waveform code 9")
	}
	if err := sc.Load(`music("c", "triangle")`); err == nil {
		t.Fatalf("expected error for unknown waveform name")
	}
	if err := sc.Load(`music("c", {})`); err == nil {
		t.Fatalf("expected error for table waveform")
	}
}

func TestStopAndPlaying(t *testing.T) {
	_, fs := newScript(t, `
		music("c")
		sfx("d")
		assert(playing(MUSIC))
		stop(SFX)
		assert(not playing(SFX))
		stop()
		assert(not playing(MUSIC))
	`)
	if len(fs.stopped) != 2 || fs.stopped[0] != ChannelSFX || fs.stopped[1] != -1 {
		t.Fatalf("unexpected stops: %v", fs.stopped)
	}
}

func TestStopInvalidChannelRaises(t *testing.T) {
	sc := New(&fakeSynth{})
	defer sc.Close()
	if err := sc.Load(`stop(4)`); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBPM(t *testing.T) {
	_, fs := newScript(t, `
		assert(bpm() == 100)
		assert(bpm(150) == 150)
		bpm(0)
		assert(bpm() == 150)
	`)
	if fs.bpm != 150 {
		t.Fatalf("expected tempo 150, got %d", fs.bpm)
	}
}

func TestUpdateCalledPerFrame(t *testing.T) {
	sc, fs := newScript(t, `
		function update(frame)
			if frame % 2 == 0 then
				sfx("n" .. (60 + frame))
			end
		end
	`)
	if !sc.HasUpdate() {
		t.Fatalf("expected update to be found")
	}
	for i := 0; i < 4; i++ {
		if err := sc.Update(); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if sc.Frame() != 4 {
		t.Fatalf("expected frame 4, got %d", sc.Frame())
	}
	if len(fs.loads) != 2 || fs.loads[0].text != "n60" || fs.loads[1].text != "n62" {
		t.Fatalf("unexpected loads: %+v", fs.loads)
	}
}

func TestUpdateError(t *testing.T) {
	sc, _ := newScript(t, `function update(frame) error("boom") end`)
	if err := sc.Update(); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestNoUpdate(t *testing.T) {
	sc, _ := newScript(t, `music("c")`)
	if sc.HasUpdate() {
		t.Fatalf("unexpected update")
	}
	if err := sc.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestSandbox(t *testing.T) {
	sc := New(&fakeSynth{})
	defer sc.Close()
	if err := sc.Load(`assert(os == nil and io == nil)`); err != nil {
		t.Fatalf("expected os and io to be absent: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lua")
	if err := os.WriteFile(path, []byte(`music("cdef", SINE)`), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := &fakeSynth{}
	sc := New(fs)
	defer sc.Close()
	if err := sc.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if len(fs.loads) != 1 || fs.loads[0].wave != note.Sine {
		t.Fatalf("unexpected loads: %+v", fs.loads)
	}
}

func TestVolume(t *testing.T) {
	fs := &fakeSynth{bpm: 100, volume: 10}
	sc := New(fs)
	defer sc.Close()
	err := sc.Load(`
		assert(volume() == 10)
		assert(volume(4) == 4)
		volume(11)
		volume(-3)
		assert(volume() == 4)
	`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fs.volume != 4 {
		t.Fatalf("expected volume 4, got %d", fs.volume)
	}
}
