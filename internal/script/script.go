// Package script drives a synth from Lua. Scripts call music, sfx, stop, bpm,
// volume and playing, and may define update(frame), which the host calls once per
// frame before the frame is synthesized.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/cbegin/bitsynth/internal/note"
)

// Synth is the part of the synth a script can reach.
type Synth interface {
	LoadChannel(id int, text string, wave note.Waveform, repeat bool) error
	StopChannel(id int) error
	StopAll()
	SetTempo(bpm int)
	Tempo() int
	SetVolume(v int)
	Volume() int
	IsChannelActive(id int) bool
}

// Channel ids as seen by scripts.
const (
	ChannelMusic = 0
	ChannelSFX   = 1
)

type Script struct {
	L      *lua.LState
	synth  Synth
	frame  int
	update *lua.LFunction
}

// New returns a script host bound to s. Only the base, table, string and math
// libraries are opened.
func New(s Synth) *Script {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	sc := &Script{L: L, synth: s}
	sc.register()
	return sc
}

func (sc *Script) register() {
	L := sc.L
	consts := map[string]int{
		"MUSIC":  ChannelMusic,
		"SFX":    ChannelSFX,
		"SINE":   0,
		"SAW":    1,
		"SQUARE": 2,
		"NOISE":  3,
	}
	for name, v := range consts {
		L.SetGlobal(name, lua.LNumber(v))
	}
	L.SetGlobal("bpm", L.NewFunction(sc.luaBPM))
	L.SetGlobal("volume", L.NewFunction(sc.luaVolume))
	L.SetGlobal("music", L.NewFunction(sc.luaMusic))
	L.SetGlobal("sfx", L.NewFunction(sc.luaSFX))
	L.SetGlobal("stop", L.NewFunction(sc.luaStop))
	L.SetGlobal("playing", L.NewFunction(sc.luaPlaying))
}

// Load runs src and picks up its update function, if any.
func (sc *Script) Load(src string) error {
	if err := sc.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	sc.bindUpdate()
	return nil
}

func (sc *Script) LoadFile(path string) error {
	if err := sc.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	sc.bindUpdate()
	return nil
}

func (sc *Script) bindUpdate() {
	sc.update = nil
	if fn, ok := sc.L.GetGlobal("update").(*lua.LFunction); ok {
		sc.update = fn
	}
}

func (sc *Script) HasUpdate() bool { return sc.update != nil }

// Frame is the number of completed Update calls.
func (sc *Script) Frame() int { return sc.frame }

// Update calls the script's update(frame). It is a no-op for scripts without
// one.
func (sc *Script) Update() error {
	frame := sc.frame
	sc.frame++
	if sc.update == nil {
		return nil
	}
	err := sc.L.CallByParam(lua.P{Fn: sc.update, NRet: 0, Protect: true}, lua.LNumber(frame))
	if err != nil {
		return fmt.Errorf("update(%d): %w", frame, err)
	}
	return nil
}

func (sc *Script) Close() { sc.L.Close() }

// bpm([n]) sets the tempo when n is given and returns the current tempo.
func (sc *Script) luaBPM(L *lua.LState) int {
	if L.GetTop() >= 1 {
		sc.synth.SetTempo(L.CheckInt(1))
	}
	L.Push(lua.LNumber(sc.synth.Tempo()))
	return 1
}

// volume([n]) sets the master volume (0..10) when n is given and returns the
// current volume.
func (sc *Script) luaVolume(L *lua.LState) int {
	if L.GetTop() >= 1 {
		sc.synth.SetVolume(L.CheckInt(1))
	}
	L.Push(lua.LNumber(sc.synth.Volume()))
	return 1
}

// music(text [, wave [, loop]]); loop defaults to true.
func (sc *Script) luaMusic(L *lua.LState) int {
	text := L.CheckString(1)
	wave := checkWave(L, 2)
	repeat := L.OptBool(3, true)
	return sc.load(L, ChannelMusic, text, wave, repeat)
}

// sfx(text [, wave]) plays once.
func (sc *Script) luaSFX(L *lua.LState) int {
	text := L.CheckString(1)
	wave := checkWave(L, 2)
	return sc.load(L, ChannelSFX, text, wave, false)
}

// Load failures are returned to the script as false plus a message rather
// than raised, so a bad pattern does not kill the script.
func (sc *Script) load(L *lua.LState, ch int, text string, wave note.Waveform, repeat bool) int {
	if err := sc.synth.LoadChannel(ch, text, wave, repeat); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// stop([ch]) stops one channel, or all of them without an argument.
func (sc *Script) luaStop(L *lua.LState) int {
	if L.GetTop() == 0 || L.Get(1) == lua.LNil {
		sc.synth.StopAll()
		return 0
	}
	if err := sc.synth.StopChannel(L.CheckInt(1)); err != nil {
		L.ArgError(1, err.Error())
	}
	return 0
}

func (sc *Script) luaPlaying(L *lua.LState) int {
	L.Push(lua.LBool(sc.synth.IsChannelActive(L.CheckInt(1))))
	return 1
}

// checkWave accepts a waveform code (SINE..NOISE), a waveform name or nil.
func checkWave(L *lua.LState, n int) note.Waveform {
	switch v := L.Get(n).(type) {
	case *lua.LNilType:
		return note.WaveDefault
	case lua.LNumber:
		w, ok := note.WaveformCode(int(v))
		if !ok {
			L.ArgError(n, fmt.Sprintf("unknown waveform %v", v))
		}
		return w
	case lua.LString:
		w, ok := note.ParseWaveform(string(v))
		if !ok {
			L.ArgError(n, fmt.Sprintf("unknown waveform %q", string(v)))
		}
		return w
	default:
		L.TypeError(n, lua.LTNumber)
	}
	return note.WaveDefault
}
