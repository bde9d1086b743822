package mml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cbegin/bitsynth/internal/note"
)

var noteOffsets = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

var waveWords = map[string]note.Waveform{
	"sine":   note.Sine,
	"saw":    note.Saw,
	"square": note.Square,
	"noise":  note.Noise,
}

type Parser struct{ cfg ParserConfig }

func NewParser(cfg ParserConfig) *Parser {
	def := DefaultParserConfig()
	if cfg.TicksPerBeat <= 0 {
		cfg.TicksPerBeat = def.TicksPerBeat
	}
	if cfg.DefaultLValue <= 0 {
		cfg.DefaultLValue = def.DefaultLValue
	}
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = def.MaxVoices
	}
	if cfg.MaxExpanded <= 0 {
		cfg.MaxExpanded = def.MaxExpanded
	}
	if cfg.OctavePolarize == 0 {
		cfg.OctavePolarize = def.OctavePolarize
	}
	if cfg.MaxOctave < cfg.MinOctave {
		cfg.MinOctave, cfg.MaxOctave = def.MinOctave, def.MaxOctave
	}
	return &Parser{cfg: cfg}
}

func (p *Parser) Config() ParserConfig { return p.cfg }

// Parse reads every voice of input into freshly allocated slices.
func (p *Parser) Parse(input string) (*Score, error) {
	parts, err := p.split(input)
	if err != nil {
		return nil, err
	}
	score := &Score{TicksPerBeat: p.cfg.TicksPerBeat, Voices: make([]Voice, 0, len(parts))}
	for i, part := range parts {
		var v Voice
		wave, err := p.parseVoice(i, part, func(n note.Note) error {
			v.Notes = append(v.Notes, n)
			return nil
		})
		if err != nil {
			return nil, err
		}
		v.Wave = wave
		score.Voices = append(score.Voices, v)
	}
	return score, nil
}

// Decode parses input straight into the arenas in dst, one per voice, and
// records each voice's waveform tag in tags. The arenas are reset first. It
// returns the number of voices written. Running out of arena space yields an
// error wrapping note.ErrArenaFull.
func (p *Parser) Decode(input string, dst []*note.Arena, tags []note.Waveform) (int, error) {
	parts, err := p.split(input)
	if err != nil {
		return 0, err
	}
	if len(parts) > len(dst) || len(parts) > len(tags) {
		return 0, fmt.Errorf("%w: %d voices, room for %d", ErrTooManyVoices, len(parts), min(len(dst), len(tags)))
	}
	for _, a := range dst {
		a.Reset()
	}
	for i, part := range parts {
		a := dst[i]
		wave, err := p.parseVoice(i, part, a.Append)
		if err != nil {
			if errors.Is(err, note.ErrArenaFull) {
				return 0, fmt.Errorf("voice %d: %w (capacity %d)", i, err, a.Cap())
			}
			return 0, err
		}
		tags[i] = wave
	}
	return len(parts), nil
}

// Source binds a notation string to the parser so it can be handed to a
// channel as its note source.
func (p *Parser) Source(input string) Source {
	return Source{parser: p, input: input}
}

type Source struct {
	parser *Parser
	input  string
}

func (s Source) Decode(dst []*note.Arena, tags []note.Waveform) (int, error) {
	return s.parser.Decode(s.input, dst, tags)
}

func (p *Parser) split(input string) ([]string, error) {
	parts := splitVoices(stripComments(input))
	if len(parts) > p.cfg.MaxVoices {
		return nil, fmt.Errorf("%w: %d voices, at most %d", ErrTooManyVoices, len(parts), p.cfg.MaxVoices)
	}
	return parts, nil
}

type parseState struct {
	voice      int
	wholeTicks int
	octave     int
	defaultLen int
	wave       note.Waveform
}

func (p *Parser) parseVoice(voice int, input string, emit func(note.Note) error) (note.Waveform, error) {
	expanded, err := expandLoops(input, p.cfg.MaxExpanded)
	if err != nil {
		return 0, &SyntaxError{Voice: voice, Pos: 0, Msg: err.Error()}
	}
	whole := p.cfg.TicksPerBeat * 4
	st := &parseState{
		voice:      voice,
		wholeTicks: whole,
		octave:     p.cfg.DefaultOctave,
		defaultLen: whole / p.cfg.DefaultLValue,
	}
	fail := func(at int, format string, args ...any) error {
		return &SyntaxError{Voice: voice, Pos: at, Msg: fmt.Sprintf(format, args...)}
	}
	push := func(at int, ticks int, pitches ...note.Pitch) error {
		n, err := note.NewNote(ticks, pitches...)
		if err != nil {
			return fail(at, "%v", err)
		}
		return emit(n)
	}
	i := 0
	for i < len(expanded) {
		ch := lower(expanded[i])
		if isSpace(ch) {
			i++
			continue
		}
		switch {
		case ch == 'n' && i+1 < len(expanded) && isDigit(expanded[i+1]):
			nn, next := parseNumberDefault(expanded, i+1, 60)
			if nn > int(note.MaxPitch) {
				return 0, fail(i, "note number %d out of range", nn)
			}
			dur, next, e := parseLengthWithTie(expanded, next, st)
			if e != nil {
				return 0, fail(next, "%v", e)
			}
			if err := push(i, dur, note.Pitch(nn)); err != nil {
				return 0, err
			}
			i = next
		case isNote(ch):
			nn, next, e := parsePitch(expanded, i, st.octave)
			if e != nil {
				return 0, fail(i, "%v", e)
			}
			dur, next, e := parseLengthWithTie(expanded, next, st)
			if e != nil {
				return 0, fail(next, "%v", e)
			}
			if err := push(i, dur, nn); err != nil {
				return 0, err
			}
			i = next
		case ch == '\'':
			pitches, next, e := p.parseChord(expanded, i+1, st.octave)
			if e != nil {
				return 0, fail(i, "%v", e)
			}
			dur, next, e := parseLengthWithTie(expanded, next, st)
			if e != nil {
				return 0, fail(next, "%v", e)
			}
			if err := push(i, dur, pitches...); err != nil {
				return 0, err
			}
			i = next
		case ch == 'r':
			dur, next, e := parseLengthWithTie(expanded, i+1, st)
			if e != nil {
				return 0, fail(i, "%v", e)
			}
			if err := push(i, dur); err != nil {
				return 0, err
			}
			i = next
		case ch == 'l':
			length, next, e := parseLengthToken(expanded, i+1, st)
			if e != nil {
				return 0, fail(i, "%v", e)
			}
			st.defaultLen = length
			i = next
		case ch == 'o':
			val, next := parseNumberDefault(expanded, i+1, st.octave)
			if val < p.cfg.MinOctave || val > p.cfg.MaxOctave {
				return 0, fail(i, "octave %d out of range", val)
			}
			st.octave = val
			i = next
		case ch == '<' || ch == '>':
			val, next := parseNumberDefault(expanded, i+1, 1)
			if ch == '>' {
				val = -val
			}
			st.octave = clampInt(st.octave+val*p.cfg.OctavePolarize, p.cfg.MinOctave, p.cfg.MaxOctave)
			i = next
		case ch == '@':
			wave, next, e := parseWaveTag(expanded, i+1)
			if e != nil {
				return 0, fail(i, "%v", e)
			}
			st.wave = wave
			i = next
		default:
			return 0, fail(i, "unexpected %q", expanded[i])
		}
	}
	return st.wave, nil
}

func (p *Parser) parseChord(s string, at int, octave int) ([]note.Pitch, int, error) {
	pitches := make([]note.Pitch, 0, note.MaxChord)
	i := at
	for i < len(s) {
		ch := lower(s[i])
		switch {
		case ch == '\'':
			if len(pitches) == 0 {
				return nil, i, errors.New("empty chord")
			}
			return pitches, i + 1, nil
		case isSpace(ch):
			i++
		case ch == '<' || ch == '>':
			delta := p.cfg.OctavePolarize
			if ch == '>' {
				delta = -delta
			}
			octave = clampInt(octave+delta, p.cfg.MinOctave, p.cfg.MaxOctave)
			i++
		case isNote(ch):
			if len(pitches) == note.MaxChord {
				return nil, i, fmt.Errorf("chord has more than %d notes", note.MaxChord)
			}
			nn, next, err := parsePitch(s, i, octave)
			if err != nil {
				return nil, i, err
			}
			pitches = append(pitches, nn)
			i = next
		default:
			return nil, i, fmt.Errorf("unexpected %q in chord", s[i])
		}
	}
	return nil, i, errors.New("unclosed chord")
}

func parsePitch(s string, at int, octave int) (note.Pitch, int, error) {
	base := noteOffsets[lower(s[at])]
	i, shift := at+1, 0
	for i < len(s) && (s[i] == '#' || s[i] == '+' || s[i] == '-') {
		if s[i] == '-' {
			shift--
		} else {
			shift++
		}
		i++
	}
	nn := octave*12 + base + shift
	if nn < int(note.MinPitch) || nn > int(note.MaxPitch) {
		return 0, at, fmt.Errorf("pitch %d out of range", nn)
	}
	return note.Pitch(nn), i, nil
}

func parseWaveTag(s string, at int) (note.Waveform, int, error) {
	if at < len(s) && isDigit(s[at]) {
		code, next := parseNumberDefault(s, at, 0)
		wave, ok := note.WaveformCode(code)
		if !ok {
			return 0, at, fmt.Errorf("unknown waveform @%d", code)
		}
		return wave, next, nil
	}
	i := at
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	word := strings.ToLower(s[at:i])
	wave, ok := waveWords[word]
	if !ok {
		return 0, at, fmt.Errorf("unknown waveform @%s", word)
	}
	return wave, i, nil
}

func parseLengthWithTie(s string, at int, st *parseState) (int, int, error) {
	dur, i, err := parseLengthToken(s, at, st)
	if err != nil {
		return 0, at, err
	}
	for i < len(s) && s[i] == '^' {
		extra, next, e := parseLengthToken(s, i+1, st)
		if e != nil {
			return 0, at, e
		}
		dur += extra
		i = next
	}
	if dur > note.MaxTicks {
		return 0, at, fmt.Errorf("duration %d ticks too long", dur)
	}
	return dur, i, nil
}

func parseLengthToken(s string, at int, st *parseState) (int, int, error) {
	val, i := parseNumberOptional(s, at)
	base := st.defaultLen
	if val > 0 {
		base = st.wholeTicks / val
	}
	if base <= 0 {
		return 0, at, fmt.Errorf("length %d shorter than one tick", val)
	}
	dots := 0
	for i < len(s) && s[i] == '.' {
		dots++
		i++
	}
	dur, term := base, base
	for k := 0; k < dots; k++ {
		term >>= 1
		dur += term
	}
	return dur, i, nil
}

func parseNumberDefault(s string, at int, def int) (int, int) {
	v, i := parseNumberOptional(s, at)
	if v == -1 {
		return def, i
	}
	return v, i
}

// parseNumberOptional reads a decimal number at s[at:]. It returns -1 when no
// digits are present. Numbers are capped well above any meaningful value.
func parseNumberOptional(s string, at int) (int, int) {
	i := at
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == at {
		return -1, i
	}
	digits := s[at:i]
	if len(digits) > 6 {
		digits = digits[:6]
	}
	n, _ := strconv.Atoi(digits)
	return n, i
}

func stripComments(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	for i := 0; i < len(src); i++ {
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '*' {
			i += 2
			for i < len(src) {
				if i+1 < len(src) && src[i] == '*' && src[i+1] == '/' {
					i++
					break
				}
				i++
			}
			continue
		}
		if i+1 < len(src) && src[i] == '/' && src[i+1] == '/' {
			i += 2
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(src[i])
	}
	return out.String()
}

// splitVoices cuts src at top-level ';' and drops empty sections.
func splitVoices(src string) []string {
	depth := 0
	start := 0
	parts := make([]string, 0, 4)
	keep := func(section string) {
		if section = strings.TrimSpace(section); section != "" {
			parts = append(parts, section)
		}
	}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				keep(src[start:i])
				start = i + 1
			}
		}
	}
	keep(src[start:])
	return parts
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 32
	}
	return b
}

func isSpace(b byte) bool { return b == ' ' || b == '\n' || b == '\r' || b == '\t' }
func isNote(b byte) bool  { _, ok := noteOffsets[b]; return ok }

func expandLoops(src string, limit int) (string, error) {
	out, i, err := parseExpanded(src, 0, 0, limit)
	if err != nil {
		return "", err
	}
	if i != len(src) {
		return "", fmt.Errorf("unexpected parser position: %d", i)
	}
	return out, nil
}

func parseExpanded(src string, at, depth, limit int) (string, int, error) {
	var out strings.Builder
	for at < len(src) {
		ch := src[at]
		if ch == ']' {
			if depth == 0 {
				return "", at, fmt.Errorf("unmatched ']' at %d", at)
			}
			return out.String(), at, nil
		}
		if ch == '|' && depth == 0 {
			return "", at, fmt.Errorf("'|' outside loop at %d", at)
		}
		if ch != '[' {
			out.WriteByte(ch)
			at++
			continue
		}
		body, next, err := parseLoopBody(src, at+1, depth+1, limit)
		if err != nil {
			return "", at, err
		}
		if out.Len()+len(body) > limit {
			return "", at, errors.New("loop expansion too large")
		}
		out.WriteString(body)
		at = next
	}
	if depth > 0 {
		return "", at, errors.New("unclosed '['")
	}
	return out.String(), at, nil
}

func parseLoopBody(src string, at, depth, limit int) (string, int, error) {
	var pre, post strings.Builder
	breakHit := false
	for at < len(src) {
		ch := src[at]
		if ch == '[' {
			body, next, err := parseLoopBody(src, at+1, depth+1, limit)
			if err != nil {
				return "", at, err
			}
			if pre.Len()+post.Len()+len(body) > limit {
				return "", at, errors.New("loop expansion too large")
			}
			if breakHit {
				post.WriteString(body)
			} else {
				pre.WriteString(body)
			}
			at = next
			continue
		}
		if ch == '|' {
			breakHit = true
			at++
			continue
		}
		if ch == ']' {
			repeat, next := parseNumberDefault(src, at+1, 2)
			if repeat < 1 {
				repeat = 1
			}
			preS, postS := pre.String(), post.String()
			size := len(preS)*repeat + len(postS)
			if breakHit {
				size -= len(preS)
			}
			if size > limit {
				return "", at, errors.New("loop expansion too large")
			}
			var out strings.Builder
			out.Grow(size)
			if breakHit {
				for i := 0; i < repeat-1; i++ {
					out.WriteString(preS)
				}
				out.WriteString(postS)
			} else {
				for i := 0; i < repeat; i++ {
					out.WriteString(preS)
				}
			}
			return out.String(), next, nil
		}
		if breakHit {
			post.WriteByte(ch)
		} else {
			pre.WriteByte(ch)
		}
		at++
	}
	return "", at, errors.New("unclosed loop block")
}
