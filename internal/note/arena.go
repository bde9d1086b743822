package note

import "errors"

var ErrArenaFull = errors.New("note arena full")

// Index addresses a note inside an arena. None means no note.
type Index int

const None Index = -1

// Arena is fixed-capacity note storage. The backing array is allocated once
// and reused across loads through Reset.
type Arena struct {
	notes []Note
	n     int
}

func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{notes: make([]Note, capacity)}
}

// Reset discards every note without releasing memory.
func (a *Arena) Reset() { a.n = 0 }

// Append stores n after the last note. It fails with ErrArenaFull once the
// arena holds Cap notes; the arena is left unchanged in that case.
func (a *Arena) Append(n Note) error {
	if a.n >= len(a.notes) {
		return ErrArenaFull
	}
	a.notes[a.n] = n
	a.n++
	return nil
}

func (a *Arena) Len() int { return a.n }
func (a *Arena) Cap() int { return len(a.notes) }

// Sequence returns a read-only view of the notes appended so far. The view is
// invalidated by the next Reset.
func (a *Arena) Sequence() Sequence {
	return Sequence{notes: a.notes[:a.n]}
}

// Sequence is an indexable, forward-iterable list of notes. It holds no
// cursor; wrapping around is up to the reader.
type Sequence struct {
	notes []Note
}

func (s Sequence) Len() int { return len(s.notes) }

func (s Sequence) At(i Index) (Note, bool) {
	if i < 0 || int(i) >= len(s.notes) {
		return Note{}, false
	}
	return s.notes[i], true
}

func (s Sequence) First() Index {
	if len(s.notes) == 0 {
		return None
	}
	return 0
}

// Next returns the index after i, or None past the last note.
func (s Sequence) Next(i Index) Index {
	if i < 0 || int(i)+1 >= len(s.notes) {
		return None
	}
	return i + 1
}
