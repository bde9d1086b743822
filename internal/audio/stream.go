package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// FrameSource produces mono signed 16-bit PCM one frame at a time. The
// returned slice is only read until the next call.
type FrameSource interface {
	NextFrame() []int16
}

// FinishingSource is a FrameSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	FrameSource
	Finished() bool
}

// FrameFunc adapts a function to FrameSource.
type FrameFunc func() []int16

func (f FrameFunc) NextFrame() []int16 { return f() }

// frameTail hands out samples one at a time, pulling a new frame when the
// current one is used up.
type frameTail struct {
	source FrameSource
	tail   []int16
}

func (t *frameTail) next() int16 {
	if len(t.tail) == 0 {
		t.tail = t.source.NextFrame()
		if len(t.tail) == 0 {
			return 0
		}
	}
	s := t.tail[0]
	t.tail = t.tail[1:]
	return s
}

func (t *frameTail) finished() bool {
	fs, ok := t.source.(FinishingSource)
	return ok && len(t.tail) == 0 && fs.Finished()
}

// StreamReader serves frames as interleaved stereo float32 little endian, the
// layout ebiten's NewPlayerF32 expects.
type StreamReader struct {
	mu sync.Mutex
	frameTail
}

func NewStreamReader(source FrameSource) *StreamReader {
	return &StreamReader{frameTail: frameTail{source: source}}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	for i := 0; i < frames; i++ {
		u := math.Float32bits(float32(r.next()) / 32768)
		binary.LittleEndian.PutUint32(p[i*8:], u)
		binary.LittleEndian.PutUint32(p[i*8+4:], u)
	}
	n := frames * 8
	if r.finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// PCMReader serves frames as mono signed 16-bit little endian.
type PCMReader struct {
	mu sync.Mutex
	frameTail
}

func NewPCMReader(source FrameSource) *PCMReader {
	return &PCMReader{frameTail: frameTail{source: source}}
}

func (r *PCMReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := len(p) / 2
	if samples == 0 {
		return 0, nil
	}
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(r.next()))
	}
	n := samples * 2
	if r.finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *PCMReader) Close() error { return nil }
