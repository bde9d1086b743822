// Package effects holds mono post-mix processors applied to synth frames on
// their way to a host device or file.
package effects

import "math"

// Effector processes one mono sample at a time.
type Effector interface {
	Process(x float32) float32
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(x float32) float32 {
	for _, e := range c.effects {
		x = e.Process(x)
	}
	return x
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// ProcessFrame runs the chain over a frame of 16-bit PCM in place. Samples are
// scaled to [-1, 1) for processing and saturate on the way back.
func (c *Chain) ProcessFrame(frame []int16) {
	if len(c.effects) == 0 {
		return
	}
	for i, s := range frame {
		y := c.Process(float32(s) / 32768)
		frame[i] = toInt16(y)
	}
}

func toInt16(y float32) int16 {
	v := math.Round(float64(y) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
