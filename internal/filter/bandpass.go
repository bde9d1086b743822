// Package filter holds the state-variable bandpass used to pitch noise.
package filter

import "math"

// Q sets the bandwidth of the bandpass. Higher values give a narrower,
// more tonal band.
const Q = 8

// MaxCoefficient keeps the tuning coefficient at 90% of the filter's
// stability edge, f < sqrt(d*d+4) - d with damping d = 1/Q. For Q = 8 at
// 22000 Hz this caps the center near 7 kHz.
var MaxCoefficient = 0.9 * (math.Sqrt(1.0/(Q*Q)+4) - 1.0/Q)

// Coefficient returns the tuning coefficient 2*sin(pi*freq/sampleRate),
// capped at MaxCoefficient.
func Coefficient(freq, sampleRate float64) float64 {
	if freq <= 0 || sampleRate <= 0 {
		return 0
	}
	if freq >= sampleRate/2 {
		return MaxCoefficient
	}
	return math.Min(2*math.Sin(math.Pi*freq/sampleRate), MaxCoefficient)
}

// NoiseGain returns the RMS gain of the bandpass tuned by f for white input:
// the square root of 2fQ / (4 - 2f/Q - f*f), the power gain of
// f(1 - z^-1) / (1 + (f*f + f/Q - 2)z^-1 + (1 - f/Q)z^-2).
func NoiseGain(f float64) float64 {
	if f <= 0 {
		return 0
	}
	const damp = 1.0 / Q
	den := 4 - 2*f*damp - f*f
	if den <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(2 * f / (damp * den))
}

// Bandpass is a two-integrator state-variable filter.
type Bandpass struct {
	low  float64
	band float64
}

// Process feeds one input sample through the filter tuned by f (see
// Coefficient) and returns the bandpass output.
func (b *Bandpass) Process(in, f float64) float64 {
	const damp = 1.0 / Q
	b.low += f * b.band
	high := in - b.low - damp*b.band
	b.band += f * high
	return b.band
}

func (b *Bandpass) Reset() {
	b.low = 0
	b.band = 0
}
