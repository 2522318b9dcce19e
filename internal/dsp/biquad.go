package dsp

import (
	"fmt"
	"math"
)

// Filter types accepted by NewBiquad.
const (
	FilterLowpass  = "lowpass"
	FilterHighpass = "highpass"
	FilterBandpass = "bandpass"
	FilterNotch    = "notch"
	FilterPeaking  = "peaking"
	FilterAllpass  = "allpass"
)

// Biquad is a second-order IIR filter in transposed direct form II. One
// instance filters one mono stream; state carries across Process calls.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

// NewBiquad builds a filter with Audio-EQ-Cookbook coefficients. freq is
// clamped to (20, sampleRate/2) and q to [0.1, 20]. gainDB only matters for
// the peaking type. Degenerate numerics fall back to a bypass filter.
func NewBiquad(filterType string, freq, q, gainDB float64, sampleRate int) (*Biquad, error) {
	b := &Biquad{}
	if err := b.Configure(filterType, freq, q, gainDB, sampleRate); err != nil {
		return nil, err
	}
	return b, nil
}

// Configure recomputes coefficients in place, preserving filter state so
// parameter sweeps do not click.
func (b *Biquad) Configure(filterType string, freq, q, gainDB float64, sampleRate int) error {
	nyquist := float64(sampleRate) / 2
	freq = clampF(freq, 20, nyquist-1)
	q = clampF(q, 0.1, 20)

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosw := math.Cos(w0)
	sinw := math.Sin(w0)
	alpha := sinw / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch filterType {
	case FilterLowpass:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case FilterHighpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case FilterBandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case FilterNotch:
		b0 = 1
		b1 = -2 * cosw
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	case FilterPeaking:
		A := math.Pow(10, gainDB/40)
		b0 = 1 + alpha*A
		b1 = -2 * cosw
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosw
		a2 = 1 - alpha/A
	case FilterAllpass:
		b0 = 1 - alpha
		b1 = -2 * cosw
		b2 = 1 + alpha
		a0 = 1 + alpha
		a1 = -2 * cosw
		a2 = 1 - alpha
	default:
		return fmt.Errorf("unknown filter type: %s", filterType)
	}

	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		// bypass
		b.b0, b.b1, b.b2, b.a1, b.a2 = 1, 0, 0, 0, 0
		return nil
	}
	b.b0 = b0 / a0
	b.b1 = b1 / a0
	b.b2 = b2 / a0
	b.a1 = a1 / a0
	b.a2 = a2 / a0
	return nil
}

// Tick filters one sample.
func (b *Biquad) Tick(x float64) float64 {
	y := b.b0*x + b.z1
	b.z1 = b.b1*x - b.a1*y + b.z2
	b.z2 = b.b2*x - b.a2*y
	return y
}

// Process filters buf in place.
func (b *Biquad) Process(buf []float32) {
	for i, s := range buf {
		buf[i] = float32(b.Tick(float64(s)))
	}
}

// Reset clears the filter memory.
func (b *Biquad) Reset() {
	b.z1, b.z2 = 0, 0
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
