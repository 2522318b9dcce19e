package dsp

import "math"

// OnePole is a first-order lowpass used where a full biquad is overkill:
// oscillator tone rolloff and reverb damping.
type OnePole struct {
	coeff float64
	state float64
}

// NewOnePole builds a lowpass with the given cutoff. Cutoff is clamped to
// (20, sampleRate/2).
func NewOnePole(cutoff float64, sampleRate int) *OnePole {
	p := &OnePole{}
	p.SetCutoff(cutoff, sampleRate)
	return p
}

// SetCutoff recomputes the smoothing coefficient, preserving state.
func (p *OnePole) SetCutoff(cutoff float64, sampleRate int) {
	cutoff = clampF(cutoff, 20, float64(sampleRate)/2-1)
	p.coeff = math.Exp(-2 * math.Pi * cutoff / float64(sampleRate))
}

// SetDamping configures the filter from a 0..1 damping amount, 0 being fully
// open and 1 heavily damped.
func (p *OnePole) SetDamping(amount float64) {
	p.coeff = clampF(amount, 0, 0.99)
}

// Tick filters one sample.
func (p *OnePole) Tick(x float64) float64 {
	p.state = x*(1-p.coeff) + p.state*p.coeff
	return p.state
}

// Process filters buf in place.
func (p *OnePole) Process(buf []float32) {
	for i, s := range buf {
		buf[i] = float32(p.Tick(float64(s)))
	}
}

// Reset clears the filter memory.
func (p *OnePole) Reset() {
	p.state = 0
}
