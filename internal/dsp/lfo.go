package dsp

import "math"

// LFO waveforms.
const (
	WaveSaw      = 0
	WaveSquare   = 1
	WaveTriangle = 2
	WaveRandom   = 3
	WaveSine     = 4
)

// LFO is a low-frequency oscillator producing per-sample modulation values.
// One instance can be shared across all voices for global parameter sweeps.
type LFO struct {
	depth    float64 // modulation depth (units depend on the target parameter)
	rateHz   float64
	waveform int
	phase    float64 // [0, 1)
	randVal  float64 // held value for sample-and-hold
}

// Set configures the LFO. Out-of-range waveforms fall back to triangle.
func (l *LFO) Set(depth, rateHz float64, waveform int) {
	l.depth = depth
	l.rateHz = rateHz
	if waveform < 0 || waveform > 4 {
		waveform = WaveTriangle
	}
	l.waveform = waveform
}

// Sample advances one sample and returns a value in [-depth, +depth].
// Returns 0 when depth or rate is zero.
func (l *LFO) Sample(sampleRate float64) float64 {
	if l.depth == 0 || l.rateHz == 0 || sampleRate == 0 {
		return 0
	}

	var waveVal float64
	switch l.waveform {
	case WaveSaw:
		waveVal = 1.0 - 2.0*l.phase
	case WaveSquare:
		if l.phase < 0.5 {
			waveVal = 1.0
		} else {
			waveVal = -1.0
		}
	case WaveRandom:
		waveVal = l.randVal
	case WaveSine:
		waveVal = math.Sin(2 * math.Pi * l.phase)
	default:
		if l.phase < 0.5 {
			waveVal = 4.0*l.phase - 1.0
		} else {
			waveVal = 3.0 - 4.0*l.phase
		}
	}

	oldPhase := l.phase
	l.phase += l.rateHz / sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}

	// Sample-and-hold picks a new value at each cycle boundary.
	if l.waveform == WaveRandom && l.phase < oldPhase {
		l.randVal = math.Sin(l.phase*12345.6789 + l.randVal*67890.1234)
		l.randVal -= math.Floor(l.randVal)
		l.randVal = l.randVal*2.0 - 1.0
	}

	return waveVal * l.depth
}

// Active reports whether the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset zeros the phase and held random value.
func (l *LFO) Reset() {
	l.phase = 0
	l.randVal = 0
}
