package dsp

import "math"

// DBToLinear converts decibels to a linear gain factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear gain factor to decibels. Zero or negative
// input maps to -120 dB.
func LinearToDB(gain float64) float64 {
	if gain <= 0 {
		return -120
	}
	return 20 * math.Log10(gain)
}

// PanGains returns constant-power left/right gains for pan in [-1, 1],
// 0 at center. Center gives cos(pi/4) on both sides.
func PanGains(pan float64) (left, right float64) {
	pan = clampF(pan, -1, 1)
	theta := (pan + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}

// RMS returns the root-mean-square level of buf.
func RMS(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// Peak returns the absolute peak level of buf.
func Peak(buf []float32) float64 {
	var peak float64
	for _, s := range buf {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}

// SoftLimit applies a soft knee above threshold, then hard-clips at 1.0.
// Signals below the threshold pass untouched.
func SoftLimit(x, threshold float64) float64 {
	abs := math.Abs(x)
	if abs <= threshold {
		return x
	}
	sign := 1.0
	if x < 0 {
		sign = -1
	}
	headroom := 1 - threshold
	over := abs - threshold
	limited := threshold + headroom*math.Tanh(over/headroom)
	if limited > 1 {
		limited = 1
	}
	return sign * limited
}

// SoftLimitBuffer limits buf in place with a fixed 0.8 knee.
func SoftLimitBuffer(buf []float32) {
	for i, s := range buf {
		buf[i] = float32(SoftLimit(float64(s), 0.8))
	}
}

// Clip hard-clips x to [-1, 1].
func Clip(x float64) float64 {
	return clampF(x, -1, 1)
}

// MonoToStereo expands a mono buffer into an interleaved stereo buffer with
// the given per-side gains.
func MonoToStereo(mono []float32, left, right float64) []float32 {
	out := make([]float32, len(mono)*2)
	for i, s := range mono {
		out[2*i] = float32(float64(s) * left)
		out[2*i+1] = float32(float64(s) * right)
	}
	return out
}
