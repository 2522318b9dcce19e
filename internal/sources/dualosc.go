// Package sources holds the built-in instrument plugins: subtractive synth,
// noise percussion, and a physically modeled cymbal.
package sources

import (
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

// Waveforms selectable on each oscillator.
var waveforms = []string{"SINE", "SQUARE", "SAW", "TRIANGLE", "NONE"}

// DualOsc is a two-oscillator subtractive synth with interval/detune control,
// a lowpass filter, and an attack/decay envelope.
type DualOsc struct {
	meta plug.Metadata
}

// NewDualOsc builds the synth. Metadata construction cannot fail here because
// the specs are static.
func NewDualOsc() *DualOsc {
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "DUAL_OSC",
		Name:        "Dual Oscillator",
		Category:    plug.CategorySource,
		Version:     "1.0.0",
		Author:      "Blooper Team",
		Description: "Two-oscillator synthesizer with filter and envelope",
		Parameters: []plug.ParameterSpec{
			{Name: "osc1_type", Type: plug.TypeEnum, Default: "SAW", EnumValues: waveforms, DisplayName: "Osc 1 Wave"},
			{Name: "osc2_type", Type: plug.TypeEnum, Default: "SINE", EnumValues: waveforms, DisplayName: "Osc 2 Wave"},
			{Name: "osc2_interval", Type: plug.TypeInt, Default: 0, Min: -24, Max: 24, DisplayName: "Osc 2 Interval", Unit: "st"},
			{Name: "osc2_detune", Type: plug.TypeFloat, Default: 10.0, Min: -50, Max: 50, DisplayName: "Osc 2 Detune", Unit: "cents"},
			{Name: "osc_mix", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 1, DisplayName: "Osc Mix"},
			{Name: "filter_cutoff", Type: plug.TypeFloat, Default: 5000.0, Min: 50, Max: 12000, DisplayName: "Filter Cutoff", Unit: "Hz", Logarithmic: true},
			{Name: "attack", Type: plug.TypeFloat, Default: 0.01, Min: 0.001, Max: 2, DisplayName: "Attack", Unit: "s"},
			{Name: "length", Type: plug.TypeFloat, Default: 0.5, Min: 0.01, Max: 5, DisplayName: "Length", Unit: "s"},
			{Name: "gain", Type: plug.TypeFloat, Default: 0.7, Min: 0, Max: 1, DisplayName: "Gain"},
			{Name: "root_note", Type: plug.TypeInt, Default: 60, Min: 0, Max: 127, DisplayName: "Root Note"},
			{Name: "transpose", Type: plug.TypeInt, Default: 0, Min: -24, Max: 24, DisplayName: "Transpose", Unit: "st"},
			{Name: "vibrato_rate", Type: plug.TypeFloat, Default: 5.0, Min: 0.5, Max: 20, DisplayName: "Vibrato Rate", Unit: "Hz"},
			{Name: "vibrato_depth", Type: plug.TypeFloat, Default: 0.0, Min: 0, Max: 100, DisplayName: "Vibrato Depth", Unit: "cents"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &DualOsc{meta: meta}
}

func (d *DualOsc) Meta() plug.Metadata { return d.meta }

// Render generates a complete note: attack plus exponential decay, lowpass
// filtered and velocity scaled. n is advisory; the note's own attack+length
// determines the returned buffer size.
func (d *DualOsc) Render(ctx plug.ProcessContext, freq, velocity float64, params plug.Params, n int) []float32 {
	rootNote := params.Int("root_note", 60)
	transpose := params.Int("transpose", 0)
	gain := params.Float("gain", 0.7)
	attack := params.Float("attack", 0.01)
	decay := params.Float("length", 0.5)

	totalDur := attack + decay
	numSamples := int(totalDur * float64(ctx.SampleRate))
	if numSamples <= 0 {
		return make([]float32, 512)
	}

	// Pitch is derived from the incoming frequency's implied key so the
	// root/transpose parameters keep working for any tuning.
	key := keyFromFreq(freq)
	pitchMult := math.Pow(2, float64(key-rootNote+transpose)/12.0)
	freq1 := 261.63 * pitchMult

	interval := params.Int("osc2_interval", 0)
	detuneCents := params.Float("osc2_detune", 10.0)
	freq2 := freq1 * math.Pow(2, (float64(interval)+detuneCents/100.0)/12.0)

	oscMix := params.Float("osc_mix", 0.5)
	var vib1, vib2 *dsp.LFO
	if depth := params.Float("vibrato_depth", 0); depth > 0 {
		rate := params.Float("vibrato_rate", 5.0)
		// Each oscillator gets its own LFO so sampling stays per voice.
		vib1, vib2 = &dsp.LFO{}, &dsp.LFO{}
		vib1.Set(depth, rate, dsp.WaveSine)
		vib2.Set(depth, rate, dsp.WaveSine)
	}
	buf1 := renderWave(params.String("osc1_type", "SAW"), freq1, vib1, numSamples, ctx.SampleRate)
	buf2 := renderWave(params.String("osc2_type", "SINE"), freq2, vib2, numSamples, ctx.SampleRate)

	out := make([]float32, numSamples)
	for i := range out {
		out[i] = float32(float64(buf1[i])*(1-oscMix) + float64(buf2[i])*oscMix)
	}

	lp := dsp.NewOnePole(params.Float("filter_cutoff", 5000.0), ctx.SampleRate)
	lp.Process(out)

	attackSamples := int(attack * float64(ctx.SampleRate))
	for i := range out {
		var env float64
		if i < attackSamples {
			env = float64(i) / float64(attackSamples)
		} else {
			t := float64(i-attackSamples) / float64(ctx.SampleRate)
			env = math.Exp(-6.0 * t / decay)
		}
		out[i] = float32(float64(out[i]) * env * gain * velocity)
	}
	return out
}

// renderWave synthesizes one oscillator by phase accumulation. vib, when
// non-nil, modulates the pitch per sample; its depth is in cents.
func renderWave(waveType string, freq float64, vib *dsp.LFO, n, sampleRate int) []float32 {
	buf := make([]float32, n)
	if waveType == "NONE" {
		return buf
	}
	var phase float64
	for i := range buf {
		frac := math.Mod(phase, 1.0)
		switch waveType {
		case "SINE":
			buf[i] = float32(math.Sin(2 * math.Pi * frac))
		case "SQUARE":
			if frac < 0.5 {
				buf[i] = 1
			} else {
				buf[i] = -1
			}
		case "SAW":
			buf[i] = float32(2*frac - 1)
		case "TRIANGLE":
			buf[i] = float32(2*math.Abs(2*frac-1) - 1)
		}
		f := freq
		if vib != nil {
			f *= math.Pow(2, vib.Sample(float64(sampleRate))/1200.0)
		}
		phase += f / float64(sampleRate)
	}
	return buf
}

// keyFromFreq inverts the equal temperament mapping, rounding to the nearest
// MIDI key.
func keyFromFreq(freq float64) int {
	if freq <= 0 {
		return 60
	}
	return int(math.Round(69 + 12*math.Log2(freq/440.0)))
}
