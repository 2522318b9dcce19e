package sources

import (
	"math"
	"math/rand/v2"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

var (
	noiseColors = []string{"WHITE", "PINK", "BROWN"}
	drumTypes   = []string{"DRUM", "HI-HAT"}
)

// NoiseDrum synthesizes percussion from colored noise. DRUM mode layers a
// swept sine under bandpassed noise for kicks and toms; HI-HAT mode is
// highpassed noise with a fast decay.
type NoiseDrum struct {
	meta plug.Metadata
	rng  *rand.Rand
}

func NewNoiseDrum() *NoiseDrum {
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "NOISE_DRUM",
		Name:        "Noise Drum",
		Category:    plug.CategorySource,
		Version:     "1.0.0",
		Author:      "Blooper Team",
		Description: "Noise-based drum synthesizer",
		Parameters: []plug.ParameterSpec{
			{Name: "type", Type: plug.TypeEnum, Default: "DRUM", EnumValues: drumTypes, DisplayName: "Type"},
			{Name: "color", Type: plug.TypeEnum, Default: "WHITE", EnumValues: noiseColors, DisplayName: "Noise Color"},
			{Name: "pitch_hpf", Type: plug.TypeFloat, Default: 60.0, Min: 20, Max: 200, DisplayName: "Pitch/HPF", Unit: "Hz"},
			{Name: "length", Type: plug.TypeFloat, Default: 0.3, Min: 0.05, Max: 2, DisplayName: "Length", Unit: "s"},
			{Name: "gain", Type: plug.TypeFloat, Default: 0.8, Min: 0, Max: 1, DisplayName: "Gain"},
			{Name: "root_note", Type: plug.TypeInt, Default: 60, Min: 0, Max: 127, DisplayName: "Root Note"},
			{Name: "transpose", Type: plug.TypeInt, Default: 0, Min: -24, Max: 24, DisplayName: "Transpose", Unit: "st"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &NoiseDrum{
		meta: meta,
		rng:  rand.New(rand.NewPCG(0x6e6f6973, 0x6472756d)),
	}
}

func (d *NoiseDrum) Meta() plug.Metadata { return d.meta }

func (d *NoiseDrum) Render(ctx plug.ProcessContext, freq, velocity float64, params plug.Params, n int) []float32 {
	gain := params.Float("gain", 0.8)
	duration := params.Float("length", 0.3)
	color := params.String("color", "WHITE")
	drumType := params.String("type", "DRUM")

	key := keyFromFreq(freq)
	rootNote := params.Int("root_note", 60)
	transpose := params.Int("transpose", 0)
	pitchMult := math.Pow(2, float64(key-rootNote+transpose)/12.0)
	pitchVal := params.Float("pitch_hpf", 60.0) * pitchMult

	numSamples := int(duration * float64(ctx.SampleRate))
	if numSamples <= 0 {
		return make([]float32, 512)
	}

	noise := d.coloredNoise(numSamples, color, ctx.SampleRate)
	out := make([]float32, numSamples)
	nyquist := float64(ctx.SampleRate) / 2

	if drumType == "DRUM" {
		freqStart := pitchVal * 4.0
		freqEnd := math.Max(20.0, pitchVal)

		bp, _ := dsp.NewBiquad(dsp.FilterBandpass,
			math.Sqrt(math.Max(20, pitchVal*0.5)*math.Min(nyquist*0.95, pitchVal*4.0)), 1.0, 0, ctx.SampleRate)
		bp.Process(noise)

		// Swept sine under the noise gives the drum its body.
		var phase float64
		for i := range out {
			t := float64(i) / float64(ctx.SampleRate) // seconds into the hit
			pitchEnv := math.Exp(-8.0 * t / duration)
			sweep := freqEnd + (freqStart-freqEnd)*pitchEnv
			phase += 2 * math.Pi * sweep / float64(ctx.SampleRate)
			pitchMod := math.Sin(phase)

			volEnv := math.Exp(-6.0 * t / duration)
			out[i] = float32((float64(noise[i])*0.7 + pitchMod*0.3) * volEnv)
		}
	} else {
		hpfFreq := math.Min(nyquist*0.95, math.Max(500.0, pitchVal))
		hp, _ := dsp.NewBiquad(dsp.FilterHighpass, hpfFreq, 0.707, 0, ctx.SampleRate)
		hp.Process(noise)
		for i := range out {
			t := float64(i) / float64(ctx.SampleRate)
			out[i] = float32(float64(noise[i]) * math.Exp(-12.0*t/duration))
		}
	}

	for i := range out {
		out[i] = float32(float64(out[i]) * gain * velocity)
	}
	return out
}

// coloredNoise generates white noise and shapes it: pink via a gentle
// lowpass, brown by integration with DC removal. Both are renormalized to
// peak 1.
func (d *NoiseDrum) coloredNoise(n int, color string, sampleRate int) []float32 {
	white := make([]float32, n)
	for i := range white {
		white[i] = float32(d.rng.Float64()*2 - 1)
	}
	switch color {
	case "PINK":
		lp := dsp.NewOnePole(float64(sampleRate)*0.05, sampleRate)
		lp.Process(white)
		renormalize(white)
	case "BROWN":
		var sum float64
		var prev float64
		for i := range white {
			sum += float64(white[i])
			// leaky integrator doubles as the DC-blocking highpass
			v := sum - prev
			prev = prev*0.999 + sum*0.001
			white[i] = float32(v)
		}
		renormalize(white)
	}
	return white
}

func renormalize(buf []float32) {
	peak := dsp.Peak(buf)
	if peak == 0 {
		return
	}
	for i := range buf {
		buf[i] = float32(float64(buf[i]) / peak)
	}
}
