package sources

import (
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

// ModalCymbal is a physically modeled cymbal built in stages: an FM stick
// impulse feeds a dispersion feedback loop, phase distortion, all-pass
// diffusion, chaotic vibrato, a modal resonator bank, and ring-mod frequency
// shifting. Each stage can be toggled independently.
type ModalCymbal struct {
	meta plug.Metadata

	fbBuffer   []float32
	fbWritePos int

	allpass []*dsp.Biquad

	vib dsp.LFO

	resonators []resonator
}

type resonator struct {
	buffer   []float32
	writePos int
}

const cymbalResonatorBufSeconds = 0.5

func NewModalCymbal() *ModalCymbal {
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "ZION_CYMBAL",
		Name:        "Zion Cymbal",
		Category:    plug.CategorySource,
		Version:     "1.0.0",
		Author:      "Zion Jaymes / Blooper Team",
		Description: "Physical modeling cymbal with feedback dispersion and modal resonators",
		Parameters: []plug.ParameterSpec{
			{Name: "excitation_freq", Type: plug.TypeFloat, Default: 4000.0, Min: 2000, Max: 8000, DisplayName: "Excitation Freq", Unit: "Hz", Logarithmic: true},
			{Name: "excitation_decay", Type: plug.TypeFloat, Default: 0.001, Min: 0.0001, Max: 0.01, DisplayName: "Excitation Decay", Unit: "s", Logarithmic: true},
			{Name: "excitation_fm_depth", Type: plug.TypeFloat, Default: 150.0, Min: 0, Max: 500, DisplayName: "FM Depth", Unit: "Hz"},
			{Name: "decay_time", Type: plug.TypeFloat, Default: 2.0, Min: 0.1, Max: 10, DisplayName: "Decay Time", Unit: "s"},
			{Name: "gain", Type: plug.TypeFloat, Default: 0.7, Min: 0, Max: 1, DisplayName: "Gain"},
			{Name: "enable_feedback", Type: plug.TypeBool, Default: true, DisplayName: "Enable Feedback"},
			{Name: "feedback_delay", Type: plug.TypeFloat, Default: 5.0, Min: 0.1, Max: 100, DisplayName: "Feedback Delay", Unit: "ms"},
			{Name: "feedback_gain", Type: plug.TypeFloat, Default: 0.7, Min: 0, Max: 0.95, DisplayName: "Feedback Gain"},
			{Name: "enable_phase_distortion", Type: plug.TypeBool, Default: true, DisplayName: "Enable Phase Dist"},
			{Name: "phase_distortion", Type: plug.TypeFloat, Default: 8.0, Min: 0, Max: 20, DisplayName: "Phase Distortion"},
			{Name: "enable_diffusion", Type: plug.TypeBool, Default: true, DisplayName: "Enable Diffusion"},
			{Name: "diffusion_amount", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 1, DisplayName: "Diffusion Amount"},
			{Name: "enable_vibrato", Type: plug.TypeBool, Default: true, DisplayName: "Enable Vibrato"},
			{Name: "vibrato_rate", Type: plug.TypeFloat, Default: 5.0, Min: 0.5, Max: 20, DisplayName: "Vibrato Rate", Unit: "Hz"},
			{Name: "vibrato_depth", Type: plug.TypeFloat, Default: 15.0, Min: 0, Max: 50, DisplayName: "Vibrato Depth", Unit: "Hz"},
			{Name: "enable_resonators", Type: plug.TypeBool, Default: true, DisplayName: "Enable Resonators"},
			{Name: "base_freq", Type: plug.TypeFloat, Default: 200.0, Min: 50, Max: 500, DisplayName: "Base Freq", Unit: "Hz"},
			{Name: "num_modes", Type: plug.TypeInt, Default: 12, Min: 4, Max: 16, DisplayName: "Num Modes"},
			{Name: "mode_feedback", Type: plug.TypeFloat, Default: 0.85, Min: 0.5, Max: 0.99, DisplayName: "Mode Feedback"},
			{Name: "enable_frequency_shift", Type: plug.TypeBool, Default: true, DisplayName: "Enable Freq Shift"},
			{Name: "inharmonicity", Type: plug.TypeFloat, Default: 25.0, Min: 0, Max: 100, DisplayName: "Inharmonicity", Unit: "Hz"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &ModalCymbal{
		meta:     meta,
		fbBuffer: make([]float32, 8192),
	}
}

func (c *ModalCymbal) Meta() plug.Metadata { return c.meta }

func (c *ModalCymbal) Render(ctx plug.ProcessContext, freq, velocity float64, params plug.Params, n int) []float32 {
	decayTime := params.Float("decay_time", 2.0)
	gain := params.Float("gain", 0.7)

	numSamples := int(decayTime * float64(ctx.SampleRate))
	if numSamples <= 0 {
		return make([]float32, 512)
	}

	out := c.stickImpulse(
		params.Float("excitation_freq", 4000.0),
		params.Float("excitation_decay", 0.001),
		params.Float("excitation_fm_depth", 150.0),
		velocity, numSamples, ctx.SampleRate)

	if params.Bool("enable_feedback", true) {
		c.feedbackLoop(out,
			params.Float("feedback_delay", 5.0),
			params.Float("feedback_gain", 0.7),
			ctx.SampleRate)
	}
	if params.Bool("enable_phase_distortion", true) {
		// Loud hits bloom brighter.
		phaseDistort(out, params.Float("phase_distortion", 8.0)*velocity*velocity)
	}
	if params.Bool("enable_diffusion", true) {
		c.diffuse(out, params.Float("diffusion_amount", 0.5), ctx.SampleRate)
	}
	if params.Bool("enable_vibrato", true) {
		c.vibrato(out,
			params.Float("vibrato_rate", 5.0),
			params.Float("vibrato_depth", 15.0),
			ctx.SampleRate)
	}
	if params.Bool("enable_resonators", true) {
		res := c.resonatorBank(out,
			params.Float("base_freq", 200.0),
			params.Int("num_modes", 12),
			params.Float("mode_feedback", 0.85),
			ctx.SampleRate)
		// Bank output is dry-nulled, so this adds only the resonances.
		for i := range out {
			out[i] += res[i]
		}
	}
	if params.Bool("enable_frequency_shift", true) {
		frequencyShift(out, params.Float("inharmonicity", 25.0), ctx.SampleRate)
	}

	for i := range out {
		t := float64(i) / float64(ctx.SampleRate)
		env := math.Exp(-5.0 * t / decayTime)
		out[i] = float32(math.Tanh(float64(out[i]) * env * gain))
	}
	return out
}

// stickImpulse is a high-frequency FM sine with near-instant decay,
// simulating the stick-on-metal transient. Harder (louder) hits get more FM
// and therefore more brightness.
func (c *ModalCymbal) stickImpulse(excFreq, excDecay, fmDepth, velocity float64, n, sampleRate int) []float32 {
	out := make([]float32, n)
	scaledFM := fmDepth * velocity * velocity
	modFreq := excFreq / 20.0
	for i := range out {
		t := float64(i) / float64(sampleRate)
		fmEnv := math.Exp(-t / (excDecay * 0.5))
		phase := 2*math.Pi*excFreq*t + scaledFM*fmEnv*math.Sin(2*math.Pi*modFreq*t)
		out[i] = float32(math.Sin(phase) * math.Exp(-t/excDecay) * velocity)
	}
	return out
}

// feedbackLoop runs the dispersion stage sample by sample. The mixed signal
// is limited before it is written back, keeping the loop stable at high
// feedback gains.
func (c *ModalCymbal) feedbackLoop(buf []float32, delayMS, fbGain float64, sampleRate int) {
	delaySamples := int(delayMS / 1000.0 * float64(sampleRate))
	if delaySamples < 1 {
		delaySamples = 1
	}
	if delaySamples > len(c.fbBuffer)-1 {
		delaySamples = len(c.fbBuffer) - 1
	}
	for i := range buf {
		readPos := (c.fbWritePos - delaySamples + len(c.fbBuffer)) % len(c.fbBuffer)
		mixed := float64(buf[i]) + float64(c.fbBuffer[readPos])*fbGain
		limited := math.Tanh(mixed/0.95) * 0.95
		c.fbBuffer[c.fbWritePos] = float32(limited)
		buf[i] = float32(limited)
		c.fbWritePos = (c.fbWritePos + 1) % len(c.fbBuffer)
	}
}

// phaseDistort bends each sample's phase proportionally to its own level,
// which pushes energy into upper harmonics.
func phaseDistort(buf []float32, amount float64) {
	if amount <= 0 {
		return
	}
	for i, s := range buf {
		x := float64(s)
		buf[i] = float32(math.Sin(x * (1 + amount*math.Abs(x)) * math.Pi / 2))
	}
}

var diffusionFreqs = []float64{800, 1200, 1900, 3400, 5600, 8900}

func (c *ModalCymbal) diffuse(buf []float32, amount float64, sampleRate int) {
	if c.allpass == nil {
		for _, f := range diffusionFreqs {
			ap, _ := dsp.NewBiquad(dsp.FilterAllpass, f, 0.7, 0, sampleRate)
			c.allpass = append(c.allpass, ap)
		}
	}
	diffused := make([]float64, len(buf))
	tmp := make([]float32, len(buf))
	for _, ap := range c.allpass {
		copy(tmp, buf)
		ap.Process(tmp)
		for i, s := range tmp {
			diffused[i] += float64(s)
		}
	}
	for i := range buf {
		wet := diffused[i] / float64(len(c.allpass))
		buf[i] = float32(float64(buf[i])*(1-amount) + wet*amount)
	}
}

func (c *ModalCymbal) vibrato(buf []float32, rate, depth float64, sampleRate int) {
	c.vib.Set(clamp01(depth/100.0, 0.5), rate, dsp.WaveSine)
	for i := range buf {
		buf[i] = float32(float64(buf[i]) * (1 + c.vib.Sample(float64(sampleRate))))
	}
}

// modalFrequencies spreads modes on a stretched power law, which lands them
// between harmonic partials the way real cymbal modes do.
func modalFrequencies(baseFreq float64, numModes int) []float64 {
	freqs := make([]float64, numModes)
	for i := range freqs {
		freqs[i] = baseFreq * math.Pow(float64(i+1), 1.47)
	}
	return freqs
}

// resonatorBank sums parallel comb filters, one per mode, then subtracts the
// dry input so only the resonant additions remain. Comb write-back is
// limited like the dispersion loop.
func (c *ModalCymbal) resonatorBank(input []float32, baseFreq float64, numModes int, modeFeedback float64, sampleRate int) []float32 {
	bufSize := int(cymbalResonatorBufSeconds * float64(sampleRate))
	if len(c.resonators) != numModes || (len(c.resonators) > 0 && len(c.resonators[0].buffer) != bufSize) {
		c.resonators = make([]resonator, numModes)
		for i := range c.resonators {
			c.resonators[i].buffer = make([]float32, bufSize)
		}
	}

	freqs := modalFrequencies(baseFreq, numModes)
	out := make([]float32, len(input))
	for m := 0; m < numModes; m++ {
		delaySamples := int(float64(sampleRate) / freqs[m])
		if delaySamples < 1 {
			delaySamples = 1
		}
		if delaySamples > bufSize-1 {
			delaySamples = bufSize - 1
		}
		r := &c.resonators[m]
		for i := range input {
			readPos := (r.writePos - delaySamples + bufSize) % bufSize
			comb := float64(input[i]) + float64(r.buffer[readPos])*modeFeedback
			comb = dsp.SoftLimit(comb, 0.8)
			r.buffer[r.writePos] = float32(comb)
			out[i] += float32(comb)
			r.writePos = (r.writePos + 1) % bufSize
		}
	}
	for i := range out {
		out[i] = out[i]/float32(numModes) - input[i]
	}
	return out
}

// frequencyShift ring-modulates against a sine carrier, blending 30 percent
// shifted signal for inharmonic sidebands.
func frequencyShift(buf []float32, shiftHz float64, sampleRate int) {
	if shiftHz <= 0 {
		return
	}
	const mix = 0.3
	for i := range buf {
		t := float64(i) / float64(sampleRate)
		carrier := math.Sin(2 * math.Pi * shiftHz * t)
		buf[i] = float32(float64(buf[i])*(1-mix) + float64(buf[i])*carrier*mix)
	}
}

// Reset clears all feedback and resonator state.
func (c *ModalCymbal) Reset() {
	for i := range c.fbBuffer {
		c.fbBuffer[i] = 0
	}
	c.fbWritePos = 0
	for _, ap := range c.allpass {
		ap.Reset()
	}
	c.vib.Reset()
	for i := range c.resonators {
		for j := range c.resonators[i].buffer {
			c.resonators[i].buffer[j] = 0
		}
		c.resonators[i].writePos = 0
	}
}

func clamp01(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// Cymbal presets for classic types. Apply by merging into a track's params.
var (
	PresetRide = plug.Params{
		"feedback_delay": 15.0, "phase_distortion": 4.0, "base_freq": 180.0,
		"num_modes": 14, "decay_time": 3.0, "feedback_gain": 0.75,
		"diffusion_amount": 0.4, "vibrato_rate": 3.0, "vibrato_depth": 10.0,
		"inharmonicity": 15.0, "mode_feedback": 0.88,
	}
	PresetCrash = plug.Params{
		"feedback_delay": 25.0, "phase_distortion": 12.0, "base_freq": 220.0,
		"num_modes": 16, "decay_time": 4.5, "feedback_gain": 0.85,
		"diffusion_amount": 0.6, "vibrato_rate": 5.0, "vibrato_depth": 20.0,
		"inharmonicity": 30.0, "mode_feedback": 0.92,
	}
	PresetSplash = plug.Params{
		"feedback_delay": 3.0, "phase_distortion": 8.0, "base_freq": 400.0,
		"num_modes": 8, "decay_time": 0.8, "feedback_gain": 0.65,
		"diffusion_amount": 0.3, "vibrato_rate": 7.0, "vibrato_depth": 15.0,
		"inharmonicity": 20.0, "mode_feedback": 0.75,
	}
	PresetGong = plug.Params{
		"feedback_delay": 80.0, "phase_distortion": 6.0, "base_freq": 80.0,
		"num_modes": 16, "decay_time": 10.0, "feedback_gain": 0.90,
		"diffusion_amount": 0.7, "vibrato_rate": 2.0, "vibrato_depth": 25.0,
		"inharmonicity": 40.0, "mode_feedback": 0.95,
	}
)
