package fxproc

import (
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

// Tap delays in seconds, scaled by room size at process time. Mutually prime
// spacings keep the taps from stacking into flutter echo.
var baseDelays = []float64{0.029, 0.037, 0.041, 0.043, 0.047, 0.053, 0.061, 0.067}

// Early reflections arrive ahead of the main tail and carry the room
// character.
var earlyReflectionTimes = []float64{0.01, 0.017, 0.023}

// SpaceReverb simulates rooms from closet to cathedral with multiple delay
// taps, per-reflection damping, and early reflections. The algorithm works
// on whole buffers, so its character depends on the buffer covering the
// note; the engine feeds it note-length buffers plus tail.
type SpaceReverb struct {
	meta plug.Metadata
}

func NewSpaceReverb() *SpaceReverb {
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "SPACE_REVERB",
		Name:        "Space Reverb",
		Category:    plug.CategoryEffect,
		Version:     "1.0.0",
		Author:      "Blooper Team",
		Description: "Room simulation from closet to cathedral",
		Parameters: []plug.ParameterSpec{
			{Name: "mix", Type: plug.TypeFloat, Default: 0.3, Min: 0, Max: 1, DisplayName: "Wet Mix"},
			{Name: "room_size", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 1, DisplayName: "Room Size"},
			{Name: "decay", Type: plug.TypeFloat, Default: 0.6, Min: 0, Max: 1, DisplayName: "Decay Time"},
			{Name: "damping", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 1, DisplayName: "Damping"},
			{Name: "predelay", Type: plug.TypeFloat, Default: 0.02, Min: 0, Max: 0.1, DisplayName: "Pre-delay", Unit: "s"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &SpaceReverb{meta: meta}
}

func (r *SpaceReverb) Meta() plug.Metadata { return r.meta }

func (r *SpaceReverb) Process(ctx plug.ProcessContext, buf []float32, params plug.Params) []float32 {
	if len(buf) == 0 {
		return buf
	}
	mix := params.Float("mix", 0.3)
	roomSize := params.Float("room_size", 0.5)
	decay := params.Float("decay", 0.6)
	damping := params.Float("damping", 0.5)
	predelay := params.Float("predelay", 0.02)

	n := len(buf)
	sr := float64(ctx.SampleRate)

	predelaySamples := int(predelay * sr)
	if predelaySamples >= n {
		predelaySamples = 0
	}
	delayedInput := make([]float64, n)
	for i := predelaySamples; i < n; i++ {
		delayedInput[i] = float64(buf[i-predelaySamples])
	}

	// Room size scales delays 1x (closet) to 10x (cathedral).
	roomMult := 1.0 + roomSize*9.0
	reverbOut := make([]float64, n)
	numReflections := int(3 + decay*4)

	for tapIdx, base := range baseDelays {
		delaySamples := int(base * roomMult * sr)
		if delaySamples <= 0 || delaySamples >= n {
			continue
		}
		temp := make([]float64, n)
		for refl := 0; refl < numReflections; refl++ {
			reflDelay := delaySamples * (refl + 1)
			if reflDelay >= n {
				break
			}
			attenuation := pow(0.3+decay*0.5, refl+1)

			damped := make([]float64, n-reflDelay)
			copy(damped, delayedInput[:n-reflDelay])
			if damping < 1.0 {
				for j := 1; j < len(damped); j++ {
					damped[j] = damped[j]*(1-damping) + damped[j-1]*damping
				}
			}
			for j, v := range damped {
				temp[reflDelay+j] += v * attenuation
			}
		}
		// Alternating phase per tap spreads the taps apart.
		phase := 1.0
		if tapIdx%2 == 1 {
			phase = -1.0
		}
		for j := range reverbOut {
			reverbOut[j] += temp[j] * phase
		}
	}

	norm := float64(len(baseDelays)) * 0.5
	for j := range reverbOut {
		reverbOut[j] /= norm
	}

	for _, erTime := range earlyReflectionTimes {
		erSamples := int(erTime * roomMult * sr)
		if erSamples <= 0 || erSamples >= n {
			continue
		}
		for j := erSamples; j < n; j++ {
			reverbOut[j] += delayedInput[j-erSamples] * 0.3
		}
	}

	for i := range buf {
		buf[i] = float32(float64(buf[i])*(1-mix) + reverbOut[i]*mix)
	}
	return buf
}

// Tail is the longest scaled tap times the reflection count.
func (r *SpaceReverb) Tail(ctx plug.ProcessContext, params plug.Params) int {
	roomSize := params.Float("room_size", 0.5)
	decay := params.Float("decay", 0.6)
	maxDelay := baseDelays[len(baseDelays)-1] * (1.0 + roomSize*9.0)
	numReflections := int(3 + decay*4)
	return int(maxDelay * float64(numReflections) * float64(ctx.SampleRate))
}

// Reset is a no-op: the reverb recomputes from the buffer it is given.
func (r *SpaceReverb) Reset() {}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
