package fxproc

import (
	"fmt"
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

var (
	eqFreqBands  = []float64{60, 150, 400, 1000, 2400, 5000, 10000, 16000}
	eqBandLabels = []string{"60Hz", "150Hz", "400Hz", "1kHz", "2.4kHz", "5kHz", "10kHz", "16kHz"}
)

// EightBandEQ is a graphic equalizer with fixed band centers. Bands at unity
// gain are skipped entirely; if every band sits at unity the signal passes
// through untouched.
type EightBandEQ struct {
	meta plug.Metadata

	filters    []*dsp.Biquad
	sampleRate int
}

func NewEightBandEQ() *EightBandEQ {
	params := make([]plug.ParameterSpec, 0, len(eqFreqBands)+1)
	for i, label := range eqBandLabels {
		params = append(params, plug.ParameterSpec{
			Name:        fmt.Sprintf("band_%d", i),
			Type:        plug.TypeFloat,
			Default:     1.0,
			Min:         0.0,
			Max:         2.0,
			DisplayName: label,
			Unit:        "x",
		})
	}
	params = append(params, plug.ParameterSpec{
		Name: "mix", Type: plug.TypeFloat, Default: 1.0, Min: 0, Max: 1, DisplayName: "Dry/Wet",
	})
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "EQ",
		Name:        "8-Band EQ",
		Category:    plug.CategoryEffect,
		Version:     "1.0.0",
		Author:      "Blooper Team",
		Description: "Graphic equalizer with 8 frequency bands",
		Parameters:  params,
	})
	if err != nil {
		panic(err)
	}
	return &EightBandEQ{meta: meta}
}

func (e *EightBandEQ) Meta() plug.Metadata { return e.meta }

func (e *EightBandEQ) Process(ctx plug.ProcessContext, buf []float32, params plug.Params) []float32 {
	if len(buf) == 0 {
		return buf
	}
	if e.sampleRate != ctx.SampleRate {
		e.sampleRate = ctx.SampleRate
		e.filters = make([]*dsp.Biquad, len(eqFreqBands))
		nyquist := float64(ctx.SampleRate) / 2
		for i, center := range eqFreqBands {
			// Band covers center*0.5 to center*1.5; a bandpass at the
			// geometric mean with matching Q approximates it.
			high := math.Min(center*1.5, nyquist*0.95)
			mid := math.Sqrt(center * 0.5 * high)
			q := mid / (high - center*0.5)
			f, _ := dsp.NewBiquad(dsp.FilterBandpass, mid, q, 0, ctx.SampleRate)
			e.filters[i] = f
		}
	}

	mix := params.Float("mix", 1.0)
	acc := make([]float64, len(buf))
	touched := false
	tmp := make([]float32, len(buf))
	for i := range eqFreqBands {
		gain := params.Float(fmt.Sprintf("band_%d", i), 1.0)
		if gain == 1.0 {
			continue
		}
		touched = true
		copy(tmp, buf)
		e.filters[i].Reset()
		e.filters[i].Process(tmp)
		for j, s := range tmp {
			acc[j] += float64(s) * gain
		}
	}

	if !touched {
		return buf
	}
	for i := range buf {
		buf[i] = float32(float64(buf[i])*(1-mix) + acc[i]*mix)
	}
	return buf
}

// Tail is zero: the EQ has no meaningful ring-out.
func (e *EightBandEQ) Tail(ctx plug.ProcessContext, params plug.Params) int { return 0 }

func (e *EightBandEQ) Reset() {
	for _, f := range e.filters {
		if f != nil {
			f.Reset()
		}
	}
}
