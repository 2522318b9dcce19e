// Package fxproc holds the built-in effect plugins: delay, space reverb, and
// an eight-band EQ, plus the chain type that runs them in series.
package fxproc

import (
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

const delayBufferSeconds = 10.0

// Delay is a stateful feedback delay with tone control and a ping-pong
// amplitude wobble. The circular buffer persists across Process calls so
// echoes ring past the input.
type Delay struct {
	meta plug.Metadata

	buffer     []float32
	writePos   int
	pingPong   float64
	sampleRate int
}

func NewDelay() *Delay {
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:          "DELAY",
		Name:        "Delay",
		Category:    plug.CategoryEffect,
		Version:     "1.0.0",
		Author:      "Blooper Team",
		Description: "Comprehensive delay with feedback and ping-pong",
		Parameters: []plug.ParameterSpec{
			{Name: "delay_time", Type: plug.TypeFloat, Default: 0.5, Min: 0.1, Max: 5, DisplayName: "Delay Time", Unit: "s"},
			{Name: "feedback", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 0.95, DisplayName: "Feedback"},
			{Name: "mix", Type: plug.TypeFloat, Default: 0.5, Min: 0, Max: 1, DisplayName: "Dry/Wet"},
			{Name: "tone", Type: plug.TypeFloat, Default: 0.7, Min: 0, Max: 1, DisplayName: "Tone"},
			{Name: "pingpong", Type: plug.TypeFloat, Default: 0.0, Min: 0, Max: 1, DisplayName: "Ping-Pong"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &Delay{meta: meta, pingPong: 1.0}
}

func (d *Delay) Meta() plug.Metadata { return d.meta }

func (d *Delay) Process(ctx plug.ProcessContext, buf []float32, params plug.Params) []float32 {
	if len(buf) == 0 {
		return buf
	}
	if d.sampleRate != ctx.SampleRate {
		d.sampleRate = ctx.SampleRate
		d.buffer = make([]float32, int(delayBufferSeconds*float64(ctx.SampleRate)))
		d.writePos = 0
	}

	delayTime := params.Float("delay_time", 0.5)
	feedback := params.Float("feedback", 0.5)
	mix := params.Float("mix", 0.5)
	tone := params.Float("tone", 0.7)
	pingpong := params.Float("pingpong", 0.0)

	delaySamples := int(delayTime * float64(ctx.SampleRate))
	if floor := ctx.SampleRate / 10; delaySamples < floor {
		delaySamples = floor
	}
	if delaySamples > len(d.buffer)-1 {
		delaySamples = len(d.buffer) - 1
	}

	size := len(d.buffer)
	for i := range buf {
		readPos := (d.writePos - delaySamples + size) % size
		delayed := float64(d.buffer[readPos])

		// Tone rolls off highs by averaging with the neighbor sample.
		if tone < 0.95 {
			prevPos := (readPos - 1 + size) % size
			delayed = tone*delayed + (1-tone)*float64(d.buffer[prevPos])
		}

		if pingpong > 0.01 {
			if i > 0 && i%delaySamples == 0 {
				d.pingPong *= -1
			}
			delayed *= 1 - pingpong*0.4*d.pingPong
		}

		// Limit before the write so runaway feedback saturates instead of
		// overflowing the line.
		toBuffer := dsp.SoftLimit(float64(buf[i])+delayed*feedback, 0.8)
		d.buffer[d.writePos] = float32(toBuffer)

		buf[i] = float32(float64(buf[i])*(1-mix) + delayed*mix)
		d.writePos = (d.writePos + 1) % size
	}
	return buf
}

// Tail estimates how long echoes stay audible: the echo count until feedback
// decays 60 dB, capped at 100.
func (d *Delay) Tail(ctx plug.ProcessContext, params plug.Params) int {
	delayTime := params.Float("delay_time", 0.5)
	feedback := params.Float("feedback", 0.5)
	numEchoes := 1
	if feedback >= 0.01 {
		numEchoes = int(math.Log(0.001) / math.Log(feedback))
		if numEchoes > 100 {
			numEchoes = 100
		}
		if numEchoes < 1 {
			numEchoes = 1
		}
	}
	return int(delayTime * float64(numEchoes) * float64(ctx.SampleRate))
}

func (d *Delay) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
	d.pingPong = 1.0
}
