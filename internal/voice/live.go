// Package voice manages playing notes: pre-rendered scheduled voices from
// the timeline and live voices driven by MIDI input.
package voice

import (
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

const (
	// Initial pre-render covers most held notes; longer holds extend in
	// one-second chunks.
	initialRenderSeconds   = 2.0
	extensionRenderSeconds = 1.0

	// DefaultRelease is the note-off release envelope length.
	DefaultRelease = 0.3
	// QuickRelease is used when a still-sounding voice is retriggered.
	QuickRelease = 0.05
)

// Live is one held note from live input. The note is pre-rendered with the
// synth's decay forced out to the buffer length, extended while held, and
// faded with an exponential release on note off.
type Live struct {
	TrackIndex int
	Key        int
	Velocity   int

	source plug.Source
	params plug.Params
	ctx    plug.ProcessContext

	buffer   []float32
	position int
	released bool
	finished bool
}

// NewLive renders the initial buffer and returns the voice.
func NewLive(trackIndex, key, velocity int, source plug.Source, params plug.Params, ctx plug.ProcessContext) *Live {
	v := &Live{
		TrackIndex: trackIndex,
		Key:        key,
		Velocity:   velocity,
		source:     source,
		params:     params,
		ctx:        ctx,
	}
	v.buffer = v.render(initialRenderSeconds)
	return v
}

// render asks the synth for duration seconds of audio with its envelope
// parameters overridden, so short percussive presets still sustain while the
// key is held.
func (v *Live) render(duration float64) []float32 {
	override := v.params.Clone()
	override["length"] = duration
	override["decay"] = duration
	override["decay_time"] = duration

	freq := 440.0 * math.Pow(2, float64(v.Key-69)/12.0)
	n := int(duration * float64(v.ctx.SampleRate))
	return v.source.Render(v.ctx, freq, float64(v.Velocity)/127.0, override, n)
}

// NextChunk returns the next frames samples, zero padded past the end. The
// buffer grows while the note is held.
func (v *Live) NextChunk(frames int) []float32 {
	if !v.released && v.position+frames >= len(v.buffer) {
		v.buffer = append(v.buffer, v.render(extensionRenderSeconds)...)
	}
	end := v.position + frames
	if end > len(v.buffer) {
		end = len(v.buffer)
	}
	chunk := make([]float32, frames)
	copy(chunk, v.buffer[v.position:end])
	v.position = end
	if v.position >= len(v.buffer) {
		v.finished = true
	}
	return chunk
}

// NoteOff fades the remaining buffer with an exponential release and
// truncates it. A second call is a no-op.
func (v *Live) NoteOff(releaseTime float64) {
	if v.released {
		return
	}
	v.released = true

	decayLength := int(releaseTime * float64(v.ctx.SampleRate))
	if remaining := len(v.buffer) - v.position; decayLength > remaining {
		decayLength = remaining
	}
	if decayLength <= 0 {
		v.buffer = v.buffer[:v.position]
		return
	}
	for i := 0; i < decayLength; i++ {
		t := float64(i) / float64(decayLength) * releaseTime
		v.buffer[v.position+i] *= float32(math.Exp(-6.0 * t / releaseTime))
	}
	v.buffer = v.buffer[:v.position+decayLength]
}

// Done reports whether the voice has played out.
func (v *Live) Done() bool { return v.finished }

// Released reports whether note off has been received.
func (v *Live) Released() bool { return v.released }
