package engine

import (
	"math"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/music"
)

// NumChannels is 16 track channels plus the master.
const NumChannels = music.MaxTracks + 1

// MasterChannel indexes the master strip in the mixer.
const MasterChannel = music.MaxTracks

// Mixer sums 16 mono track buffers into interleaved stereo with per-channel
// volume, constant-power pan, and mute/solo, then applies master volume and
// a soft limiter. RMS meters are kept per channel for the UI.
type Mixer struct {
	channels [NumChannels]music.ChannelState
	meters   [NumChannels]float64
}

// NewMixer starts all strips at 0.8 volume, centered, with the master at
// unity.
func NewMixer() *Mixer {
	m := &Mixer{}
	for i := range m.channels {
		m.channels[i] = music.ChannelState{Volume: 0.8}
	}
	m.channels[MasterChannel].Volume = 1.0
	return m
}

// SetChannel replaces one strip's state. Out-of-range indexes are ignored.
func (m *Mixer) SetChannel(i int, state music.ChannelState) {
	if i >= 0 && i < NumChannels {
		m.channels[i] = state
	}
}

// Channel returns one strip's state.
func (m *Mixer) Channel(i int) music.ChannelState {
	if i < 0 || i >= NumChannels {
		return music.ChannelState{}
	}
	return m.channels[i]
}

// ChannelStates returns the 16 track strips, for voice rendering.
func (m *Mixer) ChannelStates() []music.ChannelState {
	return m.channels[:music.MaxTracks]
}

// AnySolo reports whether any track strip is soloed.
func (m *Mixer) AnySolo() bool {
	for i := 0; i < music.MaxTracks; i++ {
		if m.channels[i].Solo {
			return true
		}
	}
	return false
}

// Audible reports whether track i currently reaches the master: not muted,
// and soloed if any solo is active.
func (m *Mixer) Audible(i int) bool {
	if i < 0 || i >= music.MaxTracks {
		return false
	}
	ch := m.channels[i]
	if ch.Mute {
		return false
	}
	if m.AnySolo() && !ch.Solo {
		return false
	}
	return true
}

// MixInto accumulates the given mono track buffers into master (interleaved
// stereo, len 2*frames). Inaudible tracks contribute nothing. Master volume
// and the soft limiter are NOT applied here; call Finalize once everything
// (including live voices) has been accumulated.
func (m *Mixer) MixInto(master []float32, trackBufs [][]float32, frames int) {
	for i, buf := range trackBufs {
		if buf == nil || !m.Audible(i) {
			m.meters[i] = 0
			continue
		}
		ch := m.channels[i]
		leftGain, rightGain := dsp.PanGains(ch.Pan)
		leftGain *= ch.Volume
		rightGain *= ch.Volume

		n := frames
		if len(buf) < n {
			n = len(buf)
		}
		var sum float64
		for j := 0; j < n; j++ {
			s := float64(buf[j])
			master[2*j] += float32(s * leftGain)
			master[2*j+1] += float32(s * rightGain)
			sum += s * s
		}
		if n > 0 {
			m.meters[i] = math.Sqrt(sum/float64(n)) * ch.Volume
		}
	}
}

// Finalize applies master volume and the soft limiter in place and updates
// the master meter. The limiter knee sits at 0.8 with a hard ceiling at
// full scale.
func (m *Mixer) Finalize(master []float32) {
	vol := m.channels[MasterChannel].Volume
	if m.channels[MasterChannel].Mute {
		vol = 0
	}
	var sum float64
	for i, s := range master {
		v := dsp.SoftLimit(float64(s)*vol, 0.8)
		master[i] = float32(v)
		sum += v * v
	}
	if len(master) > 0 {
		m.meters[MasterChannel] = math.Sqrt(sum / float64(len(master)))
	}
}

// Meters returns the last block's RMS levels, tracks then master.
func (m *Mixer) Meters() [NumChannels]float64 {
	return m.meters
}
