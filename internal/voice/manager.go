package voice

import (
	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/music"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

type voiceKey struct {
	track int
	key   int
}

// Manager owns the live voices. One voice per (track, key); retriggering a
// sounding key quick-releases the old voice and starts a fresh one.
type Manager struct {
	voices map[voiceKey]*Live
}

func NewManager() *Manager {
	return &Manager{voices: map[voiceKey]*Live{}}
}

// NoteOn starts a voice for the key, evicting any voice already on it.
func (m *Manager) NoteOn(trackIndex, key, velocity int, source plug.Source, params plug.Params, ctx plug.ProcessContext) {
	k := voiceKey{trackIndex, key}
	if old, ok := m.voices[k]; ok {
		old.NoteOff(QuickRelease)
		delete(m.voices, k)
	}
	m.voices[k] = NewLive(trackIndex, key, velocity, source, params, ctx)
}

// NoteOff releases the voice on the key, if any.
func (m *Manager) NoteOff(trackIndex, key int) {
	if v, ok := m.voices[voiceKey{trackIndex, key}]; ok {
		v.NoteOff(DefaultRelease)
	}
}

// Count returns the number of active voices.
func (m *Manager) Count() int { return len(m.voices) }

// RenderInto mixes all live voices into the interleaved stereo master,
// applying each track's live mixer state. A muted track, or an unsoloed
// track while any solo is active, hard-stops its voices immediately.
func (m *Manager) RenderInto(master []float32, frames int, channels []music.ChannelState, anySolo bool) {
	var drop []voiceKey
	for k, v := range m.voices {
		if k.track >= len(channels) {
			drop = append(drop, k)
			continue
		}
		ch := channels[k.track]
		if ch.Mute || (anySolo && !ch.Solo) {
			drop = append(drop, k)
			continue
		}

		chunk := v.NextChunk(frames)
		leftGain, rightGain := dsp.PanGains(ch.Pan)
		leftGain *= ch.Volume
		rightGain *= ch.Volume
		for i, s := range chunk {
			master[2*i] += s * float32(leftGain)
			master[2*i+1] += s * float32(rightGain)
		}

		if v.Done() {
			drop = append(drop, k)
		}
	}
	for _, k := range drop {
		delete(m.voices, k)
	}
}

// ClearAll drops every voice, used on transport stop.
func (m *Manager) ClearAll() {
	m.voices = map[voiceKey]*Live{}
}

// ClearTrack drops all voices on one track.
func (m *Manager) ClearTrack(trackIndex int) {
	for k := range m.voices {
		if k.track == trackIndex {
			delete(m.voices, k)
		}
	}
}
