package music

import (
	"fmt"
	"math"
)

// ChannelState is the mixer state of one channel, read live every block.
// Pan is normalized to [-1, 1] with 0 at center.
type ChannelState struct {
	Volume float64
	Pan    float64
	Mute   bool
	Solo   bool
}

// Route filters incoming live note events onto a track.
type Route struct {
	MIDIChannel int // 0-15, or -1 for omni
	NoteLow     int
	NoteHigh    int
	Receive     bool
}

// Accepts reports whether a live event on the given channel and key should
// reach this track.
func (r Route) Accepts(channel, key int) bool {
	if !r.Receive {
		return false
	}
	if r.MIDIChannel >= 0 && channel != r.MIDIChannel {
		return false
	}
	return key >= r.NoteLow && key <= r.NoteHigh
}

// EffectConfig is one slot of a track's effect chain.
type EffectConfig struct {
	ID     string
	Active bool
	Params map[string]any
}

// Track is one timeline track: an instrument, its parameter set, an effect
// chain, mixer state, live-input routing, and the notes themselves.
type Track struct {
	Name       string
	Instrument string
	Params     map[string]any
	Effects    []EffectConfig
	Channel    ChannelState
	Route      Route
	Notes      []Note
}

// NewTrack builds a track with all derived defaults computed up front.
func NewTrack(name, instrument string, notes []Note) Track {
	return Track{
		Name:       name,
		Instrument: instrument,
		Params:     map[string]any{},
		Channel:    ChannelState{Volume: 0.8, Pan: 0},
		Route:      Route{MIDIChannel: -1, NoteLow: 0, NoteHigh: 127, Receive: true},
		Notes:      notes,
	}
}

// MaxTracks is the mixer's track channel count (plus one master).
const MaxTracks = 16

// Song is the timeline snapshot the engine renders from. The engine treats a
// Song as immutable: edits replace the whole snapshot.
type Song struct {
	Name          string
	BPM           float64
	TimeSignature TimeSignature
	TPQN          int
	Tracks        []Track
	LengthTicks   int
	LoopStart     float64 // ticks
	LoopEnd       float64 // ticks
	LoopEnabled   bool
	Measures      []MeasureMetadata // optional per-measure tempo map
}

// NewSong validates and builds a Song snapshot.
func NewSong(name string, bpm float64, tpqn int, tracks []Track) (*Song, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	if tpqn <= 0 {
		return nil, fmt.Errorf("tpqn must be positive, got %d", tpqn)
	}
	if len(tracks) > MaxTracks {
		return nil, fmt.Errorf("maximum %d tracks allowed, got %d", MaxTracks, len(tracks))
	}
	// Length covers every note, rounded up to a whole measure, with one
	// empty measure as the floor.
	measureTicks := 4 * tpqn
	length := measureTicks
	for _, tr := range tracks {
		for _, n := range tr.Notes {
			if end := int(math.Ceil(n.EndTick(tpqn))); end > length {
				length = ((end + measureTicks - 1) / measureTicks) * measureTicks
			}
		}
	}
	return &Song{
		Name:          name,
		BPM:           bpm,
		TimeSignature: TimeSignature{4, 4},
		TPQN:          tpqn,
		Tracks:        tracks,
		LengthTicks:   length,
	}, nil
}
