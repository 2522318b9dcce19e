package blooper

import (
	intengine "github.com/PostRockFTW/blooper5-sub000/internal/engine"
	intmusic "github.com/PostRockFTW/blooper5-sub000/internal/music"
)

// Timeline model, re-exported so callers build songs without reaching into
// internal packages.
type (
	Note          = intmusic.Note
	Track         = intmusic.Track
	Song          = intmusic.Song
	ChannelState  = intmusic.ChannelState
	Route         = intmusic.Route
	EffectConfig  = intmusic.EffectConfig
	TimeSignature = intmusic.TimeSignature
)

// Engine surface types.
type (
	Event     = intengine.Event
	EventKind = intengine.EventKind
	Transport = intengine.Transport
)

// MaxTracks is the mixer's track channel count; MasterChannel indexes the
// master strip in SetChannel/Channel/Meters.
const (
	MaxTracks     = intmusic.MaxTracks
	MasterChannel = intengine.MasterChannel
)

// NewNote validates and builds a timeline note. Start and duration are in
// beats.
func NewNote(key int, start, duration float64, velocity int) (Note, error) {
	return intmusic.NewNote(key, start, duration, velocity)
}

// NewTrack builds a track with default mixer and routing state.
func NewTrack(name, instrument string, notes []Note) Track {
	return intmusic.NewTrack(name, instrument, notes)
}

// NewSong validates and builds a song snapshot.
func NewSong(name string, bpm float64, tpqn int, tracks []Track) (*Song, error) {
	return intmusic.NewSong(name, bpm, tpqn, tracks)
}
