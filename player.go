// Package blooper is a tracker-style playback engine: songs are grids of
// notes on up to 16 tracks, each with a synthesized instrument and an effect
// chain, mixed through a 16+1 channel mixer and played through the system
// audio device or bounced offline.
package blooper

import (
	"errors"
	"sync"

	intaudio "github.com/PostRockFTW/blooper5-sub000/internal/audio"
	intengine "github.com/PostRockFTW/blooper5-sub000/internal/engine"
	intmidi "github.com/PostRockFTW/blooper5-sub000/internal/midisync"
	intmusic "github.com/PostRockFTW/blooper5-sub000/internal/music"
	intplug "github.com/PostRockFTW/blooper5-sub000/internal/plug"
)

// Re-exported engine event kinds; see Watch.
const (
	EventLoop    = intengine.EventLoop
	EventError   = intengine.EventError
	EventSongEnd = intengine.EventSongEnd
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	blockSize int
	registry  *intplug.Registry
	midiIn    string
	midiOut   string
	enableIn  bool
	enableOut bool
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{blockSize: 512}
}

// WithBlockSize overrides the 512-frame render block.
func WithBlockSize(frames int) PlayerOption {
	return func(cfg *playerConfig) {
		if frames > 0 {
			cfg.blockSize = frames
		}
	}
}

// WithRegistry substitutes the plugin registry, e.g. to add instruments on
// top of DefaultRegistry.
func WithRegistry(r *intplug.Registry) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.registry = r
	}
}

// WithMIDIInput connects a MIDI input port for live notes and inbound
// transport sync. Empty name picks the first available port.
func WithMIDIInput(portName string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.enableIn = true
		cfg.midiIn = portName
	}
}

// WithMIDIOutput connects a MIDI output port that follows the transport:
// start/stop/continue plus a song position pointer on every seek and loop
// wrap. Empty name picks the first available port.
func WithMIDIOutput(portName string) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.enableOut = true
		cfg.midiOut = portName
	}
}

// Player is the public facade: it owns the engine, the audio backend, and
// the optional MIDI bridges. All methods are safe for concurrent use.
type Player struct {
	mu         sync.Mutex
	engine     *intengine.Engine
	audio      *intaudio.Player
	midiIn     *intmidi.Input
	midiOut    *intmidi.Output
	sampleRate int
}

// NewPlayer builds a player. The audio device is not touched until the
// first Play call, so offline use (editing, bouncing) needs no sound
// hardware.
func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}

	p := &Player{sampleRate: sampleRate}

	var midiOut *intmidi.Output
	if cfg.enableOut {
		out, err := intmidi.OpenOutput(cfg.midiOut)
		if err != nil {
			return nil, err
		}
		midiOut = out
		p.midiOut = out
	}

	engOpts := []intengine.Option{intengine.WithBlockSize(cfg.blockSize)}
	if midiOut != nil {
		engOpts = append(engOpts, intengine.WithLoopCallback(func(tick float64) {
			_ = midiOut.SendPosition(tick, p.engine.TPQN())
		}))
	}
	eng, err := intengine.New(cfg.registry, sampleRate, engOpts...)
	if err != nil {
		p.closeMIDI()
		return nil, err
	}
	p.engine = eng

	if cfg.enableIn {
		in, err := intmidi.OpenInput(cfg.midiIn, eng)
		if err != nil {
			p.closeMIDI()
			return nil, err
		}
		p.midiIn = in
	}
	return p, nil
}

// LoadSong installs a song snapshot and rewinds.
func (p *Player) LoadSong(song *intmusic.Song) error {
	return p.engine.LoadSong(song)
}

// Play starts (or resumes) playback, opening the audio device on first use.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		backend, err := intaudio.NewPlayer(p.sampleRate, p.engine)
		if err != nil {
			return err
		}
		p.audio = backend
	}
	p.engine.Play()
	p.audio.Play()
	if p.midiOut != nil {
		_ = p.midiOut.Continue()
	}
	return nil
}

// Pause halts the transport in place. Live input keeps sounding.
func (p *Player) Pause() {
	p.engine.Pause()
	p.mu.Lock()
	out := p.midiOut
	p.mu.Unlock()
	if out != nil {
		_ = out.Stop()
	}
}

// Stop halts playback, rewinds to zero, and silences all voices.
func (p *Player) Stop() {
	p.engine.Stop()
	p.mu.Lock()
	out := p.midiOut
	p.mu.Unlock()
	if out != nil {
		_ = out.Stop()
		_ = out.SendPosition(0, p.engine.TPQN())
	}
}

// Seek jumps the playhead to the given tick at the next block boundary.
func (p *Player) Seek(tick float64) {
	p.engine.Seek(tick)
	p.mu.Lock()
	out := p.midiOut
	p.mu.Unlock()
	if out != nil {
		_ = out.SendPosition(tick, p.engine.TPQN())
	}
}

// SetLoop sets the loop region in ticks.
func (p *Player) SetLoop(startTick, endTick float64, enabled bool) {
	p.engine.SetLoop(startTick, endTick, enabled)
}

// SetBPM changes the song tempo.
func (p *Player) SetBPM(bpm float64) { p.engine.SetBPM(bpm) }

// NoteOn queues a live note, routed by each track's input filter.
func (p *Player) NoteOn(channel, key, velocity int) { p.engine.NoteOn(channel, key, velocity) }

// NoteOff queues a live note release.
func (p *Player) NoteOff(channel, key int) { p.engine.NoteOff(channel, key) }

// SetInstrument swaps a track's instrument, migrating shared parameters.
func (p *Player) SetInstrument(track int, id string) error {
	return p.engine.SetInstrument(track, id)
}

// SetTrackParam sets one instrument parameter on a track.
func (p *Player) SetTrackParam(track int, name string, value any) error {
	return p.engine.SetTrackParam(track, name, value)
}

// SetEffectActive toggles an effect slot on a track.
func (p *Player) SetEffectActive(track, slot int, active bool) {
	p.engine.SetEffectActive(track, slot, active)
}

// SetChannel replaces a mixer strip (0-15 tracks, 16 master).
func (p *Player) SetChannel(i int, state intmusic.ChannelState) {
	p.engine.SetChannel(i, state)
}

// Channel reads a mixer strip.
func (p *Player) Channel(i int) intmusic.ChannelState {
	return p.engine.Channel(i)
}

// SetMasterVolume sets the master strip volume. 1.0 is default; negative
// values clamp to silence.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	state := p.engine.Channel(intengine.MasterChannel)
	state.Volume = volume
	p.engine.SetChannel(intengine.MasterChannel, state)
}

// MasterVolume returns the master strip volume.
func (p *Player) MasterVolume() float64 {
	return p.engine.Channel(intengine.MasterChannel).Volume
}

// Meters returns the last block's RMS levels, 16 tracks then master.
func (p *Player) Meters() [intengine.NumChannels]float64 {
	return p.engine.Meters()
}

// Snapshot returns the transport state: position, tempo, voice counts, and
// the CPU load estimate.
func (p *Player) Snapshot() intengine.Transport {
	return p.engine.Snapshot()
}

// Watch returns the engine's event channel (buffered, drop-on-full):
// loop wraps, song end, and non-fatal render errors.
func (p *Player) Watch() <-chan intengine.Event {
	return p.engine.Events()
}

// Close stops playback and releases the audio device and MIDI ports.
func (p *Player) Close() error {
	p.engine.Close()
	p.mu.Lock()
	audio := p.audio
	p.audio = nil
	p.mu.Unlock()
	var err error
	if audio != nil {
		err = audio.Stop()
	}
	p.closeMIDI()
	return err
}

func (p *Player) closeMIDI() {
	p.mu.Lock()
	in, out := p.midiIn, p.midiOut
	p.midiIn, p.midiOut = nil, nil
	p.mu.Unlock()
	if in != nil {
		_ = in.Close()
	}
	if out != nil {
		_ = out.Close()
	}
}
