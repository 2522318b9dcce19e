// Package engine is the playback orchestrator: it owns the transport, the
// plugin instances, the scheduled and live voices, and the mixer, and renders
// the master stereo signal block by block.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PostRockFTW/blooper5-sub000/internal/clock"
	"github.com/PostRockFTW/blooper5-sub000/internal/fxproc"
	"github.com/PostRockFTW/blooper5-sub000/internal/music"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
	"github.com/PostRockFTW/blooper5-sub000/internal/voice"
)

// FallbackInstrument substitutes for instruments that fail to load, so a
// song with a missing plugin still plays instead of erroring out.
const FallbackInstrument = "DUAL_OSC"

// Transport is a point-in-time snapshot of playback state, safe to read from
// any goroutine.
type Transport struct {
	Playing         bool
	Tick            float64
	Beats           float64
	BPM             float64
	Elapsed         float64 // seconds advanced since the last stop
	CPULoad         float64 // render time as a percentage of block duration
	LiveVoices      int
	ScheduledVoices int
	DroppedEvents   uint64
}

// trackSlot is the per-track render state: the instantiated source, its
// normalized parameters, and the effect chain.
type trackSlot struct {
	source plug.Source
	params plug.Params
	chain  *fxproc.Chain
	buf    []float32
}

// Engine renders a Song. All mutating calls and RenderBlock serialize on one
// mutex; live note input and seeks arrive through bounded queues drained at
// the top of each block so MIDI goroutines never block on the render path.
type Engine struct {
	sampleRate int
	blockSize  int
	registry   *plug.Registry

	mu      sync.Mutex
	song    *music.Song
	sched   *clock.Scheduler
	mixer   *Mixer
	manager *voice.Manager
	slots   []trackSlot
	active  []*voice.Scheduled
	loop    clock.Loop
	playing bool

	noteCh  chan noteEvent
	seekCh  chan float64
	events  chan Event
	dropped atomic.Uint64
	closed  atomic.Bool

	onWrap func(tick float64)

	snapMu sync.Mutex
	snap   Transport
	cpuEWA float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithBlockSize overrides the default 512-frame block.
func WithBlockSize(frames int) Option {
	return func(e *Engine) {
		if frames > 0 {
			e.blockSize = frames
		}
	}
}

// WithLoopCallback registers a function invoked (under the engine lock) each
// time the loop wraps, with the post-wrap tick. Used for outward MIDI sync.
func WithLoopCallback(fn func(tick float64)) Option {
	return func(e *Engine) { e.onWrap = fn }
}

// New builds an engine against a plugin registry.
func New(registry *plug.Registry, sampleRate int, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	e := &Engine{
		sampleRate: sampleRate,
		blockSize:  512,
		registry:   registry,
		mixer:      NewMixer(),
		manager:    voice.NewManager(),
		noteCh:     make(chan noteEvent, 64),
		seekCh:     make(chan float64, 8),
		events:     make(chan Event, 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SampleRate returns the engine's sample rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// BlockSize returns the render block size in frames.
func (e *Engine) BlockSize() int { return e.blockSize }

// TPQN returns the loaded song's tick resolution, or the 480 default before
// a song is loaded. Used for song-position conversions.
func (e *Engine) TPQN() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched != nil {
		return e.sched.TPQN()
	}
	return 480
}

// Events returns the notification channel. Drain it or lose events; the
// render path never blocks on it.
func (e *Engine) Events() <-chan Event { return e.events }

// LoadSong installs a song snapshot and rebuilds all per-track plugin state.
// Playback position resets to zero.
func (e *Engine) LoadSong(song *music.Song) error {
	if song == nil {
		return fmt.Errorf("song is required")
	}
	sched, err := clock.NewScheduler(e.sampleRate, song.BPM, song.TPQN)
	if err != nil {
		return err
	}
	sched.SetMeasures(song.Measures)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.song = song
	e.sched = sched
	e.active = nil
	e.manager.ClearAll()
	e.loop = clock.Loop{Start: song.LoopStart, End: song.LoopEnd, Enabled: song.LoopEnabled}
	e.slots = make([]trackSlot, len(song.Tracks))
	for i := range song.Tracks {
		e.slots[i] = e.buildSlot(&song.Tracks[i], i)
		e.mixer.SetChannel(i, song.Tracks[i].Channel)
	}
	return nil
}

// buildSlot instantiates a track's source and effect chain, falling back to
// the default instrument when loading fails. Caller holds e.mu.
func (e *Engine) buildSlot(track *music.Track, idx int) trackSlot {
	slot := trackSlot{buf: make([]float32, e.blockSize)}

	src, err := e.registry.NewSource(track.Instrument)
	if err != nil {
		e.emit(Event{Kind: EventError, Track: idx,
			Err: fmt.Sprintf("load %s: %v, substituting %s", track.Instrument, err, FallbackInstrument)})
		src, err = e.registry.NewSource(FallbackInstrument)
		if err != nil {
			src = nil
		}
	}
	slot.source = src
	if src != nil {
		slot.params = plug.Normalize(track.Params, src.Meta())
	}

	fxSlots := make([]fxproc.Slot, 0, len(track.Effects))
	for _, cfg := range track.Effects {
		fx, err := e.registry.NewEffect(cfg.ID)
		if err != nil {
			e.emit(Event{Kind: EventError, Track: idx, Err: fmt.Sprintf("load effect %s: %v", cfg.ID, err)})
			continue
		}
		fxSlots = append(fxSlots, fxproc.Slot{
			Effect: fx,
			Params: plug.Normalize(cfg.Params, fx.Meta()),
			Active: cfg.Active,
		})
	}
	slot.chain = fxproc.NewChain(fxSlots...)
	return slot
}

// SetInstrument swaps a track's source, migrating same-named parameter
// values and resetting that track's voices.
func (e *Engine) SetInstrument(trackIndex int, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.song == nil || trackIndex < 0 || trackIndex >= len(e.slots) {
		return fmt.Errorf("no track %d", trackIndex)
	}
	src, err := e.registry.NewSource(id)
	if err != nil {
		return err
	}
	old := e.slots[trackIndex].params
	e.slots[trackIndex].source = src
	e.slots[trackIndex].params = plug.Migrate(old, src.Meta())
	e.song.Tracks[trackIndex].Instrument = id
	e.manager.ClearTrack(trackIndex)
	return nil
}

// SetTrackParam updates one source parameter on a track.
func (e *Engine) SetTrackParam(trackIndex int, name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(e.slots) || e.slots[trackIndex].source == nil {
		return fmt.Errorf("no track %d", trackIndex)
	}
	slot := &e.slots[trackIndex]
	raw := slot.params.Clone()
	raw[name] = value
	slot.params = plug.Normalize(raw, slot.source.Meta())
	return nil
}

// SetEffectActive toggles one effect slot on a track.
func (e *Engine) SetEffectActive(trackIndex, slotIndex int, active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if trackIndex >= 0 && trackIndex < len(e.slots) {
		e.slots[trackIndex].chain.SetActive(slotIndex, active)
	}
}

// SetChannel updates a mixer strip.
func (e *Engine) SetChannel(i int, state music.ChannelState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer.SetChannel(i, state)
}

// Mixer state reads.
func (e *Engine) Channel(i int) music.ChannelState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixer.Channel(i)
}

// Meters returns the last block's RMS levels.
func (e *Engine) Meters() [NumChannels]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixer.Meters()
}

// Play starts the transport from the current position.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = true
}

// Pause halts the transport, keeping position and letting live voices ring.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

// Stop halts the transport, rewinds, and silences everything.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
	if e.sched != nil {
		e.sched.Reset()
	}
	e.active = nil
	e.manager.ClearAll()
	for i := range e.slots {
		e.slots[i].chain.Reset()
	}
}

// SetLoop updates the loop region.
func (e *Engine) SetLoop(startTick, endTick float64, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loop = clock.Loop{Start: startTick, End: endTick, Enabled: enabled}
}

// SetBPM changes the fallback tempo.
func (e *Engine) SetBPM(bpm float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched != nil {
		e.sched.SetBPM(bpm)
	}
	if e.song != nil && bpm > 0 {
		e.song.BPM = bpm
	}
}

// Seek queues a position jump in ticks, applied at the next block boundary.
// The queue is bounded; when full the oldest pending seek is displaced.
func (e *Engine) Seek(tick float64) {
	for {
		select {
		case e.seekCh <- tick:
			return
		default:
			select {
			case <-e.seekCh:
			default:
			}
		}
	}
}

// NoteOn queues a live note-on, routed to receiving tracks at the next
// block. Never blocks; overflow increments the drop counter.
func (e *Engine) NoteOn(channel, key, velocity int) {
	e.pushNote(noteEvent{channel: channel, key: key, velocity: velocity, on: true})
}

// NoteOff queues a live note-off.
func (e *Engine) NoteOff(channel, key int) {
	e.pushNote(noteEvent{channel: channel, key: key})
}

func (e *Engine) pushNote(ev noteEvent) {
	select {
	case e.noteCh <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Snapshot returns the latest transport state.
func (e *Engine) Snapshot() Transport {
	e.snapMu.Lock()
	defer e.snapMu.Unlock()
	return e.snap
}

// Close silences the engine permanently. RenderBlock keeps accepting calls
// and returns silence, so a driver holding the callback stays safe.
func (e *Engine) Close() {
	e.closed.Store(true)
	e.Stop()
}

// emit sends an event without blocking. Caller may hold e.mu.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// RenderBlock fills dst (interleaved stereo, len = 2*frames) with the next
// block of audio. It is the single render entry point for both the realtime
// stream and offline bounce.
func (e *Engine) RenderBlock(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	if e.closed.Load() {
		return
	}
	frames := len(dst) / 2
	start := time.Now()

	e.mu.Lock()
	e.drainSeeks()
	e.drainNotes()

	var wrapped bool
	var tickNow float64
	if e.playing && e.song != nil && e.sched != nil {
		wrapped = e.renderScheduled(dst, frames)
		tickNow = e.sched.Tick()
	} else if e.sched != nil {
		tickNow = e.sched.Tick()
	}

	// Live voices sound even while the transport is stopped.
	e.manager.RenderInto(dst, frames, e.mixer.ChannelStates(), e.mixer.AnySolo())
	e.mixer.Finalize(dst)

	liveCount := e.manager.Count()
	schedCount := len(e.active)
	playing := e.playing
	var bpm float64
	var tpqn int
	var elapsedSec float64
	if e.sched != nil {
		bpm = e.sched.BPMAt(tickNow)
		tpqn = e.sched.TPQN()
		elapsedSec = e.sched.Elapsed()
	}
	onWrap := e.onWrap
	e.mu.Unlock()

	if wrapped {
		e.emit(Event{Kind: EventLoop, Tick: tickNow})
		if onWrap != nil {
			onWrap(tickNow)
		}
	}

	elapsed := time.Since(start).Seconds()
	blockDur := float64(frames) / float64(e.sampleRate)
	load := elapsed / blockDur * 100

	e.snapMu.Lock()
	e.cpuEWA = e.cpuEWA*0.9 + load*0.1
	beats := 0.0
	if tpqn > 0 {
		beats = tickNow / float64(tpqn)
	}
	e.snap = Transport{
		Playing:         playing,
		Tick:            tickNow,
		Beats:           beats,
		BPM:             bpm,
		Elapsed:         elapsedSec,
		CPULoad:         e.cpuEWA,
		LiveVoices:      liveCount,
		ScheduledVoices: schedCount,
		DroppedEvents:   e.dropped.Load(),
	}
	e.snapMu.Unlock()
}

// drainSeeks applies queued position jumps. All voices are cut, scheduled
// and live alike; they belong to the old position. Caller holds e.mu.
func (e *Engine) drainSeeks() {
	jumped := false
	for {
		select {
		case tick := <-e.seekCh:
			if e.sched != nil {
				e.sched.Seek(tick)
			}
			jumped = true
		default:
			if jumped {
				e.active = nil
				e.manager.ClearAll()
			}
			return
		}
	}
}

// drainNotes routes queued live events to every receiving track. Caller
// holds e.mu.
func (e *Engine) drainNotes() {
	if e.song == nil {
		// No song: drop events rather than queue them forever.
		for {
			select {
			case <-e.noteCh:
			default:
				return
			}
		}
	}
	ctx := e.processContext()
	for {
		select {
		case ev := <-e.noteCh:
			for i := range e.song.Tracks {
				if !e.song.Tracks[i].Route.Accepts(ev.channel, ev.key) {
					continue
				}
				if ev.on {
					if src := e.slots[i].source; src != nil {
						e.manager.NoteOn(i, ev.key, ev.velocity, src, e.slots[i].params, ctx)
					}
				} else {
					e.manager.NoteOff(i, ev.key)
				}
			}
		default:
			return
		}
	}
}

func (e *Engine) processContext() plug.ProcessContext {
	ctx := plug.ProcessContext{SampleRate: e.sampleRate}
	if e.sched != nil {
		ctx.CurrentTick = e.sched.Tick()
		ctx.BPM = e.sched.BPMAt(ctx.CurrentTick)
		ctx.TPQN = e.sched.TPQN()
	}
	return ctx
}

// renderScheduled advances the clock, fires triggered notes, drains the
// scheduled voices through each track's effect chain, and mixes the result
// into dst. Returns whether the loop wrapped. Caller holds e.mu.
func (e *Engine) renderScheduled(dst []float32, frames int) bool {
	ctx := e.processContext()
	windows, wrapped := e.sched.Advance(frames, e.loop)

	// A wrap is a position jump like any other: every ringing voice is
	// evicted before this pass's triggers fire, so tails never stack up
	// across passes.
	if wrapped {
		e.active = e.active[:0]
		e.manager.ClearAll()
	}

	// Fire notes whose start falls in this block's windows. Inaudible
	// tracks skip synthesis outright.
	for ti := range e.song.Tracks {
		track := &e.song.Tracks[ti]
		slot := &e.slots[ti]
		if slot.source == nil || !e.mixer.Audible(ti) {
			continue
		}
		for _, ni := range e.sched.TriggersIn(track.Notes, windows) {
			note := track.Notes[ni]
			audio := slot.source.Render(ctx, note.Frequency(), float64(note.Velocity)/127.0, slot.params, frames)
			if len(audio) > 0 {
				e.active = append(e.active, voice.NewScheduled(ti, audio))
			}
		}
	}

	// Non-looping song end.
	if !e.loop.Enabled && e.song.LengthTicks > 0 && e.sched.Tick() >= float64(e.song.LengthTicks) {
		e.emit(Event{Kind: EventSongEnd, Tick: e.sched.Tick()})
	}

	// Drain voices into per-track buffers. Voices on inaudible tracks are
	// hard-stopped: dropped without fade, same policy as live voices.
	for i := range e.slots {
		buf := e.slots[i].buf
		if len(buf) < frames {
			buf = make([]float32, frames)
			e.slots[i].buf = buf
		}
		for j := 0; j < frames; j++ {
			buf[j] = 0
		}
	}
	kept := e.active[:0]
	for _, v := range e.active {
		if v.TrackIndex >= len(e.slots) || !e.mixer.Audible(v.TrackIndex) {
			continue
		}
		v.MixInto(e.slots[v.TrackIndex].buf[:frames])
		if !v.Done() {
			kept = append(kept, v)
		}
	}
	e.active = kept

	// Per-track effect chains run on the mono buffer before panning.
	trackBufs := make([][]float32, len(e.slots))
	for i := range e.slots {
		out := e.slots[i].chain.Process(ctx, e.slots[i].buf[:frames])
		trackBufs[i] = out
	}
	e.mixer.MixInto(dst, trackBufs, frames)
	return wrapped
}
