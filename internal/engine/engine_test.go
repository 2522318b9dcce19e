package engine

import (
	"testing"

	"github.com/PostRockFTW/blooper5-sub000/internal/dsp"
	"github.com/PostRockFTW/blooper5-sub000/internal/fxproc"
	"github.com/PostRockFTW/blooper5-sub000/internal/music"
	"github.com/PostRockFTW/blooper5-sub000/internal/plug"
	"github.com/PostRockFTW/blooper5-sub000/internal/sources"
)

func testRegistry(t *testing.T) *plug.Registry {
	t.Helper()
	r := plug.NewRegistry()
	if err := r.RegisterSource(func() plug.Source { return sources.NewDualOsc() }); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterSource(func() plug.Source { return sources.NewNoiseDrum() }); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterEffect(func() plug.Effect { return fxproc.NewDelay() }); err != nil {
		t.Fatal(err)
	}
	return r
}

func testSong(t *testing.T, notes []music.Note) *music.Song {
	t.Helper()
	tr := music.NewTrack("lead", "DUAL_OSC", notes)
	song, err := music.NewSong("test", 120, 480, []music.Track{tr})
	if err != nil {
		t.Fatal(err)
	}
	return song
}

func newEngine(t *testing.T, song *music.Song) *Engine {
	t.Helper()
	e, err := New(testRegistry(t), 44100)
	if err != nil {
		t.Fatal(err)
	}
	if song != nil {
		if err := e.LoadSong(song); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func renderSeconds(e *Engine, seconds float64) float64 {
	frames := e.BlockSize()
	dst := make([]float32, frames*2)
	total := int(seconds * float64(e.SampleRate()))
	var energy float64
	for rendered := 0; rendered < total; rendered += frames {
		e.RenderBlock(dst)
		for _, s := range dst {
			energy += float64(s) * float64(s)
		}
	}
	return energy
}

func TestEngineSilentWhenStopped(t *testing.T) {
	note, _ := music.NewNote(60, 0, 1, 100)
	e := newEngine(t, testSong(t, []music.Note{note}))
	if energy := renderSeconds(e, 0.1); energy != 0 {
		t.Fatalf("stopped engine produced audio: energy %v", energy)
	}
}

func TestEnginePlaysScheduledNotes(t *testing.T) {
	note, _ := music.NewNote(60, 0, 1, 100)
	e := newEngine(t, testSong(t, []music.Note{note}))
	e.Play()
	if energy := renderSeconds(e, 0.5); energy == 0 {
		t.Fatal("playing engine produced silence")
	}
	snap := e.Snapshot()
	if !snap.Playing {
		t.Fatal("snapshot does not report playing")
	}
	if snap.Tick <= 0 {
		t.Fatalf("snapshot tick = %v, want > 0", snap.Tick)
	}
	if snap.BPM != 120 {
		t.Fatalf("snapshot bpm = %v", snap.BPM)
	}
	if snap.Elapsed < 0.5 {
		t.Fatalf("snapshot elapsed = %v, want at least the rendered half second", snap.Elapsed)
	}
}

func TestEngineNoteTriggersOncePerLoopPass(t *testing.T) {
	note, _ := music.NewNote(60, 0, 0.25, 100)
	song := testSong(t, []music.Note{note})
	song.LoopStart = 0
	song.LoopEnd = 1920
	song.LoopEnabled = true
	e := newEngine(t, song)
	e.Play()

	// Run two loop passes (4 seconds at 120 BPM) and count loop events.
	frames := e.BlockSize()
	dst := make([]float32, frames*2)
	total := 4 * e.SampleRate()
	for rendered := 0; rendered < total; rendered += frames {
		e.RenderBlock(dst)
	}
	loops := 0
	for {
		select {
		case ev := <-e.Events():
			if ev.Kind == EventLoop {
				loops++
			}
		default:
			goto done
		}
	}
done:
	if loops < 1 {
		t.Fatal("no loop events over two passes")
	}
}

func TestEngineMuteHardStopsScheduledVoices(t *testing.T) {
	// A long note that rings across many blocks.
	note, _ := music.NewNote(60, 0, 4, 100)
	song := testSong(t, []music.Note{note})
	song.Tracks[0].Params = map[string]any{"length": 3.0}
	e := newEngine(t, song)
	e.Play()

	frames := e.BlockSize()
	dst := make([]float32, frames*2)
	e.RenderBlock(dst)
	if dsp.Peak(dst) == 0 {
		t.Fatal("note did not sound")
	}
	if e.Snapshot().ScheduledVoices != 1 {
		t.Fatalf("scheduled voices = %d, want 1", e.Snapshot().ScheduledVoices)
	}

	// Mute mid-note: output goes silent immediately and the voice is gone.
	e.SetChannel(0, music.ChannelState{Volume: 0.8, Mute: true})
	e.RenderBlock(dst)
	if dsp.Peak(dst) != 0 {
		t.Fatal("muted track still audible")
	}
	e.RenderBlock(dst)
	if got := e.Snapshot().ScheduledVoices; got != 0 {
		t.Fatalf("muted voice survived: %d", got)
	}

	// Unmute: the note does not resume.
	e.SetChannel(0, music.ChannelState{Volume: 0.8})
	e.RenderBlock(dst)
	if dsp.Peak(dst) != 0 {
		t.Fatal("voice resumed after unmute")
	}
}

// tallySource counts Render calls so tests can see whether a track was
// synthesized at all.
type tallySource struct {
	meta  plug.Metadata
	calls int
}

func newTallySource(t *testing.T) *tallySource {
	t.Helper()
	meta, err := plug.NewMetadata(plug.Metadata{
		ID:       "TALLY",
		Name:     "Tally",
		Category: plug.CategorySource,
		Version:  "1.0.0",
	})
	if err != nil {
		t.Fatal(err)
	}
	return &tallySource{meta: meta}
}

func (s *tallySource) Meta() plug.Metadata { return s.meta }

func (s *tallySource) Render(plug.ProcessContext, float64, float64, plug.Params, int) []float32 {
	s.calls++
	return make([]float32, 64)
}

func TestEngineSkipsSynthesisOnMutedTracks(t *testing.T) {
	tally := newTallySource(t)
	r := plug.NewRegistry()
	if err := r.RegisterSource(func() plug.Source { return tally }); err != nil {
		t.Fatal(err)
	}
	note, _ := music.NewNote(60, 0, 1, 100)
	tr := music.NewTrack("lead", "TALLY", []music.Note{note})
	song, err := music.NewSong("test", 120, 480, []music.Track{tr})
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(r, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadSong(song); err != nil {
		t.Fatal(err)
	}
	e.SetChannel(0, music.ChannelState{Volume: 0.8, Mute: true})
	e.Play()
	renderSeconds(e, 0.2)
	if tally.calls != 0 {
		t.Fatalf("muted track rendered %d times, want 0", tally.calls)
	}

	// Unmuted, the same note renders.
	e.SetChannel(0, music.ChannelState{Volume: 0.8})
	e.Seek(0)
	renderSeconds(e, 0.2)
	if tally.calls == 0 {
		t.Fatal("unmuted track never rendered")
	}
}

func TestEngineFallbackInstrument(t *testing.T) {
	note, _ := music.NewNote(60, 0, 1, 100)
	tr := music.NewTrack("broken", "NO_SUCH_SYNTH", []music.Note{note})
	song, err := music.NewSong("test", 120, 480, []music.Track{tr})
	if err != nil {
		t.Fatal(err)
	}
	e := newEngine(t, song)

	var sawError bool
	select {
	case ev := <-e.Events():
		sawError = ev.Kind == EventError
	default:
	}
	if !sawError {
		t.Fatal("missing instrument did not emit an error event")
	}

	// Substituted fallback still plays the note.
	e.Play()
	if energy := renderSeconds(e, 0.5); energy == 0 {
		t.Fatal("fallback instrument produced silence")
	}
}

func TestEngineLiveNotesWhileStopped(t *testing.T) {
	e := newEngine(t, testSong(t, nil))
	e.NoteOn(0, 60, 100)
	frames := e.BlockSize()
	dst := make([]float32, frames*2)
	e.RenderBlock(dst)
	if dsp.Peak(dst) == 0 {
		t.Fatal("live note silent while transport stopped")
	}
	if got := e.Snapshot().LiveVoices; got != 1 {
		t.Fatalf("live voices = %d, want 1", got)
	}
	e.NoteOff(0, 60)
	// Release plays out, then the voice retires.
	for i := 0; i < 100; i++ {
		e.RenderBlock(dst)
	}
	if got := e.Snapshot().LiveVoices; got != 0 {
		t.Fatalf("live voice never retired: %d", got)
	}
}

func TestEngineRouteFiltersLiveInput(t *testing.T) {
	song := testSong(t, nil)
	song.Tracks[0].Route = music.Route{MIDIChannel: 2, NoteLow: 40, NoteHigh: 80, Receive: true}
	e := newEngine(t, song)

	e.NoteOn(1, 60, 100) // wrong channel
	e.NoteOn(2, 90, 100) // out of key range
	dst := make([]float32, e.BlockSize()*2)
	e.RenderBlock(dst)
	if got := e.Snapshot().LiveVoices; got != 0 {
		t.Fatalf("filtered events created %d voices", got)
	}

	e.NoteOn(2, 60, 100)
	e.RenderBlock(dst)
	if got := e.Snapshot().LiveVoices; got != 1 {
		t.Fatalf("matching event created %d voices, want 1", got)
	}
}

func TestEngineLoopWrapEvictsScheduledVoices(t *testing.T) {
	// A note that rings far longer than the loop. Each pass retriggers it;
	// the previous pass's voice must be gone by then.
	note, _ := music.NewNote(60, 0, 0.5, 100)
	song := testSong(t, []music.Note{note})
	song.Tracks[0].Params = map[string]any{"length": 5.0}
	song.LoopStart = 0
	song.LoopEnd = 480
	song.LoopEnabled = true
	e := newEngine(t, song)
	e.Play()

	// Four one-beat passes at 120 BPM.
	dst := make([]float32, e.BlockSize()*2)
	total := 2 * e.SampleRate()
	for rendered := 0; rendered < total; rendered += e.BlockSize() {
		e.RenderBlock(dst)
	}
	if got := e.Snapshot().ScheduledVoices; got > 1 {
		t.Fatalf("voices stacked up across loop passes: %d", got)
	}
}

func TestEngineLoopWrapEvictsLiveVoices(t *testing.T) {
	song := testSong(t, nil)
	song.LoopStart = 0
	song.LoopEnd = 480
	song.LoopEnabled = true
	e := newEngine(t, song)
	e.Play()
	e.NoteOn(0, 60, 100)
	dst := make([]float32, e.BlockSize()*2)
	e.RenderBlock(dst)
	if e.Snapshot().LiveVoices != 1 {
		t.Fatal("live note did not sound")
	}

	// One full pass of the one-beat loop.
	total := e.SampleRate()
	for rendered := 0; rendered < total; rendered += e.BlockSize() {
		e.RenderBlock(dst)
	}
	if got := e.Snapshot().LiveVoices; got != 0 {
		t.Fatalf("live voice survived the wrap: %d", got)
	}
}

func TestEngineSeekCutsLiveVoices(t *testing.T) {
	e := newEngine(t, testSong(t, nil))
	e.NoteOn(0, 60, 100)
	dst := make([]float32, e.BlockSize()*2)
	e.RenderBlock(dst)
	if e.Snapshot().LiveVoices != 1 {
		t.Fatal("live note did not sound")
	}
	e.Seek(5000)
	e.RenderBlock(dst)
	if got := e.Snapshot().LiveVoices; got != 0 {
		t.Fatalf("seek kept %d live voices", got)
	}
}

func TestEngineSeekCutsScheduledVoices(t *testing.T) {
	note, _ := music.NewNote(60, 0, 4, 100)
	song := testSong(t, []music.Note{note})
	song.Tracks[0].Params = map[string]any{"length": 3.0}
	e := newEngine(t, song)
	e.Play()

	dst := make([]float32, e.BlockSize()*2)
	e.RenderBlock(dst)
	if e.Snapshot().ScheduledVoices != 1 {
		t.Fatal("note did not trigger")
	}
	e.Seek(10000)
	e.RenderBlock(dst)
	if got := e.Snapshot().ScheduledVoices; got != 0 {
		t.Fatalf("seek kept %d scheduled voices", got)
	}
	if tick := e.Snapshot().Tick; tick < 10000 {
		t.Fatalf("seek did not move playhead: tick %v", tick)
	}
}

func TestEngineStopRewindsAndSilences(t *testing.T) {
	note, _ := music.NewNote(60, 0, 2, 100)
	e := newEngine(t, testSong(t, []music.Note{note}))
	e.Play()
	renderSeconds(e, 0.2)
	e.NoteOn(0, 64, 100)
	dst := make([]float32, e.BlockSize()*2)
	e.RenderBlock(dst)

	e.Stop()
	e.RenderBlock(dst)
	if dsp.Peak(dst) != 0 {
		t.Fatal("audio after stop")
	}
	snap := e.Snapshot()
	if snap.Playing || snap.Tick != 0 || snap.LiveVoices != 0 || snap.ScheduledVoices != 0 {
		t.Fatalf("stop left state behind: %+v", snap)
	}
	if snap.Elapsed != 0 {
		t.Fatalf("stop did not rewind the elapsed clock: %v", snap.Elapsed)
	}
}

func TestEngineSetInstrumentMigratesParams(t *testing.T) {
	e := newEngine(t, testSong(t, nil))
	// gain exists on both DUAL_OSC and NOISE_DRUM; set a custom value.
	if err := e.SetTrackParam(0, "gain", 0.33); err != nil {
		t.Fatal(err)
	}
	if err := e.SetInstrument(0, "NOISE_DRUM"); err != nil {
		t.Fatal(err)
	}
	e.mu.Lock()
	got := e.slots[0].params.Float("gain", -1)
	drumType := e.slots[0].params.String("type", "")
	e.mu.Unlock()
	if got != 0.33 {
		t.Fatalf("gain after swap = %v, want 0.33", got)
	}
	if drumType != "DRUM" {
		t.Fatalf("new parameter not defaulted: %q", drumType)
	}
}

func TestEngineCloseGoesSilent(t *testing.T) {
	note, _ := music.NewNote(60, 0, 1, 100)
	e := newEngine(t, testSong(t, []music.Note{note}))
	e.Play()
	e.Close()
	dst := make([]float32, e.BlockSize()*2)
	for i := range dst {
		dst[i] = 0.5
	}
	e.RenderBlock(dst)
	if dsp.Peak(dst) != 0 {
		t.Fatal("closed engine wrote audio")
	}
}

func TestMixerSoloAndMeters(t *testing.T) {
	m := NewMixer()
	frames := 128
	bufA := make([]float32, frames)
	bufB := make([]float32, frames)
	for i := range bufA {
		bufA[i] = 0.5
		bufB[i] = 0.5
	}
	m.SetChannel(0, music.ChannelState{Volume: 1.0})
	m.SetChannel(1, music.ChannelState{Volume: 1.0, Solo: true})

	master := make([]float32, frames*2)
	m.MixInto(master, [][]float32{bufA, bufB}, frames)
	meters := m.Meters()
	if meters[0] != 0 {
		t.Fatalf("unsoloed channel metered %v, want 0", meters[0])
	}
	if meters[1] == 0 {
		t.Fatal("soloed channel has no meter")
	}
	m.Finalize(master)
	if meters := m.Meters(); meters[MasterChannel] == 0 {
		t.Fatal("master meter empty")
	}
}

func TestMixerLimiterCeiling(t *testing.T) {
	m := NewMixer()
	frames := 64
	loud := make([]float32, frames)
	for i := range loud {
		loud[i] = 3.0
	}
	bufs := make([][]float32, 4)
	for i := range bufs {
		bufs[i] = loud
		m.SetChannel(i, music.ChannelState{Volume: 1.0})
	}
	master := make([]float32, frames*2)
	m.MixInto(master, bufs, frames)
	m.Finalize(master)
	if peak := dsp.Peak(master); peak > 1.0 {
		t.Fatalf("master exceeded full scale: %v", peak)
	}
}
