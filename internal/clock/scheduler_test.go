package clock

import (
	"math"
	"testing"

	"github.com/PostRockFTW/blooper5-sub000/internal/music"
)

func mustScheduler(t *testing.T, sampleRate int, bpm float64, tpqn int) *Scheduler {
	t.Helper()
	s, err := NewScheduler(sampleRate, bpm, tpqn)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAdvanceTickMath(t *testing.T) {
	// 120 BPM at TPQN 480: 960 ticks per second. One second of samples
	// advances exactly 960 ticks.
	s := mustScheduler(t, 44100, 120, 480)
	s.Advance(44100, Loop{})
	if got := s.Tick(); math.Abs(got-960) > 1e-6 {
		t.Fatalf("tick after one second = %v, want 960", got)
	}
}

func TestAdvanceAccumulatesFractions(t *testing.T) {
	s := mustScheduler(t, 44100, 120, 480)
	// 512-sample blocks do not divide evenly into ticks; the fractional
	// remainder must carry across blocks.
	blocks := 44100 / 512
	for i := 0; i < blocks; i++ {
		s.Advance(512, Loop{})
	}
	want := float64(blocks*512) / 44100.0 * 960.0
	if got := s.Tick(); math.Abs(got-want) > 1e-6 {
		t.Fatalf("tick = %v, want %v", got, want)
	}
}

func TestTriggerWindowHalfOpen(t *testing.T) {
	s := mustScheduler(t, 44100, 120, 480)
	n0, _ := music.NewNote(60, 0, 1, 100)   // tick 0
	n1, _ := music.NewNote(62, 1, 1, 100)   // tick 480
	n2, _ := music.NewNote(64, 2.5, 1, 100) // tick 1200
	notes := []music.Note{n0, n1, n2}

	got := s.TriggersIn(notes, []Window{{From: 0, To: 480}})
	if len(got) != 1 || got[0] != 0 {
		t.Fatalf("window [0,480) triggered %v, want [0]", got)
	}
	// Note at exactly the window end waits for the next window.
	got = s.TriggersIn(notes, []Window{{From: 480, To: 1200}})
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("window [480,1200) triggered %v, want [1]", got)
	}
	got = s.TriggersIn(notes, []Window{{From: 1200, To: 2000}})
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("window [1200,2000) triggered %v, want [2]", got)
	}
}

func TestLoopWrapTriggersExactlyOncePerPass(t *testing.T) {
	// 120 BPM, 4/4, TPQN 480, loop over one measure [0, 1920). A note on
	// the loop start must fire exactly once per pass across two passes.
	const sr = 44100
	s := mustScheduler(t, sr, 120, 480)
	loop := Loop{Start: 0, End: 1920, Enabled: true}
	note, _ := music.NewNote(60, 0, 1, 100)
	notes := []music.Note{note}

	// Two loop passes at 120 BPM = 4 beats each = 4 seconds total.
	totalSamples := 4 * sr
	fires := 0
	wraps := 0
	for rendered := 0; rendered < totalSamples; rendered += 512 {
		windows, wrapped := s.Advance(512, loop)
		if wrapped {
			wraps++
		}
		fires += len(s.TriggersIn(notes, windows))
	}
	if wraps < 1 {
		t.Fatal("loop never wrapped")
	}
	// First pass starts at tick 0, which is inside the first window, plus
	// one fire per wrap.
	want := 1 + wraps
	if fires != want {
		t.Fatalf("note fired %d times over %d wraps, want %d", fires, wraps, want)
	}
}

func TestLoopWrapWindowsSplit(t *testing.T) {
	s := mustScheduler(t, 44100, 120, 480)
	loop := Loop{Start: 100, End: 200, Enabled: true}
	s.Seek(190)
	windows, wrapped := s.Advance(4410, loop) // +96 ticks
	if !wrapped {
		t.Fatal("expected wrap")
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[0].From != 190 || windows[0].To != 200 {
		t.Fatalf("first window = %+v", windows[0])
	}
	if windows[1].From != 100 {
		t.Fatalf("second window starts at %v, want loop start", windows[1].From)
	}
	if got := s.Tick(); math.Abs(got-186) > 1e-6 {
		t.Fatalf("tick after wrap = %v, want 186", got)
	}
}

func TestMeasureMapTempo(t *testing.T) {
	s := mustScheduler(t, 44100, 120, 480)
	s.SetMeasures([]music.MeasureMetadata{
		{Index: 0, StartTick: 0, BPM: 120, LengthTicks: 1920},
		{Index: 1, StartTick: 1920, BPM: 240, LengthTicks: 1920},
	})
	if got := s.BPMAt(0); got != 120 {
		t.Fatalf("BPMAt(0) = %v", got)
	}
	if got := s.BPMAt(1919.9); got != 120 {
		t.Fatalf("BPMAt(1919.9) = %v", got)
	}
	if got := s.BPMAt(1920); got != 240 {
		t.Fatalf("BPMAt(1920) = %v", got)
	}
	// Past the map: hold the last tempo.
	if got := s.BPMAt(99999); got != 240 {
		t.Fatalf("BPMAt past map = %v", got)
	}

	// Advance uses the tempo at the pre-advance position for the whole
	// block.
	s.Seek(1919)
	s.Advance(44100, Loop{})
	if got := s.Tick(); math.Abs(got-(1919+960)) > 1e-6 {
		t.Fatalf("block straddling tempo change advanced %v ticks, want 960", s.Tick()-1919)
	}
}

func TestElapsedSecondsAccumulate(t *testing.T) {
	// Dyadic sample counts keep the arithmetic exact.
	s := mustScheduler(t, 1000, 120, 480)
	for i := 0; i < 3; i++ {
		s.Advance(500, Loop{})
	}
	if got := s.Elapsed(); got != 1.5 {
		t.Fatalf("elapsed = %v, want 1.5", got)
	}
	// Seeks move the tick but never the elapsed clock.
	s.Seek(9999)
	if got := s.Elapsed(); got != 1.5 {
		t.Fatalf("elapsed after seek = %v, want 1.5", got)
	}
	s.Reset()
	if got := s.Elapsed(); got != 0 {
		t.Fatalf("elapsed after reset = %v, want 0", got)
	}
}

func TestElapsedAccumulatesAcrossLoopWraps(t *testing.T) {
	s := mustScheduler(t, 1000, 120, 480)
	loop := Loop{Start: 0, End: 480, Enabled: true}
	for i := 0; i < 4; i++ {
		s.Advance(250, loop)
	}
	if got := s.Elapsed(); got != 1.0 {
		t.Fatalf("elapsed across wraps = %v, want 1.0", got)
	}
}

func TestSeekAndReset(t *testing.T) {
	s := mustScheduler(t, 44100, 120, 480)
	s.Seek(500)
	if s.Tick() != 500 {
		t.Fatalf("seek = %v", s.Tick())
	}
	s.Seek(-10)
	if s.Tick() != 0 {
		t.Fatalf("negative seek = %v, want clamp to 0", s.Tick())
	}
	s.Seek(123)
	s.Reset()
	if s.Tick() != 0 {
		t.Fatalf("reset = %v", s.Tick())
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	if _, err := NewScheduler(0, 120, 480); err == nil {
		t.Fatal("zero sample rate accepted")
	}
	if _, err := NewScheduler(44100, 0, 480); err == nil {
		t.Fatal("zero bpm accepted")
	}
	if _, err := NewScheduler(44100, 120, 0); err == nil {
		t.Fatal("zero tpqn accepted")
	}
}
