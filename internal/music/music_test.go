package music

import (
	"math"
	"testing"
)

func TestNewNoteValidation(t *testing.T) {
	if _, err := NewNote(60, 0, 1, 100); err != nil {
		t.Fatalf("valid note rejected: %v", err)
	}
	bad := []struct {
		key      int
		start    float64
		dur      float64
		velocity int
	}{
		{-1, 0, 1, 100},
		{128, 0, 1, 100},
		{60, -0.5, 1, 100},
		{60, 0, 0, 100},
		{60, 0, -1, 100},
		{60, 0, 1, 0},
		{60, 0, 1, 128},
	}
	for _, b := range bad {
		if _, err := NewNote(b.key, b.start, b.dur, b.velocity); err == nil {
			t.Fatalf("accepted invalid note %+v", b)
		}
	}
}

func TestNoteTicksAndFrequency(t *testing.T) {
	n, err := NewNote(69, 2, 0.5, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.StartTick(480); got != 960 {
		t.Fatalf("StartTick = %v, want 960", got)
	}
	if got := n.EndTick(480); got != 1200 {
		t.Fatalf("EndTick = %v, want 1200", got)
	}
	if got := n.Frequency(); math.Abs(got-440) > 1e-9 {
		t.Fatalf("A4 frequency = %v, want 440", got)
	}
	if got := KeyFrequency(60); math.Abs(got-261.6255653) > 1e-4 {
		t.Fatalf("middle C frequency = %v", got)
	}
	if n.ReleaseVelocity != 64 {
		t.Fatalf("default release velocity = %d, want 64", n.ReleaseVelocity)
	}
}

func TestMeasureContains(t *testing.T) {
	m := MeasureMetadata{Index: 1, StartTick: 1920, TimeSignature: TimeSignature{4, 4}, BPM: 120, LengthTicks: 1920}
	if !m.Contains(1920) {
		t.Fatal("start tick excluded")
	}
	if !m.Contains(3839.9) {
		t.Fatal("interior tick excluded")
	}
	if m.Contains(3840) {
		t.Fatal("end tick included, interval should be half-open")
	}
	if m.Contains(1919.9) {
		t.Fatal("tick before start included")
	}
}

func TestRouteAccepts(t *testing.T) {
	r := Route{MIDIChannel: 3, NoteLow: 40, NoteHigh: 80, Receive: true}
	if !r.Accepts(3, 60) {
		t.Fatal("matching event rejected")
	}
	if r.Accepts(2, 60) {
		t.Fatal("wrong channel accepted")
	}
	if r.Accepts(3, 39) || r.Accepts(3, 81) {
		t.Fatal("out-of-range key accepted")
	}
	r.Receive = false
	if r.Accepts(3, 60) {
		t.Fatal("disabled route accepted an event")
	}
	omni := Route{MIDIChannel: -1, NoteLow: 0, NoteHigh: 127, Receive: true}
	if !omni.Accepts(15, 0) || !omni.Accepts(0, 127) {
		t.Fatal("omni route rejected an event")
	}
}

func TestNewTrackDefaults(t *testing.T) {
	tr := NewTrack("lead", "DUAL_OSC", nil)
	if tr.Channel.Volume != 0.8 || tr.Channel.Pan != 0 {
		t.Fatalf("channel defaults = %+v", tr.Channel)
	}
	if tr.Channel.Mute || tr.Channel.Solo {
		t.Fatal("new track should start unmuted and unsoloed")
	}
	if !tr.Route.Receive || tr.Route.MIDIChannel != -1 || tr.Route.NoteHigh != 127 {
		t.Fatalf("route defaults = %+v", tr.Route)
	}
}

func TestNewSongValidation(t *testing.T) {
	s, err := NewSong("demo", 120, 480, nil)
	if err != nil {
		t.Fatalf("valid song rejected: %v", err)
	}
	if s.TimeSignature != (TimeSignature{4, 4}) {
		t.Fatalf("default time signature = %+v", s.TimeSignature)
	}
	if s.LengthTicks != 1920 {
		t.Fatalf("default length = %d, want 1920", s.LengthTicks)
	}
	if _, err := NewSong("x", 0, 480, nil); err == nil {
		t.Fatal("zero bpm accepted")
	}
	if _, err := NewSong("x", 120, 0, nil); err == nil {
		t.Fatal("zero tpqn accepted")
	}
	many := make([]Track, MaxTracks+1)
	if _, err := NewSong("x", 120, 480, many); err == nil {
		t.Fatal("track overflow accepted")
	}

	// Length grows to cover the notes, in whole measures.
	long, _ := NewNote(60, 6, 1, 100) // ends at beat 7, inside measure 2
	s, err = NewSong("demo", 120, 480, []Track{NewTrack("lead", "DUAL_OSC", []Note{long})})
	if err != nil {
		t.Fatal(err)
	}
	if s.LengthTicks != 2*1920 {
		t.Fatalf("length with notes = %d, want %d", s.LengthTicks, 2*1920)
	}
}
