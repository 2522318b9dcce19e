// Package clock holds the tick-based master transport: the scheduler that
// converts elapsed samples to musical ticks and decides which notes fire in
// each render window.
package clock

import (
	"fmt"

	"github.com/PostRockFTW/blooper5-sub000/internal/music"
)

// Loop describes the transport loop region in ticks.
type Loop struct {
	Start   float64
	End     float64
	Enabled bool
}

// Window is a half-open tick interval [From, To) covered by one advance.
// A loop wrap produces two windows in one block.
type Window struct {
	From float64
	To   float64
}

// Contains reports whether tick fires inside this window.
func (w Window) Contains(tick float64) bool {
	return w.From <= tick && tick < w.To
}

// Scheduler advances a fractional tick position from sample counts. Tempo is
// read from the measure map when one is set, otherwise from the fallback BPM.
// The tempo is sampled once per advance at the pre-advance position; a tempo
// change mid-block lands on the next block, which at audio block sizes is
// inaudible.
type Scheduler struct {
	sampleRate int
	tpqn       int
	bpm        float64
	tick       float64
	elapsed    float64
	measures   []music.MeasureMetadata
}

// NewScheduler builds a scheduler at tick zero.
func NewScheduler(sampleRate int, bpm float64, tpqn int) (*Scheduler, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if bpm <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %v", bpm)
	}
	if tpqn <= 0 {
		return nil, fmt.Errorf("tpqn must be positive, got %d", tpqn)
	}
	return &Scheduler{sampleRate: sampleRate, bpm: bpm, tpqn: tpqn}, nil
}

// SetMeasures installs a per-measure tempo map. Pass nil to fall back to the
// fixed BPM.
func (s *Scheduler) SetMeasures(measures []music.MeasureMetadata) {
	s.measures = measures
}

// SetBPM updates the fallback tempo.
func (s *Scheduler) SetBPM(bpm float64) {
	if bpm > 0 {
		s.bpm = bpm
	}
}

// BPMAt returns the tempo in effect at the given tick. Positions past the
// last measure hold the last measure's tempo.
func (s *Scheduler) BPMAt(tick float64) float64 {
	for _, m := range s.measures {
		if m.Contains(tick) {
			return m.BPM
		}
	}
	if n := len(s.measures); n > 0 && tick >= float64(s.measures[n-1].StartTick) {
		return s.measures[n-1].BPM
	}
	return s.bpm
}

// Tick returns the current playback position.
func (s *Scheduler) Tick() float64 { return s.tick }

// Elapsed returns the seconds of audio advanced since the last reset. Seeks
// and loop wraps move the tick but never rewind this clock.
func (s *Scheduler) Elapsed() float64 { return s.elapsed }

// TPQN returns the tick resolution.
func (s *Scheduler) TPQN() int { return s.tpqn }

// Seek jumps the playhead. Negative positions clamp to zero.
func (s *Scheduler) Seek(tick float64) {
	if tick < 0 {
		tick = 0
	}
	s.tick = tick
}

// Reset returns the playhead to zero and zeroes the elapsed clock.
func (s *Scheduler) Reset() {
	s.tick = 0
	s.elapsed = 0
}

// Advance moves the playhead by numSamples and returns the covered windows
// plus whether the loop wrapped. A wrap yields two windows: the stretch up
// to the loop end and the remainder from the loop start, so a note exactly
// on the loop start fires once per pass and never twice in one block.
func (s *Scheduler) Advance(numSamples int, loop Loop) ([]Window, bool) {
	s.elapsed += float64(numSamples) / float64(s.sampleRate)
	bpm := s.BPMAt(s.tick)
	dtMS := float64(numSamples) / float64(s.sampleRate) * 1000.0
	ticksPerMS := bpm * float64(s.tpqn) / 60000.0
	newTick := s.tick + dtMS*ticksPerMS

	if loop.Enabled && loop.End > loop.Start && s.tick < loop.End && newTick >= loop.End {
		overshoot := newTick - loop.End
		length := loop.End - loop.Start
		for overshoot >= length {
			overshoot -= length
		}
		windows := []Window{
			{From: s.tick, To: loop.End},
			{From: loop.Start, To: loop.Start + overshoot},
		}
		s.tick = loop.Start + overshoot
		return windows, true
	}

	windows := []Window{{From: s.tick, To: newTick}}
	s.tick = newTick
	return windows, false
}

// TriggersIn returns the indexes of notes whose start tick falls in any of
// the given windows.
func (s *Scheduler) TriggersIn(notes []music.Note, windows []Window) []int {
	var triggered []int
	for i, n := range notes {
		start := n.StartTick(s.tpqn)
		for _, w := range windows {
			if w.Contains(start) {
				triggered = append(triggered, i)
				break
			}
		}
	}
	return triggered
}
