package music

import (
	"fmt"
	"math"
)

// Note is a single timeline note event. Values are immutable once built;
// positions are in beats so they survive tempo changes.
type Note struct {
	Key             int     // MIDI note number (0-127)
	Start           float64 // start position in beats
	Duration        float64 // length in beats
	Velocity        int     // 1-127
	ReleaseVelocity int     // 0-127
}

// NewNote validates and builds a Note.
func NewNote(key int, start, duration float64, velocity int) (Note, error) {
	n := Note{Key: key, Start: start, Duration: duration, Velocity: velocity, ReleaseVelocity: 64}
	if key < 0 || key > 127 {
		return Note{}, fmt.Errorf("note key must be 0-127, got %d", key)
	}
	if duration <= 0 {
		return Note{}, fmt.Errorf("note duration must be positive, got %v", duration)
	}
	if velocity < 1 || velocity > 127 {
		return Note{}, fmt.Errorf("note velocity must be 1-127, got %d", velocity)
	}
	if start < 0 {
		return Note{}, fmt.Errorf("note start must be non-negative, got %v", start)
	}
	return n, nil
}

// StartTick converts the note start from beats to ticks.
func (n Note) StartTick(tpqn int) float64 {
	return n.Start * float64(tpqn)
}

// EndTick converts the note end from beats to ticks.
func (n Note) EndTick(tpqn int) float64 {
	return (n.Start + n.Duration) * float64(tpqn)
}

// Frequency returns the equal-tempered frequency of the note key.
func (n Note) Frequency() float64 {
	return KeyFrequency(n.Key)
}

// KeyFrequency converts a MIDI key number to Hz (A4 = 440).
func KeyFrequency(key int) float64 {
	return 440.0 * math.Pow(2, float64(key-69)/12.0)
}
