package music

// TimeSignature is a meter as numerator/denominator (e.g. 4/4, 7/8).
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// MeasureMetadata holds per-measure tempo and meter. A song's measure map is
// an ordered, tick-contiguous sequence of these; the scheduler only reads it.
// Maps cleanly onto MIDI SetTempo/TimeSignature meta events.
type MeasureMetadata struct {
	Index         int
	StartTick     int
	TimeSignature TimeSignature
	BPM           float64
	LengthTicks   int
}

// Contains reports whether tick falls inside this measure's half-open
// interval [StartTick, StartTick+LengthTicks).
func (m MeasureMetadata) Contains(tick float64) bool {
	return tick >= float64(m.StartTick) && tick < float64(m.StartTick+m.LengthTicks)
}
