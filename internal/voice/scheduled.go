package voice

// Scheduled is a timeline note rendered in full at trigger time. The engine
// drains it into the owning track's buffer block by block.
type Scheduled struct {
	TrackIndex int
	buffer     []float32
	position   int
}

// NewScheduled wraps a fully rendered note buffer.
func NewScheduled(trackIndex int, audio []float32) *Scheduled {
	return &Scheduled{TrackIndex: trackIndex, buffer: audio}
}

// MixInto adds the next len(dst) samples into dst and advances. Short reads
// near the buffer end add what remains.
func (s *Scheduled) MixInto(dst []float32) {
	n := len(dst)
	if remaining := len(s.buffer) - s.position; n > remaining {
		n = remaining
	}
	for i := 0; i < n; i++ {
		dst[i] += s.buffer[s.position+i]
	}
	s.position += n
}

// Done reports whether the buffer has been fully consumed.
func (s *Scheduled) Done() bool { return s.position >= len(s.buffer) }

// Remaining returns how many samples are left to play.
func (s *Scheduled) Remaining() int { return len(s.buffer) - s.position }
