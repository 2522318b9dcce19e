package plug

// ProcessContext carries the timing information a processor may need during a
// render call. It is rebuilt per call and must not be retained.
type ProcessContext struct {
	SampleRate  int
	BPM         float64
	TPQN        int
	CurrentTick float64
}

// Source generates audio. Render produces n mono samples for the given
// frequency and per-note parameter overrides; implementations own their
// envelope so the returned buffer is the complete note (attack through decay)
// or a chunk of an open-ended live note.
type Source interface {
	Meta() Metadata
	// Render synthesizes n samples at freq. params carries the track's
	// current parameter values normalized against Meta.
	Render(ctx ProcessContext, freq float64, velocity float64, params Params, n int) []float32
}

// Effect transforms audio in place over a mono block. Implementations keep
// internal state (delay lines, filter memories) between calls and flush it on
// Reset.
type Effect interface {
	Meta() Metadata
	// Process filters buf in place. Returns the processed buffer, which may
	// alias buf.
	Process(ctx ProcessContext, buf []float32, params Params) []float32
	// Tail reports how many samples of output remain after input stops
	// (delay and reverb tails). Zero for memoryless effects.
	Tail(ctx ProcessContext, params Params) int
	// Reset clears all internal state.
	Reset()
}
