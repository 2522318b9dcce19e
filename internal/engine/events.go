package engine

// EventKind classifies engine notifications.
type EventKind int

const (
	// EventLoop fires when the transport wraps from loop end to loop start.
	EventLoop EventKind = iota
	// EventError reports a non-fatal render problem (plugin load failure,
	// dropped input).
	EventError
	// EventSongEnd fires when a non-looping song plays past its length.
	EventSongEnd
)

// Event is a notification from the render goroutine. Events are delivered on
// a small buffered channel and dropped when the consumer lags; they are
// advisory, never load-bearing.
type Event struct {
	Kind  EventKind
	Track int
	Tick  float64
	Err   string
}

// noteEvent is a live input event queued for the next render block.
type noteEvent struct {
	channel  int
	key      int
	velocity int
	on       bool
}
