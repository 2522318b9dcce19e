package midisync

import "testing"

func TestPositionPointer(t *testing.T) {
	cases := []struct {
		tick float64
		tpqn int
		want uint16
	}{
		{0, 480, 0},
		{-50, 480, 0},
		{120, 480, 1},      // one sixteenth at 480 TPQN
		{480, 480, 4},      // one beat
		{1920, 480, 16},    // one 4/4 bar
		{479, 480, 3},      // truncates, never rounds up
		{1e9, 480, 0x3FFF}, // clamped to 14 bits
		{960, 0, 0},        // degenerate resolution
	}
	for _, c := range cases {
		if got := PositionPointer(c.tick, c.tpqn); got != c.want {
			t.Fatalf("PositionPointer(%v, %d) = %d, want %d", c.tick, c.tpqn, got, c.want)
		}
	}
}

func TestTickFromPointerRoundTrip(t *testing.T) {
	for _, ptr := range []uint16{0, 1, 4, 16, 1000, 0x3FFF} {
		tick := TickFromPointer(ptr, 480)
		if got := PositionPointer(tick, 480); got != ptr {
			t.Fatalf("round trip %d -> %v -> %d", ptr, tick, got)
		}
	}
	if got := TickFromPointer(16, 0); got != 0 {
		t.Fatalf("degenerate tpqn = %v, want 0", got)
	}
}
