package blooper

import "testing"

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerLoadAndSnapshot(t *testing.T) {
	pl, err := NewPlayer(44100)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.LoadSong(DemoSong()); err != nil {
		t.Fatalf("load demo song: %v", err)
	}
	snap := pl.Snapshot()
	if snap.Playing {
		t.Fatal("fresh player reports playing")
	}
	if snap.Tick != 0 {
		t.Fatalf("fresh player tick = %v", snap.Tick)
	}
}

func TestDefaultRegistryContents(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range []string{"DUAL_OSC", "NOISE_DRUM", "ZION_CYMBAL"} {
		if _, err := r.NewSource(id); err != nil {
			t.Fatalf("missing source %s: %v", id, err)
		}
	}
	for _, id := range []string{"DELAY", "SPACE_REVERB", "EQ"} {
		if _, err := r.NewEffect(id); err != nil {
			t.Fatalf("missing effect %s: %v", id, err)
		}
	}
}
