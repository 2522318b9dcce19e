package blooper

import (
	intmusic "github.com/PostRockFTW/blooper5-sub000/internal/music"
)

func mustNote(key int, start, duration float64, velocity int) intmusic.Note {
	n, err := intmusic.NewNote(key, start, duration, velocity)
	if err != nil {
		panic(err)
	}
	return n
}

// DemoSong builds a four-track pattern exercising every built-in
// instrument: a lead line, a square bass, a noise kick, and a ride cymbal
// through a delay. Two 4/4 bars at 120 BPM, loopable.
func DemoSong() *intmusic.Song {
	lead := intmusic.NewTrack("lead", "DUAL_OSC", []intmusic.Note{
		mustNote(60, 0, 0.5, 100),
		mustNote(64, 1, 0.5, 96),
		mustNote(67, 2, 0.5, 100),
		mustNote(72, 3, 1.0, 110),
		mustNote(67, 4.5, 0.5, 90),
		mustNote(64, 5, 0.5, 90),
		mustNote(60, 6, 2.0, 100),
	})
	lead.Params = map[string]any{"osc1_type": "SAW", "osc2_interval": 7, "length": 0.6}
	lead.Channel.Pan = -0.2

	bass := intmusic.NewTrack("bass", "DUAL_OSC", []intmusic.Note{
		mustNote(36, 0, 1, 110),
		mustNote(36, 2, 1, 100),
		mustNote(43, 4, 1, 110),
		mustNote(36, 6, 1, 100),
	})
	bass.Params = map[string]any{"osc1_type": "SQUARE", "osc2_type": "NONE", "filter_cutoff": 800.0, "length": 0.8}
	bass.Channel.Volume = 0.9

	drums := intmusic.NewTrack("drums", "NOISE_DRUM", []intmusic.Note{
		mustNote(36, 0, 0.25, 120),
		mustNote(36, 1, 0.25, 90),
		mustNote(36, 2, 0.25, 120),
		mustNote(36, 3, 0.25, 90),
		mustNote(36, 4, 0.25, 120),
		mustNote(36, 5, 0.25, 90),
		mustNote(36, 6, 0.25, 120),
		mustNote(36, 7, 0.25, 90),
	})

	ride := intmusic.NewTrack("ride", "ZION_CYMBAL", []intmusic.Note{
		mustNote(60, 0.5, 0.25, 70),
		mustNote(60, 2.5, 0.25, 70),
		mustNote(60, 4.5, 0.25, 70),
		mustNote(60, 6.5, 0.25, 85),
	})
	ride.Params = map[string]any{"decay_time": 1.2, "gain": 0.4}
	ride.Channel.Pan = 0.3
	ride.Effects = []intmusic.EffectConfig{
		{ID: "DELAY", Active: true, Params: map[string]any{"delay_time": 0.375, "feedback": 0.3, "mix": 0.25}},
	}

	song, err := intmusic.NewSong("demo", 120, 480, []intmusic.Track{lead, bass, drums, ride})
	if err != nil {
		panic(err)
	}
	song.LoopStart = 0
	song.LoopEnd = float64(song.LengthTicks)
	song.LoopEnabled = true
	return song
}
