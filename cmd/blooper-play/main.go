package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	blooper "github.com/PostRockFTW/blooper5-sub000"
	"github.com/PostRockFTW/blooper5-sub000/internal/midisync"
)

func listMIDIPorts() {
	fmt.Println("MIDI inputs:")
	for _, name := range midisync.InputPorts() {
		fmt.Println("  " + name)
	}
	fmt.Println("MIDI outputs:")
	for _, name := range midisync.OutputPorts() {
		fmt.Println("  " + name)
	}
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		loop       = flag.Bool("loop", true, "loop the song; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		wavPath    = flag.String("wav", "", "render to a WAV file instead of playing")
		seconds    = flag.Float64("seconds", 0, "with -wav, render duration (0 = song length plus tail)")
		midiIn     = flag.String("midi-in", "", "MIDI input port for live notes (empty = off)")
		midiOut    = flag.String("midi-out", "", "MIDI output port for transport sync (empty = off)")
		listMIDI   = flag.Bool("list-midi", false, "list MIDI ports and exit")
	)
	flag.Parse()

	if *listMIDI {
		listMIDIPorts()
		return
	}

	song := blooper.DemoSong()
	song.LoopEnabled = *loop

	if *wavPath != "" {
		samples, err := blooper.RenderSong(song, *sampleRate, *seconds)
		if err != nil {
			log.Fatal(err)
		}
		wav := blooper.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*wavPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs)\n", *wavPath, float64(len(samples)/2)/float64(*sampleRate))
		return
	}

	var opts []blooper.PlayerOption
	if *midiIn != "" {
		opts = append(opts, blooper.WithMIDIInput(*midiIn))
	}
	if *midiOut != "" {
		opts = append(opts, blooper.WithMIDIOutput(*midiOut))
	}
	pl, err := blooper.NewPlayer(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Close()
	pl.SetMasterVolume(*volume)

	if err := pl.LoadSong(song); err != nil {
		log.Fatal(err)
	}
	ch := pl.Watch()
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}

	loopCount := 0
	for event := range ch {
		switch event.Kind {
		case blooper.EventSongEnd:
			fmt.Println("playback completed")
			// Let the last release tails ring out before closing the device.
			time.Sleep(2 * time.Second)
			pl.Stop()
			return
		case blooper.EventLoop:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if *loops > 0 && loopCount >= *loops {
				pl.Stop()
				return
			}
		case blooper.EventError:
			fmt.Fprintf(os.Stderr, "track %d: %s\n", event.Track, event.Err)
		}
	}
}
