// Package audio bridges the engine's block renderer to the platform audio
// driver via ebiten's f32 player.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// BlockRenderer produces interleaved stereo float32 audio one fixed-size
// block at a time. engine.Engine satisfies this.
type BlockRenderer interface {
	RenderBlock(dst []float32)
	BlockSize() int
}

// FinishingRenderer is a BlockRenderer that can signal the end of playback.
// When Finished returns true, the stream returns io.EOF on the next Read.
type FinishingRenderer interface {
	BlockRenderer
	Finished() bool
}

// StreamReader adapts a BlockRenderer to the io.Reader the ebiten player
// consumes: little-endian float32 bytes, two channels. The driver asks for
// arbitrary byte counts while the renderer only produces whole blocks, so the
// unread tail of the last block is carried between reads.
type StreamReader struct {
	mu     sync.Mutex
	source BlockRenderer
	block  []float32
	rem    []float32
}

func NewStreamReader(source BlockRenderer) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// One stereo frame is 8 bytes (two float32 samples).
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	written := 0

	put := func(samples []float32) int {
		n := len(samples)
		if n > need-written {
			n = need - written
		}
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(p[(written+i)*4:], math.Float32bits(samples[i]))
		}
		written += n
		return n
	}

	if len(r.rem) > 0 {
		n := put(r.rem)
		r.rem = r.rem[n:]
	}
	for written < need {
		blockFrames := r.source.BlockSize()
		if cap(r.block) < blockFrames*2 {
			r.block = make([]float32, blockFrames*2)
		}
		r.block = r.block[:blockFrames*2]
		r.source.RenderBlock(r.block)
		n := put(r.block)
		r.rem = r.block[n:]
	}

	nBytes := written * 4
	if fr, ok := r.source.(FinishingRenderer); ok && fr.Finished() {
		return nBytes, io.EOF
	}
	return nBytes, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source BlockRenderer) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Position returns the current playback position (what the listener actually hears).
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
