package blooper

import (
	"encoding/binary"
	"math"

	intengine "github.com/PostRockFTW/blooper5-sub000/internal/engine"
	intmusic "github.com/PostRockFTW/blooper5-sub000/internal/music"
)

// SongSeconds returns the song's timeline length in seconds at its base
// tempo, excluding any instrument release tails.
func SongSeconds(song *intmusic.Song) float64 {
	if song == nil || song.BPM <= 0 || song.TPQN <= 0 {
		return 0
	}
	beats := float64(song.LengthTicks) / float64(song.TPQN)
	return beats * 60 / song.BPM
}

// RenderSong bounces a song offline through the same block renderer the
// realtime stream uses. seconds <= 0 renders the whole timeline plus a
// two-second tail for releases and effect decays. The loop region is
// ignored so the bounce terminates.
func RenderSong(song *intmusic.Song, sampleRate int, seconds float64) ([]float32, error) {
	eng, err := intengine.New(DefaultRegistry(), sampleRate)
	if err != nil {
		return nil, err
	}
	if err := eng.LoadSong(song); err != nil {
		return nil, err
	}
	eng.SetLoop(0, 0, false)
	eng.Play()

	if seconds <= 0 {
		seconds = SongSeconds(song) + 2
	}
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	block := eng.BlockSize()
	buf := make([]float32, block*2)
	for done := 0; done < frames; done += block {
		eng.RenderBlock(buf)
		copy(out[done*2:], buf)
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
