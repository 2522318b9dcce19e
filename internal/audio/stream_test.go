package audio

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
)

// countingRenderer emits an incrementing sample value per render call so the
// test can verify block order and remainder carry across reads.
type countingRenderer struct {
	block int
	next  float32
	done  bool
}

func (c *countingRenderer) BlockSize() int { return c.block }
func (c *countingRenderer) RenderBlock(dst []float32) {
	for i := range dst {
		dst[i] = c.next
		c.next++
	}
}
func (c *countingRenderer) Finished() bool { return c.done }

func readSamples(t *testing.T, r *StreamReader, frames int) []float32 {
	t.Helper()
	p := make([]byte, frames*8)
	n, err := r.Read(p)
	if err != nil && err != io.EOF {
		t.Fatal(err)
	}
	if n != len(p) {
		t.Fatalf("short read: %d of %d bytes", n, len(p))
	}
	out := make([]float32, frames*2)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return out
}

func TestStreamReaderCarriesBlockRemainder(t *testing.T) {
	src := &countingRenderer{block: 64}
	r := NewStreamReader(src)

	// 100 frames = 200 samples: one full 128-sample block plus part of the
	// next. The sequence must be continuous across the read boundary.
	a := readSamples(t, r, 100)
	b := readSamples(t, r, 100)
	all := append(a, b...)
	for i, s := range all {
		if s != float32(i) {
			t.Fatalf("sample %d = %v, want %v", i, s, float32(i))
		}
	}
}

func TestStreamReaderEOFOnFinish(t *testing.T) {
	src := &countingRenderer{block: 32, done: true}
	r := NewStreamReader(src)
	p := make([]byte, 32*8)
	n, err := r.Read(p)
	if n == 0 {
		t.Fatal("finished renderer returned no final data")
	}
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}
