package encoder

import (
	"bytes"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

func sineBlock(n int, freq float64) []int16 {
	block := make([]int16, n)
	for i := range block {
		block[i] = int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return block
}

func TestFlacEncoder(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	var out bytes.Buffer
	var totalFed uint64
	for i := 0; i < 4; i++ {
		block := sineBlock(BlockSize, 440)
		if err := enc.EncodeBlock(block); err != nil {
			t.Fatalf("EncodeBlock %d: %v", i, err)
		}
		totalFed += uint64(len(block))
		out.Write(enc.TakeChunk())
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out.Write(enc.TakeChunk())

	if enc.TotalFrames() != totalFed {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), totalFed)
	}

	data := out.Bytes()
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("flac.New: %v", err)
	}
	if stream.Info.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", stream.Info.SampleRate, SampleRate)
	}
	// Streamed output never learns its length.
	if stream.Info.NSamples != 0 {
		t.Errorf("NSamples = %d, want 0 for streamed output", stream.Info.NSamples)
	}
}

func TestFlacEncoderEmpty(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if enc.TotalFrames() != 0 {
		t.Errorf("TotalFrames = %d, want 0", enc.TotalFrames())
	}
	if len(enc.TakeChunk()) == 0 {
		t.Error("expected non-empty FLAC output (at least header)")
	}
	if enc.TakeChunk() != nil {
		t.Error("second TakeChunk should be empty")
	}
}

func TestFlacEncoderPartialBlock(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}

	partial := make([]int16, BlockSize/4)
	for i := range partial {
		partial[i] = int16(i % 1000)
	}

	if err := enc.EncodeBlock(partial); err != nil {
		t.Fatalf("EncodeBlock partial: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if enc.TotalFrames() != uint64(len(partial)) {
		t.Errorf("TotalFrames = %d, want %d", enc.TotalFrames(), len(partial))
	}
	if got := enc.Format(); got.MediaType != MediaTypeFLAC || got.Extension != "flac" {
		t.Errorf("Format = %+v", got)
	}
}
