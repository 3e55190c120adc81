package volume

import (
	"math"
	"math/rand/v2"
	"testing"
)

const testRate = 16000

func noise(n int, amp float64) []int16 {
	r := rand.New(rand.NewPCG(1, 2))
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * (2*r.Float64() - 1))
	}
	return out
}

func tone(n int, freq, amp float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amp * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return out
}

func TestSilenceIsZero(t *testing.T) {
	a := New(DefaultFFTSize)
	a.Write(make([]int16, 1024))
	if v := a.Volume(); v != 0 {
		t.Errorf("Volume = %v, want 0", v)
	}
}

func TestNoiseIsLoud(t *testing.T) {
	a := New(DefaultFFTSize)
	a.Smoothing = 0
	a.Write(noise(1024, 16000))
	if v := a.Volume(); v < 100 || v > 255 {
		t.Errorf("Volume = %v, want within [100,255]", v)
	}
}

func TestToneLandsInItsBin(t *testing.T) {
	a := New(DefaultFFTSize)
	a.Smoothing = 0
	a.Write(tone(DefaultFFTSize, 1000, 1000))
	bins := a.ByteFrequencyData(nil)
	if len(bins) != a.FrequencyBinCount() || len(bins) != 128 {
		t.Fatalf("len(bins) = %d, want 128", len(bins))
	}
	peak := 0
	for i, b := range bins {
		if b > bins[peak] {
			peak = i
		}
	}
	// 1000 Hz / (16000 Hz / 256) = bin 16
	if peak != 16 {
		t.Errorf("peak bin = %d, want 16", peak)
	}
}

func TestSmoothingDecaysGradually(t *testing.T) {
	a := New(DefaultFFTSize)
	a.Write(noise(1024, 16000))
	for i := 0; i < 20; i++ {
		a.Volume()
	}
	a.Write(make([]int16, DefaultFFTSize))

	first := a.Volume()
	if first <= 30 {
		t.Fatalf("first silent snapshot = %v, expected smoothing to hold it above 30", first)
	}
	for i := 1; i < 60; i++ {
		if a.Volume() == 0 {
			return
		}
	}
	t.Errorf("volume never decayed to 0")
}

func TestOddSizesAreNormalized(t *testing.T) {
	if got := New(7).FFTSize(); got != 32 {
		t.Errorf("New(7).FFTSize() = %d, want 32", got)
	}
	if got := New(101).FFTSize(); got != 102 {
		t.Errorf("New(101).FFTSize() = %d, want 102", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v", got)
	}
	if got := Mean([]uint8{0, 255, 30, 35}); got != 80 {
		t.Errorf("Mean = %v, want 80", got)
	}
}
