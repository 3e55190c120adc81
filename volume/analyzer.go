// Package volume reduces a live PCM stream to a scalar loudness in [0,255]
// by averaging the byte-scaled bins of a short-time frequency snapshot.
package volume

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	DefaultFFTSize     = 256
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	DefaultSmoothing   = 0.8
)

// Analyzer keeps the most recent FFTSize samples of a stream and produces
// byte frequency snapshots from them. It is not safe for concurrent use.
type Analyzer struct {
	MinDecibels float64
	MaxDecibels float64
	// Smoothing blends each snapshot with the previous one, 0 disables it.
	Smoothing float64

	size     int
	fft      *fourier.FFT
	window   []float64
	ring     []float64
	pos      int
	frame    []float64
	coeffs   []complex128
	smoothed []float64
	bins     []uint8
}

// New returns an analyzer for fftSize-sample snapshots. fftSize below 32 or
// odd is rounded up to the next even value of at least 32.
func New(fftSize int) *Analyzer {
	if fftSize < 32 {
		fftSize = 32
	}
	if fftSize%2 != 0 {
		fftSize++
	}
	a := &Analyzer{
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
		Smoothing:   DefaultSmoothing,
		size:        fftSize,
		fft:         fourier.NewFFT(fftSize),
		window:      blackman(fftSize),
		ring:        make([]float64, fftSize),
		frame:       make([]float64, fftSize),
		smoothed:    make([]float64, fftSize/2),
		bins:        make([]uint8, fftSize/2),
	}
	return a
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}

func (a *Analyzer) FFTSize() int { return a.size }

func (a *Analyzer) FrequencyBinCount() int { return a.size / 2 }

// Write appends 16-bit samples to the rolling window.
func (a *Analyzer) Write(samples []int16) {
	for _, s := range samples {
		a.ring[a.pos] = float64(s) / 32768
		a.pos = (a.pos + 1) % a.size
	}
}

// ByteFrequencyData computes a snapshot and copies it into dst, which is
// grown to FrequencyBinCount if needed.
func (a *Analyzer) ByteFrequencyData(dst []uint8) []uint8 {
	a.snapshot()
	if cap(dst) < len(a.bins) {
		dst = make([]uint8, len(a.bins))
	}
	dst = dst[:len(a.bins)]
	copy(dst, a.bins)
	return dst
}

// Volume computes a snapshot and returns the mean of its bins.
func (a *Analyzer) Volume() float64 {
	a.snapshot()
	return Mean(a.bins)
}

// Mean is the arithmetic mean of a byte frequency snapshot.
func Mean(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}

func (a *Analyzer) snapshot() {
	for i := range a.frame {
		a.frame[i] = a.ring[(a.pos+i)%a.size] * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	tau := a.Smoothing
	if tau < 0 || tau >= 1 {
		tau = 0
	}
	rangeDB := a.MaxDecibels - a.MinDecibels
	if rangeDB <= 0 {
		rangeDB = 1
	}
	scale := 1 / float64(a.size)
	for k := range a.bins {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		v := 255 * (db - a.MinDecibels) / rangeDB
		switch {
		case v <= 0 || math.IsNaN(v):
			a.bins[k] = 0
		case v >= 255:
			a.bins[k] = 255
		default:
			a.bins[k] = uint8(v)
		}
	}
}
