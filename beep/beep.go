// Package beep plays short cues when a recording segment starts, ends or
// fails.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60
	startDur    = 0.05

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40
	endDur    = 0.08

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
	errorDur    = 0.08
	errorGap    = 0.05
)

// Mono S16 cues, rendered once on first use.
var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
)

func renderCues() {
	startSamples = tone(startFreq, startDur, startVolume, startDecay)
	endSamples = tone(endFreq, endDur, endVolume, endDecay)
	errorSamples = doubleTone(errorFreq, errorDur, errorGap, errorVolume, errorDecay)
}

// tone renders an exponentially decaying sine.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tone(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	result := make([]int16, 0, len(b)*2+len(gap))
	result = append(result, b...)
	result = append(result, gap...)
	result = append(result, b...)
	return result
}

// pcmBytes encodes samples as little-endian S16.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}
