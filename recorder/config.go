package recorder

import (
	"time"

	"autorec/audio"
	"autorec/encoder"
	"autorec/volume"
)

const (
	DefaultVolumeThreshold  = 30
	DefaultSilenceThreshold = 2000 * time.Millisecond
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultTimeslice        = time.Second
	DefaultTickInterval     = time.Second
)

// Config tunes a Recorder. Zero values select the defaults above.
type Config struct {
	// AutoStop pauses the segment after SilenceThreshold of continuous
	// silence.
	AutoStop bool

	// VolumeThreshold is compared against the mean byte frequency level
	// (0..255); at or below counts as silent. It is not clamped: a negative
	// value never detects silence and 255 or more always does. Zero selects
	// DefaultVolumeThreshold.
	VolumeThreshold float64

	// SilenceThreshold is how long the level must stay at or below
	// VolumeThreshold before auto-stop fires.
	SilenceThreshold time.Duration

	FrameInterval time.Duration // analysis cadence
	Timeslice     time.Duration // encoder chunk cadence
	TickInterval  time.Duration // elapsed-time cadence
	FFTSize       int

	// Formats lists media types in preference order.
	Formats []string

	// Supported answers the host capability query used during negotiation.
	// Nil means encoder.Supported.
	Supported func(mediaType string) bool

	// Device selects the microphone; nil is the system default.
	Device *audio.DeviceInfo
}

func (c Config) withDefaults() Config {
	if c.VolumeThreshold == 0 {
		c.VolumeThreshold = DefaultVolumeThreshold
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.Timeslice <= 0 {
		c.Timeslice = DefaultTimeslice
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.FFTSize <= 0 {
		c.FFTSize = volume.DefaultFFTSize
	}
	if len(c.Formats) == 0 {
		c.Formats = encoder.DefaultPreference
	}
	if c.Supported == nil {
		c.Supported = encoder.Supported
	}
	return c
}
