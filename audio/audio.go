package audio

import (
	"errors"
	"strings"
)

var (
	ErrNoDevice         = errors.New("no capture device")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives interleaved S16LE PCM.
type DataCallback func(data []byte, frameCount uint32)

// CaptureConfig is the constraint set passed to the host when acquiring a
// microphone. NoiseSuppression and EchoCancellation request processing the
// backend may apply; both false means the raw signal.
type CaptureConfig struct {
	SampleRate       uint32
	Channels         uint32
	BitsPerSample    uint32
	NoiseSuppression bool
	EchoCancellation bool
}

// RawMono16 is the capture constraint set used for recording: mono, 16-bit,
// no host-side processing.
func RawMono16(sampleRate uint32) CaptureConfig {
	return CaptureConfig{
		SampleRate:    sampleRate,
		Channels:      1,
		BitsPerSample: 16,
	}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
