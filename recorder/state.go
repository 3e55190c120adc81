package recorder

import (
	"errors"
	"fmt"
)

var (
	// ErrAcquire wraps device and permission failures from Start.
	ErrAcquire = errors.New("acquire microphone")
	// ErrEncode is reported when a segment cannot be encoded or its
	// duration cannot be corrected. No OnFinish follows for that segment.
	ErrEncode = errors.New("encode segment")
)

type RecordingState int

const (
	Idle RecordingState = iota
	Acquiring
	Recording
	Finalizing
)

func (s RecordingState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Recording:
		return "recording"
	case Finalizing:
		return "finalizing"
	}
	return "unknown"
}

// FormatTime renders elapsed seconds as MM:SS. Negative input renders as
// "--:--".
func FormatTime(seconds int) string {
	if seconds < 0 {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
