package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	ledgerFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// SegmentMetrics describes one finalized recording segment.
type SegmentMetrics struct {
	SessionID    string
	Segment      int
	MediaType    string
	DurationS    float64 // corrected wall-clock duration
	EncodedS     float64 // audio actually encoded
	Chunks       int
	SizeKB       float64
	RawSizeKB    float64
	EncodeTimeMs float64
	FinalizeMs   float64
	AutoStopped  bool
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: AUTOREC_LOG_PATH environment variable
	envPath := os.Getenv("AUTOREC_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	ledgerPath := filepath.Join(dir, "recordings_log.txt")
	ledgerFile, err = os.OpenFile(ledgerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if ledgerFile != nil {
		ledgerFile.Close()
		ledgerFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(sessionID, device, mediaType string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Str("device", device).
		Str("media_type", mediaType).
		Msg("session_start")
}

func SegmentStart(sessionID string, segment int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Int("segment", segment).
		Msg("segment_start")
}

func SegmentFinish(m SegmentMetrics) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", m.SessionID).
		Int("segment", m.Segment).
		Str("media_type", m.MediaType).
		Float64("duration_s", m.DurationS).
		Float64("encoded_s", m.EncodedS).
		Int("chunks", m.Chunks).
		Float64("size_kb", m.SizeKB).
		Float64("raw_kb", m.RawSizeKB).
		Float64("encode_ms", m.EncodeTimeMs).
		Float64("finalize_ms", m.FinalizeMs).
		Bool("auto_stop", m.AutoStopped).
		Msg("segment_finish")
}

func SilenceAutoStop(sessionID string, silentFor time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Dur("silent_for", silentFor).
		Msg("silence_auto_stop")
}

func DeviceReleased(sessionID, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", sessionID).
		Str("device", device).
		Msg("device_released")
}

// Recording appends one line per saved blob to recordings_log.txt.
func Recording(path string, d time.Duration) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%.2fs\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, d.Seconds(), path)
	ledgerFile.WriteString(line)
}

func SessionEnd(segments int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("segments", segments).
		Msg("session_end")
}
