package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("AUTOREC_LOG_PATH", "/tmp/autorec-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/autorec-env-log" {
		t.Errorf("got %q, want /tmp/autorec-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv("AUTOREC_LOG_PATH", "/tmp/autorec-env-log")
	got, err := ResolveDir("/tmp/flag-log")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/flag-log" {
		t.Errorf("got %q, want /tmp/flag-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("AUTOREC_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("expected non-empty default directory")
	}
	if !strings.Contains(got, "autorec") {
		t.Errorf("default dir %q does not mention autorec", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "recordings_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestRecordingLedger(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Recording("/tmp/rec/a.flac", 1500*time.Millisecond)

	data, err := os.ReadFile(filepath.Join(tmp, "recordings_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "/tmp/rec/a.flac") || !strings.Contains(line, "1.50s") {
		t.Errorf("recordings_log.txt missing entry, got: %q", line)
	}
	// format: "2006-01-02 15:04:05\t[pid]\t1.50s\tpath\n"
	if strings.Count(line, "\t") != 3 {
		t.Errorf("expected tab-separated format, got: %q", line)
	}
}

func TestSegmentEvents(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	SessionStart("abc", "fake", "audio/flac")
	SegmentStart("abc", 1)
	SegmentFinish(SegmentMetrics{SessionID: "abc", Segment: 1, MediaType: "audio/flac", DurationS: 2.5, Chunks: 3})
	SilenceAutoStop("abc", 2*time.Second)
	DeviceReleased("abc", "fake")
	SessionEnd(1)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		"session_start", "segment_start", "segment_finish",
		"silence_auto_stop", "device_released", "session_end",
		"session=abc", "chunks=3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics log missing %q:\n%s", want, out)
		}
	}
}

func TestNoopBeforeInit(t *testing.T) {
	setupLogDir(t)
	// None of these may panic or create files before Init.
	Info("x")
	Errorf("x %d", 1)
	SegmentStart("abc", 1)
	Recording("x", time.Second)
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
