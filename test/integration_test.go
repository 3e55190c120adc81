//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autorec/encoder"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("AUTOREC_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "AUTOREC_TEST_BIN not set; build autorec and point it at the binary")
		os.Exit(1)
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	silencePath := filepath.Join("data", "silence.wav")
	if err := generateWAV(silencePath, 1.0, false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	loudPath := filepath.Join("data", "loud.wav")
	if err := generateWAV(loudPath, 2.0, true); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate loud.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Remove(silencePath)
	os.Remove(loudPath)
	os.Exit(code)
}

// generateWAV writes 16 kHz mono S16, either silence or white noise.
func generateWAV(path string, durationS float64, loud bool) error {
	const headerSize = 44
	sampleRate := encoder.SampleRate
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	seed := uint32(1)
	for i := 0; i < numSamples && loud; i++ {
		seed = seed*1664525 + 1013904223
		s := int16(int32(seed>>16)%32000 - 16000)
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type run struct {
	logDir  string
	saveDir string
	output  string
}

func runAutorec(t *testing.T, stdin string, args ...string) run {
	t.Helper()
	r := run{logDir: t.TempDir(), saveDir: t.TempDir()}
	cmdArgs := append([]string{"-logpath", r.logDir, "-save", r.saveDir, "-tui=false"}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	// Keep the user's config file out of the run.
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+t.TempDir())

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("autorec exited with error: %v\noutput: %s", err, out)
	}
	r.output = string(out)
	return r
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func savedFiles(t *testing.T, r run, ext string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(r.saveDir, "*."+ext))
	if err != nil {
		t.Fatal(err)
	}
	return files
}

func requireDuration(t *testing.T, path, mediaType string, want, tol time.Duration) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := encoder.ReadDuration(data, mediaType)
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	if d := (got - want).Abs(); d > tol {
		t.Errorf("%s: duration %v, want %v ±%v", path, got, want, tol)
	}
}

func TestRecordFlac(t *testing.T) {
	r := runAutorec(t, cmds("START", "SLEEP 800", "STOP", "WAIT", "QUIT"), "-test", "data/loud.wav")
	files := savedFiles(t, r, "flac")
	if len(files) != 1 {
		t.Fatalf("saved %d flac files, want 1\n%s", len(files), r.output)
	}
	requireDuration(t, files[0], encoder.MediaTypeFLAC, 800*time.Millisecond, 100*time.Millisecond)
}

func TestRecordWav(t *testing.T) {
	r := runAutorec(t, cmds("START", "SLEEP 500", "STOP", "WAIT", "QUIT"), "-test", "data/loud.wav", "-format", "wav")
	files := savedFiles(t, r, "wav")
	if len(files) != 1 {
		t.Fatalf("saved %d wav files, want 1\n%s", len(files), r.output)
	}
	requireDuration(t, files[0], encoder.MediaTypeWAV, 500*time.Millisecond, 100*time.Millisecond)
}

func TestPauseResume(t *testing.T) {
	r := runAutorec(t, cmds("START", "SLEEP 400", "PAUSE", "WAIT", "START", "SLEEP 400", "STOP", "WAIT", "QUIT"),
		"-test", "data/loud.wav")
	if n := len(savedFiles(t, r, "flac")); n != 2 {
		t.Fatalf("saved %d files, want 2\n%s", n, r.output)
	}
	diag := readLog(t, r.logDir, "diagnostics_log.txt")
	if strings.Count(diag, "session_start") != 1 {
		t.Errorf("pause must keep the session:\n%s", diag)
	}
	if strings.Count(diag, "segment_finish") != 2 {
		t.Errorf("expected 2 segment_finish entries:\n%s", diag)
	}
	if !strings.Contains(diag, "device_released") {
		t.Error("expected device_released after stop")
	}
}

func TestAutoStopOnSilence(t *testing.T) {
	r := runAutorec(t, cmds("START", "WAIT_SEGMENT", "STATE", "QUIT"),
		"-test", "data/silence.wav", "-autostop", "-silence", "500ms")
	if !strings.Contains(r.output, "state idle") {
		t.Errorf("expected idle after auto-stop:\n%s", r.output)
	}
	diag := readLog(t, r.logDir, "diagnostics_log.txt")
	if !strings.Contains(diag, "silence_auto_stop") {
		t.Errorf("expected silence_auto_stop in diagnostics:\n%s", diag)
	}
	files := savedFiles(t, r, "flac")
	if len(files) != 1 {
		t.Fatalf("saved %d files, want 1", len(files))
	}
	requireDuration(t, files[0], encoder.MediaTypeFLAC, 500*time.Millisecond, 150*time.Millisecond)
}

func TestLoudInputHoldsOffAutoStop(t *testing.T) {
	r := runAutorec(t, cmds("START", "SLEEP 1200", "STATE", "STOP", "WAIT", "QUIT"),
		"-test", "data/loud.wav", "-autostop", "-silence", "500ms")
	if !strings.Contains(r.output, "state recording") {
		t.Errorf("loud input should keep recording:\n%s", r.output)
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := runAutorec(t, cmds("STOP", "WAIT", "STATE", "QUIT"), "-test", "data/silence.wav")
	if !strings.Contains(r.output, "state idle 00:00") {
		t.Errorf("unexpected output:\n%s", r.output)
	}
	if n := len(savedFiles(t, r, "flac")); n != 0 {
		t.Errorf("stop without start saved %d files", n)
	}
}

func TestRecordingsLedger(t *testing.T) {
	r := runAutorec(t, cmds("START", "SLEEP 300", "STOP", "WAIT", "QUIT"), "-test", "data/loud.wav")
	ledger := readLog(t, r.logDir, "recordings_log.txt")
	if !strings.Contains(ledger, r.saveDir) {
		t.Errorf("recordings_log.txt missing saved path:\n%s", ledger)
	}
}
