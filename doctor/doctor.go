package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"autorec/audio"
	"autorec/encoder"
	"autorec/recorder"
	"autorec/shutdown"
)

const (
	levelWindow = 3 * time.Second
	meterWidth  = 40
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg recorder.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("autorec doctor - interactive microphone diagnostics")
	fmt.Println("===================================================")

	reader := bufio.NewReader(os.Stdin)

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	allPass := true

	device, ok := checkDevices(actx, reader)
	if !ok {
		allPass = false
	}
	cfg.Device = device

	var blob recorder.Blob
	if allPass {
		blob, ok = checkLevel(actx, cfg, reader)
		allPass = ok
	}
	if allPass && !checkContainer(blob) {
		allPass = false
	}
	if allPass && !checkAutoStop(actx, cfg, reader) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func checkDevices(actx audio.Context, reader *bufio.Reader) (*audio.DeviceInfo, bool) {
	fmt.Println()
	fmt.Println("[1/4] Capture devices")

	devices, err := actx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return nil, false
	}

	device, err := pickDevice(devices, reader, os.Stdout)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  Warning: bluetooth microphones often capture at low quality")
	}
	fmt.Printf("  PASS: using %s\n", device.Name)
	return device, true
}

var errInvalidChoice = errors.New("invalid choice")

// pickDevice prompts for a device when there is more than one. An empty
// answer picks the first.
func pickDevice(devices []audio.DeviceInfo, in *bufio.Reader, out io.Writer) (*audio.DeviceInfo, error) {
	if len(devices) == 1 {
		return &devices[0], nil
	}
	fmt.Fprintln(out, "Select input device:")
	for i, d := range devices {
		fmt.Fprintf(out, "  %d. %s\n", i+1, d.Name)
	}
	fmt.Fprintf(out, "Choice [1-%d]: ", len(devices))

	choice, _ := in.ReadString('\n')
	choice = strings.TrimSpace(choice)
	idx := 0
	if choice != "" {
		if _, err := fmt.Sscanf(choice, "%d", &idx); err != nil {
			return nil, fmt.Errorf("%w %q", errInvalidChoice, choice)
		}
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("%w %q", errInvalidChoice, choice)
	}
	return &devices[idx], nil
}

// collector turns recorder callbacks into channels for the checks.
type collector struct {
	recorder.NopEvents
	finished chan recorder.Blob
	failed   chan error
}

func newCollector() *collector {
	return &collector{finished: make(chan recorder.Blob, 1), failed: make(chan error, 1)}
}

func (c *collector) OnFinish(b recorder.Blob) { c.finished <- b }
func (c *collector) OnError(err error)        { c.failed <- err }

func checkLevel(actx audio.Context, cfg recorder.Config, reader *bufio.Reader) (recorder.Blob, bool) {
	fmt.Println()
	fmt.Println("[2/4] Microphone level")
	fmt.Printf("Press Enter and speak for %d seconds...", int(levelWindow.Seconds()))
	reader.ReadString('\n')

	cfg.AutoStop = false
	events := newCollector()
	rec := recorder.New(actx, cfg, events)
	if err := rec.Start(context.Background()); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return recorder.Blob{}, false
	}

	var peak float64
	deadline := time.After(levelWindow)
	ticker := time.NewTicker(100 * time.Millisecond)
sample:
	for {
		select {
		case <-ticker.C:
			lvl := rec.Level()
			peak = max(peak, lvl)
			fmt.Printf("\r  %s %5.1f", meter(lvl, meterWidth), lvl)
		case <-deadline:
			break sample
		}
	}
	ticker.Stop()
	<-rec.Stop()
	fmt.Println()

	var blob recorder.Blob
	select {
	case blob = <-events.finished:
	case err := <-events.failed:
		fmt.Printf("  FAIL: %v\n", err)
		return recorder.Blob{}, false
	}

	threshold := rec.Config().VolumeThreshold
	if peak <= threshold {
		fmt.Printf("  FAIL: peak level %.1f never rose above the silence threshold %.1f\n", peak, threshold)
		fmt.Println("  Check the input gain or pick another device.")
		return blob, false
	}
	fmt.Printf("  PASS: peak level %.1f (threshold %.1f)\n", peak, threshold)
	return blob, true
}

func checkContainer(blob recorder.Blob) bool {
	fmt.Println()
	fmt.Println("[3/4] Encoding and duration")

	got, err := encoder.ReadDuration(blob.Data, blob.MediaType)
	if err != nil {
		fmt.Printf("  FAIL: %s blob unreadable: %v\n", blob.MediaType, err)
		return false
	}
	fmt.Printf("  %s, %.1f KB, container says %.2fs, wall clock %.2fs\n",
		blob.MediaType, float64(len(blob.Data))/1024, got.Seconds(), blob.Duration.Seconds())
	if diff := (got - blob.Duration).Abs(); diff > 50*time.Millisecond {
		fmt.Printf("  FAIL: duration off by %v\n", diff)
		return false
	}
	fmt.Println("  PASS: duration corrected")
	return true
}

func checkAutoStop(actx audio.Context, cfg recorder.Config, reader *bufio.Reader) bool {
	fmt.Println()
	fmt.Println("[4/4] Silence auto-stop")

	cfg.AutoStop = true
	events := newCollector()
	rec := recorder.New(actx, cfg, events)
	defer func() { <-rec.Stop() }()

	window := rec.Config().SilenceThreshold
	fmt.Printf("Press Enter and stay quiet for %.1f seconds...", window.Seconds())
	reader.ReadString('\n')

	if err := rec.Start(context.Background()); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}

	select {
	case blob := <-events.finished:
		fmt.Printf("  PASS: stopped after %.2fs\n", blob.Duration.Seconds())
		return true
	case err := <-events.failed:
		fmt.Printf("  FAIL: %v\n", err)
		return false
	case <-time.After(window + 5*time.Second):
		fmt.Printf("  FAIL: still recording (level %.1f)\n", rec.Level())
		fmt.Println("  Background noise may be above the threshold; try -volume with a higher value.")
		return false
	}
}

// meter renders level (0..255) as a fixed-width bar.
func meter(level float64, width int) string {
	n := int(level / 255 * float64(width))
	n = min(max(n, 0), width)
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", width-n) + "]"
}
