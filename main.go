package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"autorec/audio"
	"autorec/beep"
	"autorec/doctor"
	"autorec/log"
	"autorec/metrics"
	"autorec/recorder"
	"autorec/shutdown"
)

var version = "dev"

func main() {
	flag.Bool("autostop", false, "Pause automatically after sustained silence")
	flag.Float64("volume", recorder.DefaultVolumeThreshold, "Silence threshold on the 0-255 level scale")
	flag.Duration("silence", recorder.DefaultSilenceThreshold, "How long the level must stay below -volume before auto-stop")
	flag.String("format", "auto", "Container preference: auto, flac or wav")
	flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	flag.String("save", "", "Directory to write finished recordings into")
	flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.Bool("tui", true, "Run with terminal UI")
	configFlag := flag.String("config", "", "Config file (default: ~/.config/autorec/config.yaml)")
	doctorFlag := flag.Bool("doctor", false, "Run microphone diagnostics and exit")
	testFlag := flag.String("test", "", "Test mode: replay WAV file, headless, stdin-driven")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	profileFlag := flag.String("profile", "", "Enable pprof and metrics server (e.g., :6060 or localhost:6060)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("autorec %s\n", version)
		os.Exit(0)
	}

	cfgDir, err := defaultConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no config directory: %v\n", err)
	}
	v := newViper(cfgDir)
	if *configFlag != "" {
		v.SetConfigFile(*configFlag)
	}
	s, err := loadSettings(v, flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(s.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *profileFlag != "" {
		go func() {
			http.Handle("/metrics", metrics.Handler())
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/ (metrics at /metrics)\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *doctorFlag {
		os.Exit(doctor.Run(s.recorderConfig()))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *testFlag != "" {
		code := runTestMode(*testFlag, s, os.Stdin, os.Stdout)
		log.Close()
		os.Exit(code)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	cfg := s.recorderConfig()
	cfg.Device = resolveDevice(actx, s.Device, *setupFlag)

	go beep.Init()

	a := &app{saveDir: s.SaveDir, now: time.Now}
	if !s.TUI {
		a.print = func(format string, args ...any) { fmt.Printf(format+"\n", args...) }
	}
	rec := recorder.New(actx, cfg, a)

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	if s.TUI {
		runTUI(ctx, rec, cfg)
	} else {
		runPlain(ctx, rec, os.Stdin)
	}

	<-rec.Stop()
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

// resolveDevice maps -device or the interactive picker to a device. Any
// failure falls back to the system default.
func resolveDevice(actx audio.Context, name string, setup bool) *audio.DeviceInfo {
	if name != "" {
		dev, err := audio.FindDevice(actx, name)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Printf("Warning: %v, using default device\n", err)
			return nil
		}
		return dev
	}
	if !setup {
		return nil
	}
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		if !errors.Is(err, audio.ErrSelectionAborted) {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
		}
		fmt.Println("Falling back to default device")
		return nil
	}
	return dev
}

func deviceLineText(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "mic: system default"
	}
	line := "mic: " + dev.Name
	if audio.IsBluetooth(dev.Name) {
		line += " (bluetooth)"
	}
	return line
}

func runTUI(ctx context.Context, rec *recorder.Recorder, cfg recorder.Config) {
	m := newTUIModel(rec, rec.Config().VolumeThreshold, modeLineText(rec, rec.Config()), deviceLineText(cfg.Device))
	p := NewTUIProgram(m)
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
	}

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()
}

// runPlain drives the recorder from line input: Enter toggles record/pause,
// "s" stops, "q" quits.
func runPlain(ctx context.Context, rec *recorder.Recorder, in io.Reader) {
	fmt.Println(modeLineText(rec, rec.Config()))
	fmt.Println("Enter: record/pause   s: stop   q: quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "":
				if rec.IsRecording() {
					<-rec.Pause()
					fmt.Printf("paused at %s\n", recorder.FormatTime(rec.Time()))
				} else if err := rec.Start(ctx); err != nil {
					// Already reported through OnError.
					log.Warnf("start: %v", err)
				}
			case "s":
				<-rec.Stop()
				fmt.Println("stopped")
			case "q":
				return
			}
		}
	}
}
