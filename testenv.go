package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"autorec/audio"
	"autorec/beep"
	"autorec/recorder"
)

// scriptEvents wraps app so the script can block until a segment ends.
type scriptEvents struct {
	*app
	ended chan struct{}
}

func (e scriptEvents) OnFinish(blob recorder.Blob) {
	e.app.OnFinish(blob)
	e.signal()
}

func (e scriptEvents) OnError(err error) {
	e.app.OnError(err)
	e.signal()
}

func (e scriptEvents) signal() {
	select {
	case e.ended <- struct{}{}:
	default:
	}
}

// runTestMode replays wavPath as the microphone and executes one command
// per input line:
//
//	START | PAUSE | STOP       drive the recorder
//	WAIT                      wait for the last PAUSE/STOP to finalize
//	WAIT_SEGMENT              wait for a segment end not yet waited for (auto-stop)
//	WAIT_AUDIO_DONE           wait until the WAV has been fully replayed
//	SLEEP <ms>
//	STATE                     print "state <name> <MM:SS>"
//	QUIT
//
// Output lines are written to out. The return value is the exit code.
func runTestMode(wavPath string, s settings, in io.Reader, out io.Writer) int {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	var outMu sync.Mutex
	printf := func(format string, args ...any) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, format+"\n", args...)
	}

	events := scriptEvents{
		app:   &app{saveDir: s.SaveDir, now: time.Now, print: printf},
		ended: make(chan struct{}, 64),
	}
	rec := recorder.New(fakeCtx, s.recorderConfig(), events)
	var last <-chan struct{}
	ctx := context.Background()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "START":
			rec.Start(ctx)
		case "PAUSE":
			last = rec.Pause()
		case "STOP":
			last = rec.Stop()
		case "WAIT":
			if last != nil {
				<-last
			}
		case "WAIT_SEGMENT":
			<-events.ended
			<-rec.Pause() // no-op once idle; waits out the finalize otherwise
		case "WAIT_AUDIO_DONE":
			if caps := fakeCtx.Captures(); len(caps) > 0 {
				<-caps[len(caps)-1].AudioDone()
			}
		case "STATE":
			printf("state %s %s", rec.State(), recorder.FormatTime(rec.Time()))
		case "QUIT":
			<-rec.Stop()
			return 0
		case "":
		default:
			if ms, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
				continue
			}
			printf("unknown command %q", cmd)
		}
	}
	<-rec.Stop()
	return 0
}
