package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autorec/beep"
	"autorec/log"
	"autorec/recorder"
)

// app turns recorder events into cues, TUI messages and saved files.
type app struct {
	saveDir string
	now     func() time.Time
	print   func(format string, args ...any) // non-TUI output; nil when silent
}

func (a *app) OnStart() {
	go beep.PlayStart()
	tuiSend(RecordingStartMsg{})
	a.printf("recording")
}

func (a *app) OnTimeUpdate(seconds int) {
	tuiSend(RecordingTickMsg{Seconds: seconds})
}

func (a *app) OnFinish(blob recorder.Blob) {
	go beep.PlayEnd()
	msg := SegmentMsg{Blob: blob}
	if a.saveDir != "" {
		path, err := saveBlob(a.saveDir, blob, a.now())
		if err != nil {
			log.Errorf("save: %v", err)
			msg.Err = err
		} else {
			log.Recording(path, blob.Duration)
			msg.Path = path
		}
	}
	tuiSend(msg)
	a.printf("finished %s %.2fs %d bytes %s", blob.MediaType, blob.Duration.Seconds(), len(blob.Data), msg.Path)
}

func (a *app) OnError(err error) {
	go beep.PlayError()
	tuiSend(ErrorMsg{Err: err})
	a.printf("error: %v", err)
}

func (a *app) printf(format string, args ...any) {
	if a.print != nil {
		a.print(format, args...)
	}
}

// saveBlob writes blob into dir as autorec-<timestamp>.<ext>, adding a
// numeric suffix instead of overwriting.
func saveBlob(dir string, blob recorder.Blob, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	base := "autorec-" + at.Format("20060102-150405")
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		path := filepath.Join(dir, name+"."+blob.Extension)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(blob.Data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}
