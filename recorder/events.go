package recorder

import "time"

// Blob is one finalized segment.
type Blob struct {
	Data      []byte
	MediaType string
	Extension string

	// Duration is the wall time from segment start to the end request, as
	// written into the container. FLAC only has its sample count rewritten.
	// A WAV payload is cut or padded with silence to exactly Duration, so
	// its audio can differ from what the encoder produced.
	Duration time.Duration
}

// Events receives controller notifications. Methods may be called from any
// goroutine but never concurrently for the same segment's OnFinish/OnError.
type Events interface {
	OnStart()
	OnTimeUpdate(seconds int)
	OnFinish(blob Blob)
	OnError(err error)
}

// NopEvents ignores everything. Embed it to implement a subset.
type NopEvents struct{}

func (NopEvents) OnStart()         {}
func (NopEvents) OnTimeUpdate(int) {}
func (NopEvents) OnFinish(Blob)    {}
func (NopEvents) OnError(error)    {}

// EventFuncs adapts optional functions to Events.
type EventFuncs struct {
	Start      func()
	TimeUpdate func(seconds int)
	Finish     func(Blob)
	Error      func(error)
}

func (f EventFuncs) OnStart() {
	if f.Start != nil {
		f.Start()
	}
}

func (f EventFuncs) OnTimeUpdate(seconds int) {
	if f.TimeUpdate != nil {
		f.TimeUpdate(seconds)
	}
}

func (f EventFuncs) OnFinish(blob Blob) {
	if f.Finish != nil {
		f.Finish(blob)
	}
}

func (f EventFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}
