package recorder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"autorec/audio"
	"autorec/encoder"
	"autorec/log"
	"autorec/metrics"
	"autorec/silence"
)

// Recorder drives capture sessions: Start acquires the microphone (once per
// session) and opens a segment, Pause finalizes the segment and keeps the
// device, Stop finalizes and releases it. Every segment ends in exactly one
// OnFinish or OnError.
type Recorder struct {
	actx   audio.Context
	cfg    Config
	events Events
	clock  *clock
	level  atomic.Uint64 // math.Float64bits of the last volume

	mu        sync.Mutex
	state     RecordingState
	sess      *session
	seg       *segment
	release   bool          // Stop arrived; drop the device after finalize
	finalized chan struct{} // closed when the last segment (or release) completes
}

func New(actx audio.Context, cfg Config, events Events) *Recorder {
	if events == nil {
		events = NopEvents{}
	}
	r := &Recorder{
		actx:      actx,
		cfg:       cfg.withDefaults(),
		events:    events,
		finalized: closedChan(),
	}
	r.clock = newClock(r.cfg.TickInterval, events.OnTimeUpdate)
	return r
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Start begins a segment. It waits for any in-flight finalize, acquires the
// microphone if no session is held, and returns once PCM is flowing. A
// failed acquisition is reported once through OnError and returned wrapped
// in ErrAcquire; the recorder stays Idle. Calling Start while acquiring or
// recording does nothing.
func (r *Recorder) Start(ctx context.Context) error {
	for {
		r.mu.Lock()
		if r.state == Acquiring || r.state == Recording {
			r.mu.Unlock()
			return nil
		}
		pending := r.finalized
		if r.state == Idle && isClosed(pending) {
			break
		}
		r.mu.Unlock()

		select {
		case <-pending:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// r.mu is held from here.
	sess := r.sess
	if sess == nil {
		r.state = Acquiring
		r.mu.Unlock()

		var err error
		sess, err = openSession(r.actx, r.cfg)

		r.mu.Lock()
		if err != nil {
			r.state = Idle
			r.mu.Unlock()
			err = fmt.Errorf("%w: %w", ErrAcquire, err)
			log.Errorf("acquire: %v", err)
			metrics.AcquireFailures.Inc()
			r.events.OnError(err)
			return err
		}
		r.sess = sess
		r.release = false
	}

	seg, err := sess.newSegment(r.cfg)
	if err != nil {
		r.state = Idle
		r.mu.Unlock()
		err = fmt.Errorf("%w: %w", ErrEncode, err)
		log.Errorf("segment: %v", err)
		r.events.OnError(err)
		return err
	}
	seg.attach()
	r.seg = seg
	r.state = Recording
	r.finalized = seg.done
	r.clock.start()
	r.mu.Unlock()

	// An end request may already be queued; the run loop starts after
	// OnStart so OnFinish always follows it.
	r.events.OnStart()
	go r.run(seg)
	return nil
}

// Pause ends the current segment and keeps the device open. The returned
// channel closes once the segment's OnFinish or OnError has run.
func (r *Recorder) Pause() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endLocked(r.seg) {
		r.clock.stop()
	}
	return r.finalized
}

// Stop ends the current segment, if any, and releases the device. With no
// session held it is a no-op and returns a closed channel.
func (r *Recorder) Stop() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess == nil {
		return closedChan()
	}
	r.clock.reset()

	switch r.state {
	case Recording, Finalizing:
		r.endLocked(r.seg)
		r.release = true
	default:
		// Paused: nothing to finalize, just drop the device.
		sess := r.sess
		r.sess = nil
		done := make(chan struct{})
		r.finalized = done
		go func() {
			defer close(done)
			sess.release()
		}()
	}
	return r.finalized
}

// endLocked flips seg from recording to finalizing. Only the first caller
// for a segment wins; pause, stop and silence all race through here.
func (r *Recorder) endLocked(seg *segment) bool {
	if seg == nil || r.seg != seg || r.state != Recording {
		return false
	}
	r.state = Finalizing
	seg.endAt = time.Now()
	seg.end <- struct{}{}
	return true
}

func (r *Recorder) silenceStop(seg *segment, silentFor time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.endLocked(seg) {
		return
	}
	seg.autoStopped = true
	r.clock.stop()
	log.SilenceAutoStop(seg.sess.id, silentFor)
}

func (r *Recorder) run(seg *segment) {
	slice := time.NewTicker(r.cfg.Timeslice)
	frames := time.NewTicker(r.cfg.FrameInterval)
	var (
		silenceTimer *time.Timer
		silenceC     <-chan time.Time
	)
	disarm := func() {
		if silenceTimer != nil {
			silenceTimer.Stop()
			silenceTimer, silenceC = nil, nil
		}
	}

loop:
	for {
		select {
		case pcm := <-seg.pcm:
			seg.consume(pcm)

		case <-slice.C:
			seg.takeChunk()

		case now := <-frames.C:
			v := seg.analyzer.Volume()
			r.level.Store(math.Float64bits(v))
			metrics.Volume.Set(v)
			if seg.detector == nil {
				continue
			}
			switch seg.detector.Observe(v, now) {
			case silence.EventWindowOpened:
				deadline, _ := seg.detector.Deadline()
				silenceTimer = time.NewTimer(time.Until(deadline))
				silenceC = silenceTimer.C
			case silence.EventWindowCleared:
				disarm()
			case silence.EventSilence:
				disarm()
				r.silenceStop(seg, r.cfg.SilenceThreshold)
			}

		case now := <-silenceC:
			silenceTimer, silenceC = nil, nil
			if seg.detector.Expire(now) == silence.EventSilence {
				r.silenceStop(seg, r.cfg.SilenceThreshold)
			}

		case <-seg.end:
			break loop
		}
	}

	// Analysis halts before the encoder is closed.
	frames.Stop()
	disarm()
	if seg.detector != nil {
		seg.detector.Halt()
	}
	slice.Stop()
	r.level.Store(0)
	metrics.Volume.Set(0)

	// No tick is delivered once the segment's outcome is reported.
	r.clock.quiesce()

	began := time.Now()
	blob, err := seg.finalize()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEncode, err)
		log.Errorf("segment %d: %v", seg.n, err)
		metrics.SegmentErrors.Inc()
		r.events.OnError(err)
	} else {
		finalizeTime := time.Since(began)
		log.SegmentFinish(seg.summary(blob, finalizeTime))
		metrics.ObserveSegment(blob.MediaType, seg.autoStopped, blob.Duration, len(blob.Data), finalizeTime)
		r.events.OnFinish(blob)
	}

	r.mu.Lock()
	r.state = Idle
	r.seg = nil
	var drop *session
	if r.release {
		drop, r.sess = r.sess, nil
		r.release = false
	}
	r.mu.Unlock()

	if drop != nil {
		drop.release()
	}
	close(seg.done)
}

// Time is the elapsed whole seconds of the current or last paused segment.
func (r *Recorder) Time() int {
	return r.clock.seconds()
}

func (r *Recorder) IsRecording() bool {
	return r.State() == Recording
}

func (r *Recorder) State() RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RecordType is the container the current session records into, or the
// one a new session would negotiate.
func (r *Recorder) RecordType() encoder.Format {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sess != nil {
		return r.sess.format
	}
	return encoder.Negotiate(r.cfg.Formats, r.cfg.Supported)
}

// Level is the most recent volume measurement (0..255), 0 when idle.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// Config returns the effective configuration with defaults applied.
func (r *Recorder) Config() Config {
	return r.cfg
}
