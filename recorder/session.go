package recorder

import (
	"bytes"
	"fmt"
	"time"

	"autorec/audio"
	"autorec/encoder"
	"autorec/log"
	"autorec/metrics"
	"autorec/silence"
	"autorec/volume"

	"github.com/google/uuid"
)

const pcmQueueSize = 256

// newEncoder builds the segment encoder; replaced in tests.
var newEncoder = encoder.New

// session owns one live capture device. It outlives segments: pause ends
// the segment and keeps the device, stop releases it.
type session struct {
	id       string
	capture  audio.CaptureDevice
	format   encoder.Format
	segments int
}

func openSession(actx audio.Context, cfg Config) (*session, error) {
	capture, err := actx.NewCapture(cfg.Device, audio.RawMono16(encoder.SampleRate))
	if err != nil {
		return nil, err
	}
	if err := capture.Start(); err != nil {
		capture.Close()
		return nil, err
	}
	s := &session{
		id:      uuid.NewString(),
		capture: capture,
		format:  encoder.Negotiate(cfg.Formats, cfg.Supported),
	}
	log.SessionStart(s.id, capture.DeviceName(), s.format.MediaType)
	metrics.SessionsOpened.Inc()
	metrics.ActiveSessions.Inc()
	return s, nil
}

func (s *session) release() {
	s.capture.ClearCallback()
	s.capture.Stop()
	s.capture.Close()
	log.DeviceReleased(s.id, s.capture.DeviceName())
	log.SessionEnd(s.segments)
	metrics.ActiveSessions.Dec()
}

// segment is one start-to-pause/stop span. Its run loop is the only
// goroutine that touches the encoder, analyzer and detector.
type segment struct {
	sess  *session
	n     int
	start time.Time

	enc      encoder.Encoder
	analyzer *volume.Analyzer
	detector *silence.Detector // nil unless auto-stop is on

	pcm    chan []byte
	closed chan struct{} // closed once pcm is no longer read
	end    chan struct{} // one end request per segment
	done   chan struct{} // closed after OnFinish/OnError

	endAt       time.Time // set with the state flip under Recorder.mu
	autoStopped bool

	samples []int16
	chunks  [][]byte
	err     error
}

func (s *session) newSegment(cfg Config) (*segment, error) {
	enc, err := newEncoder(s.format)
	if err != nil {
		return nil, err
	}
	s.segments++
	seg := &segment{
		sess:     s,
		n:        s.segments,
		enc:      enc,
		analyzer: volume.New(cfg.FFTSize),
		pcm:      make(chan []byte, pcmQueueSize),
		closed:   make(chan struct{}),
		end:      make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if cfg.AutoStop {
		seg.detector = silence.New(cfg.VolumeThreshold, cfg.SilenceThreshold)
	}
	return seg, nil
}

// attach starts routing device PCM into the segment.
func (seg *segment) attach() {
	seg.start = time.Now()
	seg.sess.capture.SetCallback(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		select {
		case seg.pcm <- pcm:
		case <-seg.closed:
		}
	})
	log.SegmentStart(seg.sess.id, seg.n)
}

func (seg *segment) consume(pcm []byte) {
	n := len(seg.samples)
	seg.samples = encoder.AppendSamples(seg.samples, pcm)
	seg.analyzer.Write(seg.samples[n:])
	for len(seg.samples) >= encoder.BlockSize {
		seg.encode(seg.samples[:encoder.BlockSize])
		seg.samples = seg.samples[encoder.BlockSize:]
	}
}

func (seg *segment) encode(block []int16) {
	if seg.err != nil {
		return
	}
	if err := seg.enc.EncodeBlock(block); err != nil {
		seg.err = fmt.Errorf("encoding block: %w", err)
	}
}

func (seg *segment) takeChunk() {
	if chunk := seg.enc.TakeChunk(); len(chunk) > 0 {
		seg.chunks = append(seg.chunks, chunk)
	}
}

// finalize detaches the device, flushes everything still queued and
// returns the duration-corrected blob.
func (seg *segment) finalize() (Blob, error) {
	seg.sess.capture.ClearCallback()
drain:
	for {
		select {
		case pcm := <-seg.pcm:
			seg.consume(pcm)
		default:
			break drain
		}
	}
	close(seg.closed)

	if len(seg.samples) > 0 {
		seg.encode(seg.samples)
		seg.samples = nil
	}
	if err := seg.enc.Close(); err != nil && seg.err == nil {
		seg.err = fmt.Errorf("closing encoder: %w", err)
	}
	seg.takeChunk()
	if seg.err != nil {
		return Blob{}, seg.err
	}

	d := seg.endAt.Sub(seg.start)
	f := seg.enc.Format()
	data, err := encoder.FixDuration(bytes.Join(seg.chunks, nil), f.MediaType, d)
	if err != nil {
		return Blob{}, fmt.Errorf("fixing duration: %w", err)
	}
	return Blob{
		Data:      data,
		MediaType: f.MediaType,
		Extension: f.Extension,
		Duration:  d,
	}, nil
}

func (seg *segment) summary(blob Blob, finalize time.Duration) log.SegmentMetrics {
	frames := seg.enc.TotalFrames()
	return log.SegmentMetrics{
		SessionID:    seg.sess.id,
		Segment:      seg.n,
		MediaType:    blob.MediaType,
		DurationS:    blob.Duration.Seconds(),
		EncodedS:     encoder.Duration(frames).Seconds(),
		Chunks:       len(seg.chunks),
		SizeKB:       float64(len(blob.Data)) / 1024,
		RawSizeKB:    float64(frames*2) / 1024,
		EncodeTimeMs: float64(seg.enc.EncodeTime().Milliseconds()),
		FinalizeMs:   float64(finalize.Milliseconds()),
		AutoStopped:  seg.autoStopped,
	}
}
