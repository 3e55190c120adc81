package encoder

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// WavEncoder streams RIFF/WAVE PCM. The RIFF and data sizes are
// placeholders until Close, and Close can only fix them if the header has
// not been taken yet.
type WavEncoder struct {
	sink        chunkSink
	enc         *wav.Encoder
	buf         *audio.IntBuffer
	totalFrames uint64
	encodeTime  time.Duration
	mu          sync.Mutex
}

func NewWav() (*WavEncoder, error) {
	e := &WavEncoder{
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: Channels, SampleRate: SampleRate},
			SourceBitDepth: BitsPerSample,
		},
	}
	e.enc = wav.NewEncoder(&e.sink, SampleRate, BitsPerSample, Channels, wavFormatPCM)
	return e, nil
}

func (e *WavEncoder) EncodeBlock(block []int16) error {
	if len(block) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	data := e.buf.Data[:0]
	for _, s := range block {
		data = append(data, int(s))
	}
	e.buf.Data = data
	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.totalFrames += uint64(len(block))
	e.encodeTime += time.Since(start)
	return nil
}

func (e *WavEncoder) TakeChunk() []byte {
	return e.sink.Take()
}

func (e *WavEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.totalFrames == 0 {
		// go-audio only emits the header alongside the first samples.
		e.buf.Data = e.buf.Data[:0]
		if err := e.enc.Write(e.buf); err != nil {
			return fmt.Errorf("writing wav header: %w", err)
		}
	}
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}
	return nil
}

func (e *WavEncoder) Format() Format {
	return registry[MediaTypeWAV].format
}

func (e *WavEncoder) TotalFrames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFrames
}

func (e *WavEncoder) EncodeTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encodeTime
}
