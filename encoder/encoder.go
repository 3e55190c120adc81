package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

const (
	MediaTypeFLAC = "audio/flac"
	MediaTypeWAV  = "audio/wav"
)

var ErrUnsupported = errors.New("unsupported media type")

// Format is a negotiated container: file extension plus media type.
type Format struct {
	Extension string
	MediaType string
}

// Encoder turns 16-bit mono blocks into a streamed container. TakeChunk
// hands out whatever was produced since the previous call; bytes already
// taken are never rewritten, so the stream's own duration metadata is
// unreliable until FixDuration runs over the concatenated chunks.
type Encoder interface {
	EncodeBlock(block []int16) error
	TakeChunk() []byte
	Close() error
	Format() Format
	TotalFrames() uint64
	EncodeTime() time.Duration
}

type factory func() (Encoder, error)

var registry = map[string]struct {
	format Format
	create factory
}{
	MediaTypeFLAC: {Format{Extension: "flac", MediaType: MediaTypeFLAC}, func() (Encoder, error) { return NewFlac() }},
	MediaTypeWAV:  {Format{Extension: "wav", MediaType: MediaTypeWAV}, func() (Encoder, error) { return NewWav() }},
}

// DefaultPreference lists container types in the order they are tried.
var DefaultPreference = []string{MediaTypeFLAC, MediaTypeWAV}

// Supported reports whether an encoder is available for mediaType.
func Supported(mediaType string) bool {
	_, ok := registry[mediaType]
	return ok
}

// Negotiate returns the first preference accepted by supported. When
// nothing matches it falls back to FLAC; an unsupported preference is never
// an error.
func Negotiate(preferred []string, supported func(string) bool) Format {
	for _, mt := range preferred {
		if !supported(mt) {
			continue
		}
		if r, ok := registry[mt]; ok {
			return r.format
		}
	}
	return registry[MediaTypeFLAC].format
}

// RecordType is the container a new session would record into.
func RecordType() Format {
	return Negotiate(DefaultPreference, Supported)
}

func New(f Format) (Encoder, error) {
	r, ok := registry[f.MediaType]
	if !ok {
		return nil, fmt.Errorf("%q: %w", f.MediaType, ErrUnsupported)
	}
	return r.create()
}

// AppendSamples decodes little-endian 16-bit PCM and appends it to dst.
// A trailing odd byte is ignored.
func AppendSamples(dst []int16, pcm []byte) []int16 {
	for i := 0; i+1 < len(pcm); i += 2 {
		dst = append(dst, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	return dst
}

// Duration converts a sample count at SampleRate to wall time.
func Duration(frames uint64) time.Duration {
	return time.Duration(float64(frames) / float64(SampleRate) * float64(time.Second))
}
