package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

var ErrMalformed = errors.New("malformed container")

const (
	flacStreamInfoOffset = 8 // "fLaC" + metadata block header
	flacStreamInfoLen    = 34
	flacNSamplesOffset   = flacStreamInfoOffset + 13
	flacMaxNSamples      = 1<<36 - 1
)

// FixDuration rewrites the container metadata of a streamed recording so
// that it reports d. The input slice is not modified.
func FixDuration(data []byte, mediaType string, d time.Duration) ([]byte, error) {
	if d < 0 {
		d = 0
	}
	switch mediaType {
	case MediaTypeFLAC:
		return fixFlacDuration(data, d)
	case MediaTypeWAV:
		return fixWavDuration(data, d)
	}
	return nil, fmt.Errorf("%q: %w", mediaType, ErrUnsupported)
}

// ReadDuration reports the duration a container claims in its metadata.
func ReadDuration(data []byte, mediaType string) (time.Duration, error) {
	switch mediaType {
	case MediaTypeFLAC:
		stream, err := flac.New(bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("parsing flac: %w", err)
		}
		if stream.Info.SampleRate == 0 {
			return 0, fmt.Errorf("flac sample rate 0: %w", ErrMalformed)
		}
		return time.Duration(float64(stream.Info.NSamples) / float64(stream.Info.SampleRate) * float64(time.Second)), nil
	case MediaTypeWAV:
		dec := wav.NewDecoder(bytes.NewReader(data))
		if !dec.IsValidFile() {
			return 0, fmt.Errorf("wav: %w", ErrMalformed)
		}
		if err := dec.FwdToPCM(); err != nil {
			return 0, fmt.Errorf("wav: %w", err)
		}
		frameBytes := int64(dec.NumChans) * int64(dec.BitDepth) / 8
		if frameBytes == 0 || dec.SampleRate == 0 {
			return 0, fmt.Errorf("wav format: %w", ErrMalformed)
		}
		frames := dec.PCMLen() / frameBytes
		return time.Duration(float64(frames) / float64(dec.SampleRate) * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("%q: %w", mediaType, ErrUnsupported)
}

func fixFlacDuration(data []byte, d time.Duration) ([]byte, error) {
	if len(data) < flacStreamInfoOffset+flacStreamInfoLen || string(data[:4]) != "fLaC" {
		return nil, fmt.Errorf("flac header: %w", ErrMalformed)
	}
	// First metadata block must be STREAMINFO (type 0).
	if data[4]&0x7f != 0 {
		return nil, fmt.Errorf("flac: first block is not STREAMINFO: %w", ErrMalformed)
	}
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing flac: %w", err)
	}
	rate := stream.Info.SampleRate
	if rate == 0 {
		return nil, fmt.Errorf("flac sample rate 0: %w", ErrMalformed)
	}

	n := uint64(math.Round(d.Seconds() * float64(rate)))
	if n > flacMaxNSamples {
		n = flacMaxNSamples
	}

	out := make([]byte, len(data))
	copy(out, data)
	// NSamples is 36 bits: low nibble of byte 13 of STREAMINFO, then 4 bytes.
	out[flacNSamplesOffset] = out[flacNSamplesOffset]&0xf0 | byte(n>>32)&0x0f
	binary.BigEndian.PutUint32(out[flacNSamplesOffset+1:], uint32(n))
	return out, nil
}

// fixWavDuration fits the data chunk to exactly d of audio, padding with
// silence or truncating, and rewrites the RIFF and data sizes. A WAV has no
// duration field of its own; its length is its duration.
func fixWavDuration(data []byte, d time.Duration) ([]byte, error) {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav header: %w", ErrMalformed)
	}

	var blockAlign, rate uint32
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4:]))
		body := pos + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, fmt.Errorf("wav fmt chunk: %w", ErrMalformed)
			}
			rate = binary.LittleEndian.Uint32(data[body+4:])
			blockAlign = uint32(binary.LittleEndian.Uint16(data[body+12:]))
		case "data":
			if rate == 0 || blockAlign == 0 {
				return nil, fmt.Errorf("wav data before fmt: %w", ErrMalformed)
			}
			// The streamed data size is a placeholder; the payload runs to
			// the end of the blob.
			payload := data[body:]
			want := int(math.Round(d.Seconds()*float64(rate))) * int(blockAlign)

			out := make([]byte, body+want)
			copy(out, data[:body])
			copy(out[body:], payload)
			binary.LittleEndian.PutUint32(out[4:], uint32(len(out)-8))
			binary.LittleEndian.PutUint32(out[pos+4:], uint32(want))
			return out, nil
		}
		pos = body + size + size%2
	}
	return nil, fmt.Errorf("wav data chunk missing: %w", ErrMalformed)
}
