package encoder

import (
	"errors"
	"io"
	"sync"
)

var errNegativeSeek = errors.New("seek before start of stream")

// chunkSink is the io.WriteSeeker a streamed encoder writes through. Bytes
// handed out by Take have left the process; a seek-and-patch aimed at them
// is silently dropped.
type chunkSink struct {
	mu      sync.Mutex
	emitted int64 // absolute offset of pending[0]
	pending []byte
	pos     int64
}

func (s *chunkSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p)
	if s.pos < s.emitted {
		skip := min(int64(len(p)), s.emitted-s.pos)
		p = p[skip:]
		s.pos += skip
	}
	if len(p) > 0 {
		off := int(s.pos - s.emitted)
		if end := off + len(p); end > len(s.pending) {
			s.pending = append(s.pending, make([]byte, end-len(s.pending))...)
		}
		copy(s.pending[off:], p)
		s.pos += int64(len(p))
	}
	return n, nil
}

func (s *chunkSink) WriteByte(b byte) error {
	_, err := s.Write([]byte{b})
	return err
}

func (s *chunkSink) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = s.emitted + int64(len(s.pending)) + offset
	}
	if abs < 0 {
		return s.pos, errNegativeSeek
	}
	s.pos = abs
	return abs, nil
}

// Take returns the pending bytes and marks them emitted.
func (s *chunkSink) Take() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	out := make([]byte, len(s.pending))
	copy(out, s.pending)
	s.emitted += int64(len(s.pending))
	s.pending = s.pending[:0]
	if s.pos < s.emitted {
		s.pos = s.emitted
	}
	return out
}

// appendOnly hides Seek so encoders that patch headers through an
// io.WriteSeeker treat the sink as a pure stream.
type appendOnly struct {
	s *chunkSink
}

func (w appendOnly) Write(p []byte) (int, error) { return w.s.Write(p) }
func (w appendOnly) WriteByte(b byte) error      { return w.s.WriteByte(b) }
