package encoder

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func streamed(t *testing.T, f Format, blocks int) []byte {
	t.Helper()
	enc, err := New(f)
	if err != nil {
		t.Fatalf("New(%s): %v", f.MediaType, err)
	}
	var out bytes.Buffer
	for i := 0; i < blocks; i++ {
		if err := enc.EncodeBlock(sineBlock(BlockSize, 523)); err != nil {
			t.Fatalf("EncodeBlock: %v", err)
		}
		out.Write(enc.TakeChunk())
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	out.Write(enc.TakeChunk())
	return out.Bytes()
}

func within(got, want, tol time.Duration) bool {
	d := got - want
	return d >= -tol && d <= tol
}

func TestFixDurationFlac(t *testing.T) {
	raw := streamed(t, registry[MediaTypeFLAC].format, 4)
	orig := append([]byte(nil), raw...)

	if d, err := ReadDuration(raw, MediaTypeFLAC); err != nil || d != 0 {
		t.Fatalf("streamed duration = %v, %v; want 0", d, err)
	}

	for _, want := range []time.Duration{0, 1234 * time.Millisecond, 2 * time.Hour} {
		fixed, err := FixDuration(raw, MediaTypeFLAC, want)
		if err != nil {
			t.Fatalf("FixDuration(%v): %v", want, err)
		}
		got, err := ReadDuration(fixed, MediaTypeFLAC)
		if err != nil {
			t.Fatalf("ReadDuration: %v", err)
		}
		if !within(got, want, time.Millisecond) {
			t.Errorf("duration = %v, want %v", got, want)
		}
		if len(fixed) != len(raw) {
			t.Errorf("FLAC fix changed length: %d -> %d", len(raw), len(fixed))
		}
	}
	if !bytes.Equal(raw, orig) {
		t.Error("FixDuration modified its input")
	}
}

func TestFixDurationWav(t *testing.T) {
	// 4 blocks = 1.024s of audio; the header chunk was taken before Close.
	raw := streamed(t, registry[MediaTypeWAV].format, 4)

	tests := []struct {
		name string
		want time.Duration
	}{
		{"pad", 1500 * time.Millisecond},
		{"truncate", 400 * time.Millisecond},
		{"exact", 1024 * time.Millisecond},
		{"zero", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixed, err := FixDuration(raw, MediaTypeWAV, tt.want)
			if err != nil {
				t.Fatalf("FixDuration: %v", err)
			}
			got, err := ReadDuration(fixed, MediaTypeWAV)
			if err != nil {
				t.Fatalf("ReadDuration: %v", err)
			}
			if !within(got, tt.want, time.Millisecond) {
				t.Errorf("duration = %v, want %v", got, tt.want)
			}
			wantLen := 44 + int(tt.want.Seconds()*SampleRate+0.5)*2
			if len(fixed) != wantLen {
				t.Errorf("len = %d, want %d", len(fixed), wantLen)
			}
		})
	}
}

func TestFixDurationMalformed(t *testing.T) {
	for _, mt := range []string{MediaTypeFLAC, MediaTypeWAV} {
		if _, err := FixDuration([]byte("not audio at all, just text"), mt, time.Second); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: err = %v, want ErrMalformed", mt, err)
		}
	}
}

func TestFixDurationUnsupported(t *testing.T) {
	if _, err := FixDuration(nil, "audio/webm", time.Second); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	if _, err := ReadDuration(nil, "audio/webm"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}
