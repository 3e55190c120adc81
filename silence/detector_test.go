package silence

import (
	"testing"
	"time"
)

const (
	threshold = 30.0
	window    = 2000 * time.Millisecond
	frame     = 16 * time.Millisecond
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// feed observes v at every frame in [from, to) and returns the first
// non-None event with its offset, or EventNone.
func feed(d *Detector, v float64, from, to time.Duration) (Event, time.Duration) {
	for at := from; at < to; at += frame {
		if ev := d.Observe(v, t0.Add(at)); ev != EventNone && ev != EventWindowOpened {
			return ev, at
		}
	}
	return EventNone, 0
}

func TestSilenceFiresAfterWindow(t *testing.T) {
	d := New(threshold, window)
	if ev := d.Observe(10, t0); ev != EventWindowOpened {
		t.Fatalf("first quiet sample = %v, want EventWindowOpened", ev)
	}
	ev, at := feed(d, 10, frame, 3*time.Second)
	if ev != EventSilence {
		t.Fatalf("expected EventSilence, got %v", ev)
	}
	if at < window || at >= window+frame {
		t.Errorf("fired at %v, want within one frame after %v", at, window)
	}
	if d.State() != StateHalted {
		t.Errorf("state = %v, want halted", d.State())
	}
}

func TestNoSilenceDuringSpeech(t *testing.T) {
	d := New(threshold, window)
	if ev, at := feed(d, 120, 0, 10*time.Second); ev != EventNone {
		t.Fatalf("unexpected %v at %v during speech", ev, at)
	}
	if d.State() != StateActive {
		t.Errorf("state = %v, want active", d.State())
	}
}

func TestLoudSampleJustBeforeDeadlineResets(t *testing.T) {
	d := New(threshold, window)
	d.Observe(0, t0)
	if ev := d.Observe(0, t0.Add(window/2)); ev != EventNone {
		t.Fatalf("mid-window = %v", ev)
	}
	if ev := d.Observe(200, t0.Add(window-time.Millisecond)); ev != EventWindowCleared {
		t.Fatalf("loud sample at deadline-1ms = %v, want EventWindowCleared", ev)
	}
	// Quiet again: the original deadline must not fire.
	if ev := d.Observe(0, t0.Add(window)); ev != EventWindowOpened {
		t.Fatalf("quiet after reset = %v, want EventWindowOpened", ev)
	}
	if ev := d.Expire(t0.Add(window + window/2)); ev != EventNone {
		t.Fatalf("fired %v inside the original window", ev)
	}
	if ev := d.Expire(t0.Add(2 * window)); ev != EventSilence {
		t.Fatalf("expected EventSilence a full window after the reset, got %v", ev)
	}
}

func TestThresholdIsExclusive(t *testing.T) {
	d := New(threshold, window)
	if ev := d.Observe(threshold, t0); ev != EventWindowOpened {
		t.Errorf("volume == threshold should count as quiet, got %v", ev)
	}
}

func TestOnlyOneWindow(t *testing.T) {
	d := New(threshold, window)
	d.Observe(0, t0)
	deadline, ok := d.Deadline()
	if !ok || !deadline.Equal(t0.Add(window)) {
		t.Fatalf("Deadline = %v, %v", deadline, ok)
	}
	for i := 1; i < 10; i++ {
		if ev := d.Observe(0, t0.Add(time.Duration(i)*frame)); ev != EventNone {
			t.Fatalf("sample %d = %v, want EventNone", i, ev)
		}
	}
	if again, _ := d.Deadline(); !again.Equal(deadline) {
		t.Errorf("deadline moved from %v to %v", deadline, again)
	}
}

func TestLateSampleAfterDeadlineStillFires(t *testing.T) {
	d := New(threshold, window)
	d.Observe(0, t0)
	// The frame loop was late; the loud sample arrives after the deadline.
	if ev := d.Observe(250, t0.Add(window+5*time.Millisecond)); ev != EventSilence {
		t.Errorf("got %v, want EventSilence", ev)
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	d := New(threshold, window)
	d.Observe(0, t0)
	d.Halt()
	d.Halt()
	if d.State() != StateHalted {
		t.Fatalf("state = %v", d.State())
	}
	if _, ok := d.Deadline(); ok {
		t.Error("halted detector reports a deadline")
	}
	if ev, _ := feed(d, 0, 0, 5*time.Second); ev != EventNone {
		t.Errorf("halted detector emitted %v", ev)
	}
}

func TestDegenerateThresholds(t *testing.T) {
	never := New(-1, window)
	if ev, _ := feed(never, 0, 0, 5*time.Second); ev != EventNone {
		t.Errorf("threshold -1: got %v, want no silence", ev)
	}
	always := New(255, window)
	if ev, _ := feed(always, 255, 0, 5*time.Second); ev != EventSilence {
		t.Errorf("threshold 255: got %v, want silence", ev)
	}
}

func TestZeroWindowFiresImmediately(t *testing.T) {
	d := New(threshold, 0)
	if ev := d.Observe(0, t0); ev != EventSilence {
		t.Errorf("got %v, want EventSilence", ev)
	}
}
