package silence

import "time"

type State int

const (
	StateActive  State = iota // volume above threshold, no window
	StatePending              // silence window running
	StateHalted               // fired or stopped; ignores input
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StatePending:
		return "pending"
	case StateHalted:
		return "halted"
	}
	return "unknown"
}

type Event int

const (
	EventNone          Event = iota
	EventWindowOpened        // volume dropped to or below threshold
	EventWindowCleared       // volume rose above threshold while pending
	EventSilence             // window elapsed; detector is now halted
)

// Detector tracks how long volume has stayed at or below a threshold and
// reports EventSilence once that lasts for the configured window. At most
// one window is pending at a time.
//
// Thresholds outside [0,255] are accepted as given: below 0 nothing is ever
// silent, at 255 or above everything is.
type Detector struct {
	threshold float64
	window    time.Duration

	state State
	since time.Time // start of the pending window; meaningful in StatePending only
}

func New(threshold float64, window time.Duration) *Detector {
	return &Detector{threshold: threshold, window: window}
}

func (d *Detector) State() State { return d.state }

// Deadline is when the pending window elapses.
func (d *Detector) Deadline() (time.Time, bool) {
	if d.state != StatePending {
		return time.Time{}, false
	}
	return d.since.Add(d.window), true
}

// Observe feeds one volume sample taken at now.
func (d *Detector) Observe(volume float64, now time.Time) Event {
	switch d.state {
	case StateHalted:
		return EventNone

	case StatePending:
		// A deadline that passed between samples fired before this sample.
		if ev := d.Expire(now); ev == EventSilence {
			return ev
		}
		if volume > d.threshold {
			d.state = StateActive
			d.since = time.Time{}
			return EventWindowCleared
		}
		return EventNone

	default:
		if volume > d.threshold {
			return EventNone
		}
		d.state = StatePending
		d.since = now
		if d.window <= 0 {
			d.halt()
			return EventSilence
		}
		return EventWindowOpened
	}
}

// Expire fires the pending window if its deadline is at or before now.
func (d *Detector) Expire(now time.Time) Event {
	if d.state != StatePending || now.Sub(d.since) < d.window {
		return EventNone
	}
	d.halt()
	return EventSilence
}

// Halt stops the detector. Safe to call repeatedly.
func (d *Detector) Halt() {
	d.halt()
}

func (d *Detector) halt() {
	d.state = StateHalted
	d.since = time.Time{}
}
