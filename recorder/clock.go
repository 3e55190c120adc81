package recorder

import (
	"sync"
	"time"
)

// clock counts whole seconds of recording. It is display-only; encoded
// durations come from wall-clock timestamps.
type clock struct {
	interval time.Duration
	onTick   func(seconds int)

	mu      sync.Mutex
	elapsed int
	stopCh  chan struct{} // nil when stopped

	// held across onTick so quiesce can wait out a delivery in flight
	deliver sync.Mutex
}

func newClock(interval time.Duration, onTick func(int)) *clock {
	return &clock{interval: interval, onTick: onTick}
}

// start resets to zero and begins ticking.
func (c *clock) start() {
	c.mu.Lock()
	c.haltLocked()
	c.elapsed = 0
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.mu.Unlock()

	go c.run(stopCh)
}

func (c *clock) run(stopCh chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !c.tick(stopCh) {
				return
			}
		}
	}
}

func (c *clock) tick(stopCh chan struct{}) bool {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	if c.stopCh != stopCh {
		c.mu.Unlock()
		return false
	}
	c.elapsed++
	n := c.elapsed
	c.mu.Unlock()

	c.onTick(n)
	return true
}

// quiesce waits for a tick callback that was already running when the
// clock stopped. Call it without holding locks the callback may take.
func (c *clock) quiesce() {
	c.deliver.Lock()
	c.deliver.Unlock()
}

// stop freezes the count. No increment happens after stop returns, and no
// callback starts after it; one in flight finishes before quiesce returns.
func (c *clock) stop() {
	c.mu.Lock()
	c.haltLocked()
	c.mu.Unlock()
}

// reset stops and clears the count.
func (c *clock) reset() {
	c.mu.Lock()
	c.haltLocked()
	c.elapsed = 0
	c.mu.Unlock()
}

func (c *clock) seconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *clock) haltLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}
