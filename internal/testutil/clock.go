package testutil

import "sync/atomic"

// DeterministicClock is a resettable logical clock for capture window
// sequence numbers. The first Next after construction or Reset returns 1.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock at 0.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *DeterministicClock) Current() int64 {
	return c.seq.Load()
}

// Set moves the clock to seq, e.g. to continue after windows already in a
// journal.
func (c *DeterministicClock) Set(seq int64) {
	c.seq.Store(seq)
}

// Reset moves the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.seq.Store(0)
}
