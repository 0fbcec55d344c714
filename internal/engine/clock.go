package engine

import "sync/atomic"

// Sequencer hands out window sequence numbers. Implemented by Clock and by
// the deterministic test clock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock. Every capture window is stamped with
// a strictly increasing seq from Next; wall time is never used for
// ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the Engine's single-writer design means only the Run goroutine
// typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next seq is start+1. Used to resume
// after the last journaled window.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last handed out sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
