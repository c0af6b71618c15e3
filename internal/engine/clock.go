package engine

import "sync/atomic"

// Clock is the monotonic logical clock that orders edit records.
//
// Every persisted record is stamped with a strictly increasing seq
// number. Head selection and timeline ordering use seq, never wall
// time, so ordering survives clock skew and sub-millisecond bursts.
//
// Thread-safety: safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock resuming from a specific sequence number;
// the first Next is start+1. The engine seeds this from the store's
// maximum persisted seq so reopened databases keep a gapless total
// order. A fresh store starts at 0.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
