package parser

import (
	"sync"
	"time"
)

// Clock supplies ingestion timestamps. Records are stamped when they are
// parsed, never from the log content.
type Clock interface {
	Now() time.Time
}

// WallClock is a Clock returning the current UTC time.
type WallClock struct{}

// Now returns the current UTC time.
func (WallClock) Now() time.Time {
	return time.Now().UTC()
}

// ReplayClock is a deterministic Clock. The first call to Now returns start
// and each following call advances by step.
type ReplayClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewReplayClock returns a ReplayClock starting at start.
func NewReplayClock(start time.Time, step time.Duration) *ReplayClock {
	return &ReplayClock{start: start, step: step}
}

// Now returns the next timestamp in the sequence.
func (c *ReplayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}
