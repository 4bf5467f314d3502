// Package ratelimit provides a lightweight counter for throttling log emission
// on hot failure paths (cache tier degradation, timestamp extraction errors).
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Counter tracks a total event count and the last time a log line was allowed
// through. It is safe for concurrent use.
type Counter struct {
	interval time.Duration
	lastLog  atomic.Int64
	total    atomic.Uint64
}

// NewCounter constructs a Counter that permits a log at most once per
// interval. A zero or negative interval disables throttling (always logs).
func NewCounter(interval time.Duration) *Counter {
	return &Counter{interval: interval}
}

// Inc increments the counter and reports the running total along with whether
// the caller should emit a log line now.
func (c *Counter) Inc() (uint64, bool) {
	if c == nil {
		return 0, false
	}
	total := c.total.Add(1)
	if c.interval <= 0 {
		return total, true
	}
	now := time.Now().UTC().UnixNano()
	last := c.lastLog.Load()
	if now-last < c.interval.Nanoseconds() {
		return total, false
	}
	if c.lastLog.CompareAndSwap(last, now) {
		return total, true
	}
	return total, false
}

// Snapshot returns the running total without incrementing. Used when stats
// are reported from a path other than the one doing the counting.
func (c *Counter) Snapshot() uint64 {
	if c == nil {
		return 0
	}
	return c.total.Load()
}
