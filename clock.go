package headlights

import (
	"time"
)

// Clock produces per-frame delta times. A non-zero FixedDt replaces wall time,
// which keeps captures and tests deterministic.
type Clock struct {
	Time    time.Time
	Dt      time.Duration
	FixedDt time.Duration
	Elapsed time.Duration
	Frames  uint64

	now func() time.Time
}

func NewClock() *Clock {
	return &Clock{Time: time.Now(), now: time.Now}
}

func NewFixedClock(dt time.Duration) *Clock {
	c := NewClock()
	c.FixedDt = dt
	return c
}

// NewClockAt starts a clock whose Seconds already reads elapsed. A positive
// fixedDt gives a fixed-step clock, zero follows wall time.
func NewClockAt(fixedDt, elapsed time.Duration) *Clock {
	c := NewFixedClock(fixedDt)
	c.Reset(elapsed)
	return c
}

// Tick advances the clock by one frame and returns the delta in seconds.
func (c *Clock) Tick() float32 {
	if c.FixedDt > 0 {
		c.Dt = c.FixedDt
		c.Time = c.Time.Add(c.FixedDt)
	} else {
		now := c.now()
		c.Dt = now.Sub(c.Time)
		c.Time = now
	}
	c.Elapsed += c.Dt
	c.Frames++
	return float32(c.Dt.Seconds())
}

// Seconds returns the accumulated time since the clock was created or reset.
func (c *Clock) Seconds() float64 {
	return c.Elapsed.Seconds()
}

// Reset sets the accumulated time, for example when a saved simulation time is loaded.
func (c *Clock) Reset(elapsed time.Duration) {
	c.Elapsed = elapsed
	c.Time = c.now()
}
