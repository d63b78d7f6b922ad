package platform

import "time"

// Clock is the wall-clock millisecond counter and high-resolution
// performance counter the windowing collaborator owns, used for
// frame-delta timing and the console `FPS` command. It is a standalone,
// testable clock the Engine drives once per frame.
type Clock struct {
	start  time.Time
	last   time.Time
	frames int
	fpsWindowStart time.Time
	fps    float64
}

// NewClock starts a clock at the current instant.
func NewClock() *Clock {
	now := time.Now()
	return &Clock{start: now, last: now, fpsWindowStart: now}
}

// MillisSinceStart is the wall-clock millisecond counter.
func (c *Clock) MillisSinceStart() int64 {
	return time.Since(c.start).Milliseconds()
}

// PerfCounter is a high-resolution counter in fractional seconds,
// monotonic for the process lifetime.
func (c *Clock) PerfCounter() float64 {
	return time.Since(c.start).Seconds()
}

// Tick advances the clock by one frame, returning the delta time in
// seconds since the previous Tick (or since NewClock, for the first
// call), and updates the one-second rolling FPS estimate the console
// `FPS` command reads.
func (c *Clock) Tick() float64 {
	now := time.Now()
	dt := now.Sub(c.last).Seconds()
	c.last = now
	c.frames++

	if elapsed := now.Sub(c.fpsWindowStart).Seconds(); elapsed >= 1.0 {
		c.fps = float64(c.frames) / elapsed
		c.frames = 0
		c.fpsWindowStart = now
	}
	return dt
}

// FPS returns the most recently completed one-second window's average
// frame rate (0 until the first full window elapses).
func (c *Clock) FPS() float64 { return c.fps }
