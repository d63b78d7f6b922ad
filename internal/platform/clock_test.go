package platform

import "testing"

func TestTickReturnsNonNegativeDelta(t *testing.T) {
	c := NewClock()
	dt := c.Tick()
	if dt < 0 {
		t.Fatalf("Tick dt = %v, want >= 0", dt)
	}
}

func TestPerfCounterIsMonotonic(t *testing.T) {
	c := NewClock()
	a := c.PerfCounter()
	b := c.PerfCounter()
	if b < a {
		t.Fatalf("perf counter went backwards: %v then %v", a, b)
	}
}

func TestFPSStartsAtZeroBeforeFirstWindow(t *testing.T) {
	c := NewClock()
	c.Tick()
	if c.FPS() != 0 {
		t.Fatalf("FPS = %v before any full window, want 0", c.FPS())
	}
}
