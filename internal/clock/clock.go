// Package clock produces the simulation's monotonically increasing virtual
// time line, decoupled from wall-clock time by a configurable speed factor.
package clock

import (
	"sync"
	"time"
)

// Clock maps wall-clock time onto simulated time at a configurable speed.
// Safe for concurrent use: Now and SetSpeed may be called from any
// goroutine while the tick driver advances in its own loop.
type Clock struct {
	mu sync.RWMutex

	startWall time.Time
	startSim  time.Time
	speed     float64

	nowFunc func() time.Time // overridden in tests; defaults to time.Now
}

// New returns a Clock whose simulated time begins at startSim (wall-clock
// "now") and advances at speed simulated-seconds per real second.
func New(startSim time.Time, speed float64) *Clock {
	return &Clock{
		startWall: time.Now(),
		startSim:  startSim,
		speed:     speed,
		nowFunc:   time.Now,
	}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	elapsed := c.nowFunc().Sub(c.startWall)
	return c.startSim.Add(time.Duration(float64(elapsed) * c.speed))
}

// Speed returns the current simulated-seconds-per-real-second ratio.
func (c *Clock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// SetSpeed changes the speed factor, rebasing start_wall/start_sim so that
// Now() is continuous across the change — no jump forward or backward.
func (c *Clock) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	elapsed := now.Sub(c.startWall)
	c.startSim = c.startSim.Add(time.Duration(float64(elapsed) * c.speed))
	c.startWall = now
	c.speed = speed
}
