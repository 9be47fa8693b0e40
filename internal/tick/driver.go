// Package tick runs the simulation's deterministic per-second advance: ask
// the clock for simulated now, expire stale overrides, advance weather, then
// advance every equipment model in dependency order, publishing a
// tick-boundary snapshot at the end.
package tick

import (
	"context"
	"sync"
	"time"

	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/clock"
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/metrics"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

// defaultTickQuantum is the simulated-time granularity of one tick.
const defaultTickQuantum = time.Second

// defaultMaxCatchup bounds how many ticks a single wake can run, so a stalled
// process (GC pause, debugger breakpoint, a very high simulation speed) can't
// spin forever trying to catch simulated time up to wall time.
const defaultMaxCatchup = 60

// pollInterval is how often the driver wakes to check whether a tick is due.
// Independent of tick_quantum: at high simulation speeds many sim-seconds
// elapse between wakes, which is exactly what max_catchup bounds.
const pollInterval = 50 * time.Millisecond

// Driver owns the tick loop: it wakes on pollInterval, and whenever enough
// simulated time has elapsed since the last tick, advances the world by
// exactly tick_quantum (possibly several times, to catch up).
type Driver struct {
	Clock    *clock.Clock
	Registry *registry.Registry
	Weather  *weather.Model
	Campus   *campus.Campus

	TickQuantum time.Duration
	MaxCatchup  int

	physicsMu sync.RWMutex
	physics   config.PhysicsParams

	last time.Time
}

// New returns a Driver with the default tick quantum and catch-up bound.
func New(clk *clock.Clock, reg *registry.Registry, wx *weather.Model, c *campus.Campus, physics config.PhysicsParams) *Driver {
	return &Driver{
		Clock:       clk,
		Registry:    reg,
		Weather:     wx,
		Campus:      c,
		physics:     physics,
		TickQuantum: defaultTickQuantum,
		MaxCatchup:  defaultMaxCatchup,
		last:        clk.Now(),
	}
}

// Physics returns the multipliers currently applied to every equipment
// model's physical constants.
func (d *Driver) Physics() config.PhysicsParams {
	d.physicsMu.RLock()
	defer d.physicsMu.RUnlock()
	return d.physics
}

// SetPhysics replaces the active physics multipliers, effective on the next
// tick. Safe to call from an API handler goroutine while the tick loop runs.
func (d *Driver) SetPhysics(p config.PhysicsParams) {
	d.physicsMu.Lock()
	d.physics = p
	d.physicsMu.Unlock()
}

// Run blocks, advancing the simulation until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.catchUp()
		}
	}
}

// catchUp runs as many whole tick_quantum steps as have elapsed in
// simulated time since the last tick, capped at MaxCatchup.
func (d *Driver) catchUp() {
	now := d.Clock.Now()
	ran := 0
	for now.Sub(d.last) >= d.TickQuantum && ran < d.MaxCatchup {
		d.last = d.last.Add(d.TickQuantum)
		d.runOneTick(d.last)
		ran++
	}
	if ran > 1 {
		metrics.TickCatchupTotal.Inc()
	}
	if ran == d.MaxCatchup && now.Sub(d.last) >= d.TickQuantum {
		log.Warnf("tick driver fell behind simulated time by more than %d ticks; resynchronizing", d.MaxCatchup)
		d.last = now
	}
}

// runOneTick advances the whole world by exactly one tick_quantum, ending
// with a published, torn-read-free snapshot.
func (d *Driver) runOneTick(now time.Time) {
	start := time.Now()

	d.Registry.Expire(now)
	conditions := d.Weather.Advance(now)

	ctx := equipment.Context{
		Registry: d.Registry,
		Weather:  conditions,
		Physics:  d.Physics(),
		Now:      now,
		Dt:       d.TickQuantum,
	}

	d.Campus.Advance(ctx)
	d.Registry.PublishSnapshot()

	metrics.TickDuration.Observe(time.Since(start).Seconds())
	metrics.PointCount.Set(float64(d.Registry.Len()))
	overrideCount := 0
	for _, slots := range d.Registry.AllOverrides() {
		overrideCount += len(slots)
	}
	metrics.OverrideCount.Set(float64(overrideCount))
}
