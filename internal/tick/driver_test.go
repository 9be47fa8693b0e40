package tick

import (
	"testing"
	"time"

	"github.com/basim-project/basim/internal/clock"
	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	reg := registry.New()
	c, err := campus.Assemble(reg, config.SizeSmall)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	wx := weather.New(reg, 40.0, weather.Normal, 1)
	clk := clock.New(time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC), 1.0)
	return New(clk, reg, wx, c, config.DefaultPhysicsParams())
}

func TestRunOneTickPublishesASnapshot(t *testing.T) {
	d := newTestDriver(t)
	if d.Registry.Len() == 0 {
		t.Fatal("expected points registered before any tick")
	}

	d.runOneTick(d.last.Add(d.TickQuantum))

	after := d.Registry.Snapshot("CentralPlant.Chiller_1")
	if len(after) == 0 {
		t.Fatal("expected CentralPlant.Chiller_1 points in the published snapshot after a tick")
	}
}

func TestCatchUpCapsAtMaxCatchup(t *testing.T) {
	d := newTestDriver(t)
	d.MaxCatchup = 5
	// Push the clock's simulated time far ahead of d.last by rebasing it at
	// a very high speed: even a negligible amount of real elapsed time
	// yields a simulated gap far larger than MaxCatchup*TickQuantum.
	d.Clock.SetSpeed(1e9)
	time.Sleep(time.Millisecond)
	// Freeze simulated time so the check below compares against the same
	// instant catchUp read from the clock.
	d.Clock.SetSpeed(0)

	d.catchUp()

	remaining := d.Clock.Now().Sub(d.last)
	if remaining < 0 {
		t.Fatalf("d.last ran ahead of the clock: remaining=%v", remaining)
	}
	// After hitting the cap, catchUp resynchronizes d.last to the clock's
	// current time rather than continuing to fall behind forever.
	if remaining > d.TickQuantum {
		t.Errorf("expected catchUp to resynchronize near clock.Now(), got remaining=%v", remaining)
	}
}

func TestNewUsesDefaultQuantumAndCatchup(t *testing.T) {
	d := newTestDriver(t)
	if d.TickQuantum != defaultTickQuantum {
		t.Errorf("TickQuantum = %v, want %v", d.TickQuantum, defaultTickQuantum)
	}
	if d.MaxCatchup != defaultMaxCatchup {
		t.Errorf("MaxCatchup = %d, want %d", d.MaxCatchup, defaultMaxCatchup)
	}
}
