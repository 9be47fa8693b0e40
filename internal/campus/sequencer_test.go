package campus

import (
	"testing"
	"time"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/equipment/chiller"
	"github.com/basim-project/basim/internal/registry"
)

func newTestChiller(reg *registry.Registry, path string, rank int) *chiller.Chiller {
	return chiller.New(reg, path, chiller.Params{
		CapacityTons:  100,
		RatedKWPerTon: 0.6,
		Rank:          rank,
		MinOnTime:     5 * time.Minute,
		MinOffTime:    5 * time.Minute,
		ChwSetpoint:   44,
		LoadTau:       180,
		ChwTempTau:    120,
	})
}

// advanceToRunning drives ch from a cold Off state to Running carrying
// tons of load, returning the sim time it settled at. The first Advance
// clears the Off->Starting gate (lastTransition is zero, so MinOffTime
// doesn't block a chiller's very first start); the second, 40 simulated
// seconds later, clears the Starting->Running gate and, given a dt far
// larger than LoadTau, snaps load_percent straight to its target.
func advanceToRunning(ch *chiller.Chiller, t0 time.Time, tons float64) time.Time {
	ch.Advance(equipment.Context{Now: t0, Dt: time.Second}, tons, 75)
	t1 := t0.Add(40 * time.Second)
	ch.Advance(equipment.Context{Now: t1, Dt: 1000 * time.Second}, tons, 75)
	return t1
}

func TestSequenceChillersWaitsForMinStageTimeBeforeStagingUp(t *testing.T) {
	reg := registry.New()
	ch1 := newTestChiller(reg, "CentralPlant.Chiller_1", 1)
	ch2 := newTestChiller(reg, "CentralPlant.Chiller_2", 2)
	plant := &CentralPlant{Chillers: []*chiller.Chiller{ch1, ch2}}

	t0 := time.Unix(1700000000, 0)
	ch1.SetEnabled(true, t0)
	now := advanceToRunning(ch1, t0, 100)

	if !ch1.Enabled() || ch1.LoadPercent() < stageUpThreshold {
		t.Fatalf("test setup failed: chiller 1 enabled=%v load=%v", ch1.Enabled(), ch1.LoadPercent())
	}

	sequencePlant(plant, now)
	ch2.Advance(equipment.Context{Now: now, Dt: time.Second}, 0, 75)
	if ch2.Status() != chiller.StatusOff {
		t.Fatalf("chiller 2 staged on immediately, want it to wait out minStageTime; status=%v", ch2.Status())
	}

	almostThere := now.Add(minStageTime - time.Second)
	sequencePlant(plant, almostThere)
	ch2.Advance(equipment.Context{Now: almostThere, Dt: time.Second}, 0, 75)
	if ch2.Status() != chiller.StatusOff {
		t.Fatalf("chiller 2 staged on before minStageTime elapsed; status=%v", ch2.Status())
	}

	pastThreshold := now.Add(minStageTime + time.Second)
	sequencePlant(plant, pastThreshold)
	ch2.Advance(equipment.Context{Now: pastThreshold, Dt: time.Second}, 0, 75)
	if ch2.Status() != chiller.StatusStarting {
		t.Fatalf("expected chiller 2 staged on after minStageTime held, got status=%v", ch2.Status())
	}
}

func TestSequenceChillersWaitsForMinStageTimeBeforeStagingDown(t *testing.T) {
	reg := registry.New()
	ch1 := newTestChiller(reg, "CentralPlant.Chiller_1", 1)
	ch2 := newTestChiller(reg, "CentralPlant.Chiller_2", 2)
	plant := &CentralPlant{Chillers: []*chiller.Chiller{ch1, ch2}}

	t0 := time.Unix(1700000000, 0)
	ch1.SetEnabled(true, t0)
	ch2.SetEnabled(true, t0)
	now := advanceToRunning(ch1, t0, 40)
	advanceToRunning(ch2, t0, 40)

	// Both chillers carrying 40% each: dropping to one chiller would carry
	// the full 80%, right at stageDownThreshold.
	sequencePlant(plant, now)
	ch2.Advance(equipment.Context{Now: now, Dt: time.Second}, 40, 75)
	if ch2.Status() != chiller.StatusRunning {
		t.Fatalf("chiller 2 staged off immediately, want it to wait out minStageTime; status=%v", ch2.Status())
	}

	almostThere := now.Add(minStageTime - time.Second)
	sequencePlant(plant, almostThere)
	ch2.Advance(equipment.Context{Now: almostThere, Dt: time.Second}, 40, 75)
	if ch2.Status() != chiller.StatusRunning {
		t.Fatalf("chiller 2 staged off before minStageTime elapsed; status=%v", ch2.Status())
	}

	pastThreshold := now.Add(minStageTime + time.Second)
	sequencePlant(plant, pastThreshold)
	ch2.Advance(equipment.Context{Now: pastThreshold, Dt: time.Second}, 40, 75)
	if ch2.Status() != chiller.StatusUnloading {
		t.Fatalf("expected chiller 2 staged off after minStageTime held, got status=%v", ch2.Status())
	}
}

func TestSequenceChillersStartsTheFirstChillerColdWithNoWait(t *testing.T) {
	reg := registry.New()
	ch1 := newTestChiller(reg, "CentralPlant.Chiller_1", 1)
	plant := &CentralPlant{Chillers: []*chiller.Chiller{ch1}}

	now := time.Unix(1700000000, 0)
	sequencePlant(plant, now)
	ch1.Advance(equipment.Context{Now: now, Dt: time.Second}, 0, 75)

	if ch1.Status() != chiller.StatusStarting {
		t.Fatalf("expected the only chiller to start immediately with no fleet to stage against, got status=%v", ch1.Status())
	}
}
