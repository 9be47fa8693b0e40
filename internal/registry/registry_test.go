package registry

import (
	"math"
	"testing"
	"time"
)

func TestEffectiveValueFallsBackToPresentValue(t *testing.T) {
	r := New()
	r.Register("Zone.room_temp", KindAnalog, "degF", true)

	p, _ := r.Lookup("Zone.room_temp")
	p.SetPresentValue(72.0)

	value, _, overridden, err := r.Read("Zone.room_temp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overridden {
		t.Fatalf("expected no override")
	}
	if value != 72.0 {
		t.Fatalf("expected 72.0, got %v", value)
	}
}

func TestOverridePriorityOrdering(t *testing.T) {
	r := New()
	r.Register("CentralPlant.Chiller_1.chw_supply_temp", KindAnalog, "degF", true)
	now := time.Now()

	if err := r.Override("CentralPlant.Chiller_1.chw_supply_temp", 45.0, 8, "http", now, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Override("CentralPlant.Chiller_1.chw_supply_temp", 50.0, 4, "bacnet", now, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, _, overridden, err := r.Read("CentralPlant.Chiller_1.chw_supply_temp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overridden {
		t.Fatalf("expected an override to be in effect")
	}
	if value != 50.0 {
		t.Fatalf("expected lowest-priority slot (4) to win with value 50.0, got %v", value)
	}
}

func TestReleaseRestoresPresentValue(t *testing.T) {
	r := New()
	r.Register("Building_1.AHU_1.VAV_101.damper_position", KindAnalog, "percent", true)
	p, _ := r.Lookup("Building_1.AHU_1.VAV_101.damper_position")
	p.SetPresentValue(30.0)
	now := time.Now()

	if err := r.Override("Building_1.AHU_1.VAV_101.damper_position", 100.0, 4, "http", now, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Release("Building_1.AHU_1.VAV_101.damper_position", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, _, overridden, err := r.Read("Building_1.AHU_1.VAV_101.damper_position")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overridden {
		t.Fatalf("expected override cleared")
	}
	if value != 30.0 {
		t.Fatalf("expected present value 30.0, got %v", value)
	}
}

func TestOverrideExpiry(t *testing.T) {
	r := New()
	r.Register("Building_1.AHU_1.VAV_101.damper_position", KindAnalog, "percent", true)
	start := time.Now()

	if err := r.Override("Building_1.AHU_1.VAV_101.damper_position", 100.0, 4, "http", start, 60*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Expire(start.Add(30 * time.Second))
	_, _, overridden, _ := r.Read("Building_1.AHU_1.VAV_101.damper_position")
	if !overridden {
		t.Fatalf("expected override still active at T+30s")
	}

	r.Expire(start.Add(61 * time.Second))
	_, _, overridden, _ = r.Read("Building_1.AHU_1.VAV_101.damper_position")
	if overridden {
		t.Fatalf("expected override expired at T+61s")
	}

	overrides, err := r.Overrides("Building_1.AHU_1.VAV_101.damper_position")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overrides) != 0 {
		t.Fatalf("expected no remaining override slots, got %d", len(overrides))
	}
}

func TestOverrideRejectsBadPriorityAndNonWritable(t *testing.T) {
	r := New()
	r.Register("Weather.oat", KindAnalog, "degF", false)
	r.Register("CentralPlant.Chiller_1.chw_supply_temp", KindAnalog, "degF", true)
	now := time.Now()

	if err := r.Override("Weather.oat", 1.0, 8, "http", now, 0); err == nil {
		t.Fatalf("expected NOT_WRITABLE error for read-only point")
	} else if kind, ok := KindOf(err); !ok || kind != ErrNotWritable {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}

	if err := r.Override("CentralPlant.Chiller_1.chw_supply_temp", 1.0, 0, "http", now, 0); err == nil {
		t.Fatalf("expected BAD_PRIORITY error for priority 0")
	} else if kind, ok := KindOf(err); !ok || kind != ErrBadPriority {
		t.Fatalf("expected ErrBadPriority, got %v", err)
	}

	if err := r.Override("CentralPlant.Chiller_1.chw_supply_temp", 1.0, 17, "http", now, 0); err == nil {
		t.Fatalf("expected BAD_PRIORITY error for priority 17")
	}
}

func TestReadUnknownPoint(t *testing.T) {
	r := New()
	_, _, _, err := r.Read("does.not.exist")
	if err == nil {
		t.Fatalf("expected error for unknown point")
	}
	if kind, ok := KindOf(err); !ok || kind != ErrUnknownPoint {
		t.Fatalf("expected ErrUnknownPoint, got %v", err)
	}
}

func TestSnapshotReflectsPublishedView(t *testing.T) {
	r := New()
	r.Register("Zone.room_temp", KindAnalog, "degF", true)
	r.Register("Weather.oat", KindAnalog, "degF", false)

	p, _ := r.Lookup("Zone.room_temp")
	p.SetPresentValue(70.0)

	// Snapshot before publish is empty: readers only see tick-boundary state.
	if snap := r.Snapshot(""); len(snap) != 0 {
		t.Fatalf("expected empty snapshot before first publish, got %d entries", len(snap))
	}

	r.PublishSnapshot()
	snap := r.Snapshot("")
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap["Zone.room_temp"].Value != 70.0 {
		t.Fatalf("expected 70.0, got %v", snap["Zone.room_temp"].Value)
	}

	prefixed := r.Snapshot("Zone.")
	if len(prefixed) != 1 {
		t.Fatalf("expected 1 entry for prefix filter, got %d", len(prefixed))
	}
}

func TestPriorityArrayNeverObservedByPresentValueWriters(t *testing.T) {
	r := New()
	r.Register("CentralPlant.Chiller_1.status", KindBinary, "", true)
	p, _ := r.Lookup("CentralPlant.Chiller_1.status")
	now := time.Now()

	if err := r.Override("CentralPlant.Chiller_1.status", 0, 8, "http", now, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The owning model keeps writing its own computed value; present_value
	// is unaffected by, and blind to, the override stack.
	p.SetPresentValue(1)
	if pv := p.PresentValue(); pv != 1 {
		t.Fatalf("expected present value 1, got %v", pv)
	}

	value, _, overridden, _ := r.Read("CentralPlant.Chiller_1.status")
	if !overridden || value != 0 {
		t.Fatalf("expected override to still shadow present value, got %v overridden=%v", value, overridden)
	}
}

func TestOverrideRejectsValueNotMatchingPointKind(t *testing.T) {
	r := New()
	r.Register("CentralPlant.Chiller_1.status", KindBinary, "", true)
	r.Register("CentralPlant.Chiller_1.chw_supply_temp", KindAnalog, "degF", true)
	now := time.Now()

	err := r.Override("CentralPlant.Chiller_1.status", 0.5, 8, "http", now, 0)
	if kind, ok := KindOf(err); !ok || kind != ErrBadType {
		t.Fatalf("expected BAD_TYPE for non-binary value on a binary point, got %v", err)
	}

	err = r.Override("CentralPlant.Chiller_1.chw_supply_temp", math.NaN(), 8, "http", now, 0)
	if kind, ok := KindOf(err); !ok || kind != ErrBadType {
		t.Fatalf("expected BAD_TYPE for NaN on an analog point, got %v", err)
	}

	// A legal binary value still succeeds.
	if err := r.Override("CentralPlant.Chiller_1.status", 1, 8, "http", now, 0); err != nil {
		t.Fatalf("unexpected error for legal binary value: %v", err)
	}
}
