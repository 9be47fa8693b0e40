package campus

import (
	"testing"
	"time"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

func TestAssembleEachSizeProducesValidTopology(t *testing.T) {
	cases := []struct {
		size      config.CampusSize
		minPoints int
		maxPoints int
	}{
		{config.SizeSmall, 5, 40},
		{config.SizeMedium, 60, 250},
		{config.SizeLarge, 300, 900},
	}

	for _, tc := range cases {
		t.Run(string(tc.size), func(t *testing.T) {
			reg := registry.New()
			c, err := Assemble(reg, tc.size)
			if err != nil {
				t.Fatalf("Assemble(%s) returned error: %v", tc.size, err)
			}
			if c == nil {
				t.Fatal("Assemble returned nil campus with no error")
			}
			n := reg.Len()
			if n < tc.minPoints || n > tc.maxPoints {
				t.Errorf("%s: registered %d points, want between %d and %d", tc.size, n, tc.minPoints, tc.maxPoints)
			}
		})
	}
}

func TestAssembleWiresChillerToTower(t *testing.T) {
	reg := registry.New()
	c, err := Assemble(reg, config.SizeMedium)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(c.Plant.Chillers) == 0 {
		t.Fatal("expected at least one chiller in a Medium campus")
	}
	for i := range c.Plant.Chillers {
		if i >= len(c.Plant.ChillerTower) {
			t.Fatalf("chiller %d has no ChillerTower entry", i)
		}
		towerIdx := c.Plant.ChillerTower[i]
		if towerIdx < 0 || towerIdx >= len(c.Plant.Towers) {
			t.Fatalf("chiller %d maps to out-of-range tower index %d", i, towerIdx)
		}
	}
}

func TestAssembleEveryAHUHasAZone(t *testing.T) {
	reg := registry.New()
	c, err := Assemble(reg, config.SizeLarge)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, b := range c.Buildings {
		for _, a := range b.AHUs {
			if len(a.Zones) == 0 && !a.Params.HundredPercentOA {
				t.Errorf("%s has no zones and isn't 100%%OA", a.Path)
			}
		}
	}
}

func TestCampusAdvanceRunsAFullTickWithoutPanicking(t *testing.T) {
	reg := registry.New()
	c, err := Assemble(reg, config.SizeSmall)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	ctx := equipment.Context{
		Registry: reg,
		Weather: weather.Conditions{
			OAT:             85,
			Humidity:        55,
			WetBulbF:        72,
			SolarIrradiance: 600,
		},
		Physics: config.DefaultPhysicsParams(),
		Now:     time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC),
		Dt:      time.Minute,
	}

	c.Advance(ctx)
	reg.PublishSnapshot()

	snap := reg.Snapshot("CentralPlant.Chiller_1")
	if len(snap) == 0 {
		t.Fatal("expected CentralPlant.Chiller_1 points in the published snapshot")
	}
}

func TestAssembleRejectsNothingForKnownSizes(t *testing.T) {
	for _, size := range []config.CampusSize{config.SizeSmall, config.SizeMedium, config.SizeLarge} {
		reg := registry.New()
		if _, err := Assemble(reg, size); err != nil {
			t.Errorf("Assemble(%s): unexpected error %v", size, err)
		}
	}
}
