package weather

import (
	"testing"
	"time"

	"github.com/basim-project/basim/internal/registry"
)

func TestAdvanceRegistersReadOnlyPoints(t *testing.T) {
	reg := registry.New()
	m := New(reg, 40.0, Normal, 1)

	simTime := time.Date(2026, 7, 15, 15, 0, 0, 0, time.UTC)
	m.Advance(simTime)
	reg.PublishSnapshot()

	snap := reg.Snapshot("Weather.")
	if len(snap) != len(pointPaths) {
		t.Fatalf("expected %d Weather.* points, got %d", len(pointPaths), len(snap))
	}
	for _, path := range pointPaths {
		s, ok := snap[path]
		if !ok {
			t.Fatalf("missing point %s", path)
		}
		if s.Writable {
			t.Fatalf("expected %s to be read-only", path)
		}
	}
}

func TestSnowScenarioClampsOATAndHumidity(t *testing.T) {
	reg := registry.New()
	m := New(reg, 40.0, Snow, 1)

	simTime := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	c := m.Advance(simTime)

	if c.OAT < 20 || c.OAT > 30 {
		t.Fatalf("expected OAT clamped to [20,30], got %v", c.OAT)
	}
	if c.Humidity < 80 {
		t.Fatalf("expected humidity >= 80, got %v", c.Humidity)
	}
}

func TestHeatwaveRaisesOAT(t *testing.T) {
	reg := registry.New()
	normal := New(reg, 30.0, Normal, 1)
	hot := New(registry.New(), 30.0, Heatwave, 1)

	simTime := time.Date(2026, 7, 15, 15, 0, 0, 0, time.UTC)
	cn := normal.Advance(simTime)
	ch := hot.Advance(simTime)

	if ch.OAT <= cn.OAT {
		t.Fatalf("expected heatwave OAT (%v) to exceed normal OAT (%v)", ch.OAT, cn.OAT)
	}
}

func TestValidScenario(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"Normal", true},
		{"Snow", true},
		{"Rainstorm", true},
		{"Windstorm", true},
		{"Thunderstorm", true},
		{"Heatwave", true},
		{"Blizzard", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidScenario(tc.name); got != tc.ok {
			t.Errorf("ValidScenario(%q) = %v, want %v", tc.name, got, tc.ok)
		}
	}
}
