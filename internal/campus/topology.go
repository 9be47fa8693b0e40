// Package campus assembles a full BASim campus from a size profile: every
// building, AHU, VAV/zone, central-plant component, electrical component,
// and optional data center/wastewater plant, each registered into the point
// registry with its dotted path, and wired together by reference.
package campus

import (
	"time"

	"github.com/basim-project/basim/internal/equipment/ahu"
	"github.com/basim-project/basim/internal/equipment/boiler"
	"github.com/basim-project/basim/internal/equipment/chiller"
	"github.com/basim-project/basim/internal/equipment/datacenter"
	"github.com/basim-project/basim/internal/equipment/electrical"
	"github.com/basim-project/basim/internal/equipment/pump"
	"github.com/basim-project/basim/internal/equipment/tower"
	"github.com/basim-project/basim/internal/equipment/wastewater"
	"github.com/basim-project/basim/internal/equipment/zone"
)

// Building owns a set of AHUs (which each own their VAV/zone pairs).
type Building struct {
	Name string
	AHUs []*ahu.AHU
}

// CentralPlant owns the chillers, boilers, cooling towers and hydronic
// loop pumps that serve every building.
type CentralPlant struct {
	Chillers  []*chiller.Chiller
	Boilers   []*boiler.Boiler
	Towers    []*tower.Tower
	CHWPumps  []*pump.Pump
	HWPumps   []*pump.Pump
	CWPumps   []*pump.Pump

	// ChillerTower maps each chiller index to its condenser-side tower
	// index — every chiller has exactly one (validated at assembly).
	ChillerTower []int

	// chillerLoadedSince and chillerUnloadedSince track how long the
	// enabled chiller fleet has continuously sat at or above the
	// stage-up threshold, or at or below the stage-down threshold,
	// so sequenceChillers can require the condition to hold for
	// minStageTime before staging (zero means "not currently holding").
	chillerLoadedSince   time.Time
	chillerUnloadedSince time.Time
}

// ElectricalSystem owns the campus main meter, solar array, UPS,
// generator, and one distribution transformer per building.
type ElectricalSystem struct {
	MainMeter     *electrical.Meter
	Solar         *electrical.Solar
	UPS           *electrical.UPS
	Generator     *electrical.Generator
	Transformers  []*electrical.Transformer
}

// DataCenter owns the optional data center module.
type DataCenter struct {
	CRACs []*datacenter.CRAC
}

// WastewaterPlant owns the optional wastewater treatment module.
type WastewaterPlant struct {
	LiftStation *wastewater.LiftStation
	Blower      *wastewater.Blower
	Clarifier   *wastewater.Clarifier
	UV          *wastewater.UV
}

// Campus is the fully assembled simulation world: every piece of equipment,
// wired together, with every field registered as a point.
type Campus struct {
	Buildings   []*Building
	Plant       *CentralPlant
	Electrical  *ElectricalSystem
	DataCenter  *DataCenter // nil if the profile has none
	Wastewater  *WastewaterPlant // nil if the profile has none

	// AllZones flattens every zone across every building; the HTTP status
	// summary reads it. Zones are advanced through their owning AHU.
	AllZones []*zone.Zone
}
