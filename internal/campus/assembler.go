package campus

import (
	"fmt"

	"github.com/basim-project/basim/internal/equipment/ahu"
	"github.com/basim-project/basim/internal/equipment/boiler"
	"github.com/basim-project/basim/internal/equipment/chiller"
	"github.com/basim-project/basim/internal/equipment/datacenter"
	"github.com/basim-project/basim/internal/equipment/electrical"
	"github.com/basim-project/basim/internal/equipment/pump"
	"github.com/basim-project/basim/internal/equipment/tower"
	"github.com/basim-project/basim/internal/equipment/wastewater"
	"github.com/basim-project/basim/internal/equipment/zone"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/pkg/config"
)

// Assemble instantiates a full campus for size from the size profile,
// registering every exposed field as a point in reg and wiring equipment
// references (VAV->AHU->Building; chiller<->tower<->CHW/CW pumps;
// solar->main_meter). Returns a *TopologyError if the resulting structure
// violates the invariants validate checks.
func Assemble(reg *registry.Registry, size config.CampusSize) (*Campus, error) {
	profile := ProfileFor(size)

	c := &Campus{}

	c.Plant = assemblePlant(reg, profile)
	c.Electrical = assembleElectrical(reg, profile)

	for bIdx := 1; bIdx <= profile.Buildings; bIdx++ {
		bName := fmt.Sprintf("Building_%d", bIdx)
		building := &Building{Name: bName}

		for aIdx := 1; aIdx <= profile.AHUsPerBldg; aIdx++ {
			ahuName := fmt.Sprintf("AHU_%d", aIdx)
			ahuPath := bName + "." + ahuName

			var zones []*zone.Zone
			for vIdx := 1; vIdx <= profile.VAVsPerAHU; vIdx++ {
				vavPath := fmt.Sprintf("%s.VAV_%d%02d", ahuPath, aIdx, vIdx)
				z := zone.New(reg, vavPath, zoneParams())
				zones = append(zones, z)
				c.AllZones = append(c.AllZones, z)
			}

			a := ahu.New(reg, ahuPath, ahuParams(), zones)
			building.AHUs = append(building.AHUs, a)
		}

		c.Electrical.Transformers = append(c.Electrical.Transformers,
			electrical.NewTransformer(reg, bName+".Transformer", 500))

		c.Buildings = append(c.Buildings, building)
	}

	if profile.HasDataCenter {
		c.DataCenter = assembleDataCenter(reg, profile)
	}
	if profile.HasWastewater {
		c.Wastewater = assembleWastewater(reg)
	}

	if err := validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func assemblePlant(reg *registry.Registry, profile Profile) *CentralPlant {
	plant := &CentralPlant{}

	for i := 1; i <= profile.Towers; i++ {
		plant.Towers = append(plant.Towers, tower.New(reg, fmt.Sprintf("CentralPlant.Tower_%d", i), towerParams()))
	}

	for i := 1; i <= profile.Chillers; i++ {
		params := chillerParams()
		params.Rank = i
		plant.Chillers = append(plant.Chillers, chiller.New(reg, fmt.Sprintf("CentralPlant.Chiller_%d", i), params))
		// Round-robin onto towers so every chiller has a condenser-side tower.
		towerIdx := (i - 1) % len(plant.Towers)
		plant.ChillerTower = append(plant.ChillerTower, towerIdx)
	}

	for i := 1; i <= profile.Boilers; i++ {
		plant.Boilers = append(plant.Boilers, boiler.New(reg, fmt.Sprintf("CentralPlant.Boiler_%d", i), boilerParams()))
	}

	for i := 1; i <= profile.PumpsPerLoop; i++ {
		plant.CHWPumps = append(plant.CHWPumps, pump.New(reg, fmt.Sprintf("CentralPlant.CHWPump_%d", i), pumpParams()))
		plant.HWPumps = append(plant.HWPumps, pump.New(reg, fmt.Sprintf("CentralPlant.HWPump_%d", i), pumpParams()))
		plant.CWPumps = append(plant.CWPumps, pump.New(reg, fmt.Sprintf("CentralPlant.CWPump_%d", i), pumpParams()))
	}

	return plant
}

func assembleElectrical(reg *registry.Registry, profile Profile) *ElectricalSystem {
	solarCapacity := 50.0 * float64(profile.Buildings)
	return &ElectricalSystem{
		MainMeter: electrical.NewMeter(reg, "Electrical.MainMeter"),
		Solar:     electrical.NewSolar(reg, "Electrical.Solar", solarCapacity),
		UPS:       electrical.NewUPS(reg, "Electrical.UPS", electrical.UPSParams{CapacityKWh: 200}),
		Generator: electrical.NewGenerator(reg, "Electrical.Generator", electrical.GeneratorParamsDefault()),
	}
}

func assembleDataCenter(reg *registry.Registry, profile Profile) *DataCenter {
	dc := &DataCenter{}
	for cIdx := 1; cIdx <= profile.CRACs; cIdx++ {
		var racks []*datacenter.Rack
		for rIdx := 1; rIdx <= profile.RacksPerCRAC; rIdx++ {
			path := fmt.Sprintf("DataCenter.CRAC_%d.Rack_%d", cIdx, rIdx)
			racks = append(racks, datacenter.New(reg, path, rackParams()))
		}
		cracPath := fmt.Sprintf("DataCenter.CRAC_%d", cIdx)
		dc.CRACs = append(dc.CRACs, datacenter.NewCRAC(reg, cracPath, cracParams(), racks))
	}
	return dc
}

func assembleWastewater(reg *registry.Registry) *WastewaterPlant {
	return &WastewaterPlant{
		LiftStation: wastewater.New(reg, "Wastewater.LiftStation", liftStationParams()),
		Blower:      wastewater.NewBlower(reg, "Wastewater.Blower_1", blowerParams()),
		Clarifier:   wastewater.NewClarifier(reg, "Wastewater.Clarifier_1", clarifierParams()),
		UV:          wastewater.NewUV(reg, "Wastewater.UV_1", 50.0),
	}
}

// validate checks the structural invariants the specification requires:
// every AHU has >=1 VAV (BASim never assembles a dedicated-OA, zero-VAV
// AHU), every chiller has a condenser-side tower, and every pump belongs
// to a named loop (CHW/HW/CW, enforced by construction above).
func validate(c *Campus) error {
	for _, b := range c.Buildings {
		for _, a := range b.AHUs {
			if len(a.Zones) == 0 && !a.Params.HundredPercentOA {
				return &TopologyError{Reason: fmt.Sprintf("%s has no VAVs and is not 100%%OA", a.Path)}
			}
		}
	}
	if len(c.Plant.Chillers) > 0 && len(c.Plant.Towers) == 0 {
		return &TopologyError{Reason: "chillers present with no condenser-side towers"}
	}
	for i := range c.Plant.Chillers {
		if i >= len(c.Plant.ChillerTower) || c.Plant.ChillerTower[i] >= len(c.Plant.Towers) {
			return &TopologyError{Reason: fmt.Sprintf("chiller %d has no assigned tower", i+1)}
		}
	}
	return nil
}
