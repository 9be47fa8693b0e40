package campus

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/equipment/zone"
)

// exteriorLightingKW is the site/parking-lot lighting load carried while
// Weather.is_daytime is false.
const exteriorLightingKW = 20.0

// Advance runs one simulation tick across the whole campus, in the order
// AHUs (each advancing its zones) -> plant sequencer -> towers -> chillers
// -> boilers -> loop pumps -> solar -> data center CRACs -> wastewater ->
// UPS and generator -> main meter -> transformers. The data center and
// wastewater therefore advance before, not after, the electrical
// equipment. ctx.Weather must already carry
// this tick's conditions; the caller (the tick driver) is responsible for
// advancing the weather model first.
func (c *Campus) Advance(ctx equipment.Context) {
	for _, b := range c.Buildings {
		for _, a := range b.AHUs {
			a.Advance(ctx, returnAirTemp(a.Zones))
		}
	}

	sequencePlant(c.Plant, ctx.Now)

	for _, t := range c.Plant.Towers {
		t.Advance(ctx, ctx.Weather.WetBulbF)
	}

	coolingDemandTons := campusCoolingDemandTons(ctx, c.Plant)
	heatingDemandMBH := campusHeatingDemandMBH(ctx, c.Plant)

	for i, ch := range c.Plant.Chillers {
		share := 0.0
		if ch.Enabled() {
			share = coolingDemandTons / float64(enabledCount(c.Plant))
		}
		towerIdx := c.Plant.ChillerTower[i]
		ch.Advance(ctx, share, c.Plant.Towers[towerIdx].CwSupplyTemp())
	}

	for _, bl := range c.Plant.Boilers {
		share := heatingDemandMBH / float64(len(c.Plant.Boilers))
		bl.Advance(ctx, share)
	}

	loopDemandFraction := equipment.Clamp(coolingDemandTons/plantCapacityTons(c.Plant), 0.1, 1.2)
	for _, p := range c.Plant.CHWPumps {
		p.Advance(ctx, loopDemandFraction)
	}
	for _, p := range c.Plant.CWPumps {
		p.Advance(ctx, loopDemandFraction)
	}
	heatLoopFraction := equipment.Clamp(heatingDemandMBH/plantHeatingCapacityMBH(c.Plant), 0.1, 1.2)
	for _, p := range c.Plant.HWPumps {
		p.Advance(ctx, heatLoopFraction)
	}

	c.Electrical.Solar.Advance(ctx)

	draws := []float64{100.0} // baseline lighting/plug load
	if !ctx.Weather.IsDaytime {
		draws = append(draws, exteriorLightingKW) // site/parking lighting comes on after dark
	}
	for _, ch := range c.Plant.Chillers {
		draws = append(draws, ch.KW())
	}
	for _, p := range c.Plant.CHWPumps {
		draws = append(draws, p.KW())
	}
	for _, p := range c.Plant.HWPumps {
		draws = append(draws, p.KW())
	}
	for _, p := range c.Plant.CWPumps {
		draws = append(draws, p.KW())
	}
	for _, b := range c.Buildings {
		for _, a := range b.AHUs {
			draws = append(draws, a.FanSpeed()/100.0*15.0)
		}
	}

	if c.DataCenter != nil {
		for _, cr := range c.DataCenter.CRACs {
			cr.Advance(ctx)
			draws = append(draws, cr.CoolingLoadKW())
		}
	}

	if c.Wastewater != nil {
		c.Wastewater.LiftStation.Advance(ctx)
		c.Wastewater.Blower.Advance(ctx)
		c.Wastewater.Clarifier.Advance(ctx, c.Wastewater.LiftStation.EffluentGPM())
		c.Wastewater.UV.Advance(c.Wastewater.Clarifier.EffluentGPM())
	}

	brownout := ctx.Weather.BrownoutActive
	gridConnected := c.Electrical.MainMeter.GridConnected() && !brownout

	totalDemandKW := 0.0
	for _, d := range draws {
		totalDemandKW += d
	}
	c.Electrical.UPS.Advance(ctx, gridConnected, totalDemandKW)
	c.Electrical.Generator.Advance(ctx, gridConnected, totalDemandKW)

	c.Electrical.MainMeter.Advance(ctx, draws, c.Electrical.Solar.OutputKW(), brownout)

	for _, tr := range c.Electrical.Transformers {
		tr.Advance(ctx, totalDemandKW/float64(len(c.Buildings)))
	}
}

func returnAirTemp(zones []*zone.Zone) float64 {
	if len(zones) == 0 {
		return 75.0
	}
	total := 0.0
	for _, z := range zones {
		total += z.RoomTemp()
	}
	return total / float64(len(zones))
}
