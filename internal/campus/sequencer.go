package campus

import (
	"time"

	"github.com/basim-project/basim/internal/equipment"
)

// campusCoolingDemandTons estimates total campus cooling demand from
// outside air temperature: negligible below 60degF, ramping to full plant
// capacity by 95degF. A crude proxy in place of a full per-zone load
// rollup, but enough to drive realistic chiller staging behavior.
func campusCoolingDemandTons(ctx equipment.Context, p *CentralPlant) float64 {
	capacity := plantCapacityTons(p)
	if capacity == 0 {
		return 0
	}
	frac := equipment.Clamp((ctx.Weather.OAT-60.0)/35.0, 0, 1)
	return capacity * frac
}

// campusHeatingDemandMBH is campusCoolingDemandTons's heating-side mirror:
// negligible above 60degF, ramping to full boiler-plant capacity by 10degF.
func campusHeatingDemandMBH(ctx equipment.Context, p *CentralPlant) float64 {
	capacity := plantHeatingCapacityMBH(p)
	if capacity == 0 {
		return 0
	}
	frac := equipment.Clamp((60.0-ctx.Weather.OAT)/50.0, 0, 1)
	return capacity * frac
}

func plantCapacityTons(p *CentralPlant) float64 {
	total := 0.0
	for _, ch := range p.Chillers {
		total += ch.Params.CapacityTons
	}
	return total
}

func plantHeatingCapacityMBH(p *CentralPlant) float64 {
	total := 0.0
	for _, b := range p.Boilers {
		total += b.Params.CapacityMBH
	}
	return total
}

func enabledCount(p *CentralPlant) int {
	n := 0
	for _, ch := range p.Chillers {
		if ch.Enabled() {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// minStageTime bounds how often the sequencer can stage a chiller on or
// off, preventing short-cycling when load hovers near a staging threshold.
const minStageTime = 5 * time.Minute

// sequencePlant stages chillers on/off by rank: bring the next-ranked
// chiller online once every currently enabled chiller is loaded to
// stageUpThreshold, and take the highest-ranked enabled chiller offline
// once the remaining fleet can carry the load at or below
// stageDownThreshold. Boilers are not staged: each boiler's status is left
// as it is and every boiler receives an equal share of the heating demand.
const (
	stageUpThreshold   = 90.0
	stageDownThreshold = 80.0
)

func sequencePlant(c *CentralPlant, now time.Time) {
	sequenceChillers(c, now)
}

func sequenceChillers(c *CentralPlant, now time.Time) {
	chillers := c.Chillers
	if len(chillers) == 0 {
		return
	}

	enabledCount := 0
	allLoaded := true
	for _, ch := range chillers {
		if !ch.Enabled() {
			continue
		}
		enabledCount++
		if ch.LoadPercent() < stageUpThreshold {
			allLoaded = false
		}
	}
	if enabledCount == 0 {
		chillers[0].SetEnabled(true, now)
		c.chillerLoadedSince = time.Time{}
		return
	}

	if allLoaded && enabledCount < len(chillers) {
		if c.chillerLoadedSince.IsZero() {
			c.chillerLoadedSince = now
		}
		if now.Sub(c.chillerLoadedSince) >= minStageTime {
			chillers[enabledCount].SetEnabled(true, now)
			c.chillerLoadedSince = time.Time{}
		}
		return
	}
	c.chillerLoadedSince = time.Time{}

	if enabledCount <= 1 {
		c.chillerUnloadedSince = time.Time{}
		return
	}
	totalLoadPercent := 0.0
	for _, ch := range chillers {
		if ch.Enabled() {
			totalLoadPercent += ch.LoadPercent()
		}
	}
	carriedByOneFewer := totalLoadPercent / float64(enabledCount-1)
	if carriedByOneFewer > stageDownThreshold {
		c.chillerUnloadedSince = time.Time{}
		return
	}
	if c.chillerUnloadedSince.IsZero() {
		c.chillerUnloadedSince = now
	}
	if now.Sub(c.chillerUnloadedSince) >= minStageTime {
		for i := len(chillers) - 1; i >= 0; i-- {
			if chillers[i].Enabled() {
				chillers[i].SetEnabled(false, now)
				break
			}
		}
		c.chillerUnloadedSince = time.Time{}
	}
}
