// Package wastewater implements the optional wastewater treatment module:
// a lift station, aeration blowers, a clarifier, and a UV disinfection
// stage interlocked with effluent flow.
package wastewater

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Params are a lift station's static physical constants.
type Params struct {
	WetWellCapacityGal float64
	PumpGPM            float64
	NumPumps           int
	HighLevelPct       float64 // level at which the next pump stages on
	LowLevelPct        float64 // level at which a running pump stages off
}

// LiftStation integrates influent flow against running pumps to track wet
// well level, staging pumps on/off at configured level thresholds.
type LiftStation struct {
	Path   string
	Params Params

	wetWellLevel *registry.Point
	pumpsRunning *registry.Point
	influentGPM  *registry.Point
}

// New registers a lift station's points at path.
func New(reg *registry.Registry, path string, params Params) *LiftStation {
	l := &LiftStation{
		Path:         path,
		Params:       params,
		wetWellLevel: reg.Register(path+".wet_well_level", registry.KindAnalog, "percent", false),
		pumpsRunning: reg.Register(path+".pumps_running", registry.KindAnalog, "", true),
		influentGPM:  reg.Register(path+".influent_gpm", registry.KindAnalog, "gpm", true),
	}
	l.wetWellLevel.SetPresentValue(30)
	l.influentGPM.SetPresentValue(params.PumpGPM * 0.5)
	return l
}

// Advance integrates influent minus pumped-out flow into wet_well_level,
// and stages pumps per the configured high/low thresholds.
func (l *LiftStation) Advance(ctx equipment.Context) {
	dt := ctx.DtSeconds()

	influentGPM, _ := l.influentGPM.EffectiveValue()
	pumpsOverride, hasOverride := l.pumpsRunning.EffectiveValue()

	level := l.wetWellLevel.PresentValue()
	pumpsRunning := int(l.pumpsRunning.PresentValue())
	if hasOverride {
		pumpsRunning = int(pumpsOverride)
	} else {
		if level >= l.Params.HighLevelPct && pumpsRunning < l.Params.NumPumps {
			pumpsRunning++
		} else if level <= l.Params.LowLevelPct && pumpsRunning > 0 {
			pumpsRunning--
		}
	}

	netGPM := influentGPM - float64(pumpsRunning)*l.Params.PumpGPM
	capacityGal := l.Params.WetWellCapacityGal
	levelDeltaPct := netGPM / capacityGal * (dt / 60.0) * 100.0
	newLevel := equipment.Clamp(level+levelDeltaPct, 0, 100)

	l.wetWellLevel.SetPresentValue(newLevel)
	l.pumpsRunning.SetPresentValue(float64(pumpsRunning))
}

// EffluentGPM returns the lift station's current pumped-out flow, feeding
// the blower/clarifier stages downstream.
func (l *LiftStation) EffluentGPM() float64 {
	pumpsRunning := l.pumpsRunning.PresentValue()
	return pumpsRunning * l.Params.PumpGPM
}
