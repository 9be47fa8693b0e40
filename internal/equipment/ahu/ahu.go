// Package ahu implements the air handling unit model: mixes return and
// outside air, commands a cooling or heating coil to hold supply_temp, and
// follows the worst-case (highest-demand) VAV damper for fan speed.
package ahu

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/equipment/zone"
	"github.com/basim-project/basim/internal/registry"
)

// Params are an AHU's static physical constants.
type Params struct {
	SupplyTempSetpoint float64 // degF
	EconomizerHighLimit float64 // degF OAT above which economizer is disabled
	MaxSupplyFlowCFM   float64
	CoilTau            float64 // seconds
	FanTau             float64
	HundredPercentOA   bool // true for dedicated-OA AHUs with no recirculation
}

// AHU is one air handling unit serving a set of VAV/zone pairs.
type AHU struct {
	Path   string
	Params Params
	Zones  []*zone.Zone

	supplyTemp       *registry.Point
	supplyTempSP     *registry.Point
	fanSpeed         *registry.Point
	mixedAirTemp     *registry.Point
	outsideAirDamper *registry.Point
	coilCommand      *registry.Point
	filterDP         *registry.Point
	fault            *registry.Point

	coilPI *equipment.PI

	runtimeHours float64
}

// New registers an AHU's points at path.
func New(reg *registry.Registry, path string, params Params, zones []*zone.Zone) *AHU {
	a := &AHU{
		Path:             path,
		Params:           params,
		Zones:            zones,
		supplyTemp:       reg.Register(path+".supply_temp", registry.KindAnalog, "degF", false),
		supplyTempSP:     reg.Register(path+".supply_temp_setpoint", registry.KindAnalog, "degF", true),
		fanSpeed:         reg.Register(path+".fan_speed", registry.KindAnalog, "percent", false),
		mixedAirTemp:     reg.Register(path+".mixed_air_temp", registry.KindAnalog, "degF", false),
		outsideAirDamper: reg.Register(path+".outside_air_damper", registry.KindAnalog, "percent", true),
		coilCommand:      reg.Register(path+".coil_command", registry.KindAnalog, "percent", false),
		filterDP:         reg.Register(path+".filter_dp", registry.KindAnalog, "inWC", false),
		fault:            reg.Register(path+".fault", registry.KindBinary, "", false),
		coilPI:           equipment.NewPI(5.0, 0.2, -100, 100),
	}
	a.supplyTemp.SetPresentValue(55.0)
	a.supplyTempSP.SetPresentValue(params.SupplyTempSetpoint)
	return a
}

func enthalpyApprox(tempF, relHumidityFraction float64) float64 {
	// Rough proxy sufficient for an economizer comparison: enthalpy rises
	// with both temperature and humidity.
	return tempF + relHumidityFraction*40.0
}

// Advance commands the coil and mixing dampers to hold supply_temp at its
// setpoint, computes fan speed from the worst-case VAV damper demand, and
// advances the zones this AHU serves.
func (a *AHU) Advance(ctx equipment.Context, returnAirTemp float64) {
	dt := ctx.DtSeconds()

	setpoint, _ := a.supplyTempSP.EffectiveValue()

	outsideEnthalpy := enthalpyApprox(ctx.Weather.OAT, ctx.Weather.Humidity/100.0)
	returnEnthalpy := enthalpyApprox(returnAirTemp, 0.45)

	oaDamperPct := 20.0 // minimum outside air by default
	economizerActive := !a.Params.HundredPercentOA &&
		outsideEnthalpy < returnEnthalpy &&
		ctx.Weather.OAT < a.Params.EconomizerHighLimit

	if a.Params.HundredPercentOA {
		oaDamperPct = 100
	} else if economizerActive {
		// Open OA damper as far as needed to reach the supply setpoint
		// without mechanical cooling, bounded to [20,100].
		if ctx.Weather.OAT < setpoint {
			oaDamperPct = 100
		} else {
			oaDamperPct = equipment.Clamp(100-(ctx.Weather.OAT-setpoint)*5, 20, 100)
		}
	}
	if oaOverride, ok := a.outsideAirDamper.EffectiveValue(); ok {
		oaDamperPct = oaOverride
	}

	mixedAirTemp := returnAirTemp + (ctx.Weather.OAT-returnAirTemp)*(oaDamperPct/100.0)

	coilCmd := a.coilPI.Update(setpoint-a.supplyTemp.PresentValue(), dt)
	var target float64
	if economizerActive && coilCmd <= 0 {
		target = mixedAirTemp
	} else {
		// Positive coilCmd asks for heating, negative asks for cooling;
		// either way the coil drives supply_temp toward its setpoint.
		target = mixedAirTemp + coilCmd*0.3
	}

	newSupplyTemp := equipment.FirstOrder(a.supplyTemp.PresentValue(), target, dt, a.Params.CoilTau)

	worstDamper := 0.0
	for _, z := range a.Zones {
		if d := z.DamperPosition(); d > worstDamper {
			worstDamper = d
		}
	}
	newFanSpeed := equipment.FirstOrder(a.fanSpeed.PresentValue(), worstDamper, dt, a.Params.FanTau)

	a.runtimeHours += dt / 3600.0
	filterDP := 0.1 + a.runtimeHours*0.0005

	faulted := 0.0
	if newSupplyTemp < -20 || newSupplyTemp > 150 {
		newSupplyTemp = equipment.Clamp(newSupplyTemp, -20, 150)
		faulted = 1
	}

	a.supplyTemp.SetPresentValue(newSupplyTemp)
	a.fanSpeed.SetPresentValue(newFanSpeed)
	a.mixedAirTemp.SetPresentValue(mixedAirTemp)
	a.outsideAirDamper.SetPresentValue(oaDamperPct)
	a.coilCommand.SetPresentValue(coilCmd)
	a.filterDP.SetPresentValue(filterDP)
	a.fault.SetPresentValue(faulted)

	supplyFlowCapacity := a.Params.MaxSupplyFlowCFM * newFanSpeed / 100.0
	scheduledMode := zoneScheduledMode(ctx)
	for _, z := range a.Zones {
		z.Advance(ctx, newSupplyTemp, supplyFlowCapacity, scheduledMode)
	}
}

func zoneScheduledMode(ctx equipment.Context) zone.OccupancyMode {
	return zone.ScheduledMode(ctx.Now)
}

// SupplyTemp returns the AHU's current present supply air temperature.
func (a *AHU) SupplyTemp() float64 { return a.supplyTemp.PresentValue() }

// FanSpeed returns the AHU's current present fan speed, as a 0..100
// percentage, for the main meter's fan power estimate.
func (a *AHU) FanSpeed() float64 { return a.fanSpeed.PresentValue() }
