// Package boiler implements the heating plant's boiler model, symmetric to
// the chiller model on the heating side.
package boiler

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Params are a boiler's static physical constants.
type Params struct {
	CapacityMBH   float64 // thousand BTU/h
	LHV           float64 // gas lower heating value, BTU/cf
	Efficiency    float64 // combustion efficiency, 0..1
	HwSetpoint    float64
	LoadTau       float64
	HwTempTau     float64
}

// Boiler is one boiler in the central plant.
type Boiler struct {
	Path   string
	Params Params

	status      *registry.Point
	firingRate  *registry.Point
	gasFlow     *registry.Point
	hwSupply    *registry.Point
	hwSetpoint  *registry.Point
	fault       *registry.Point
}

// New registers a boiler's points at path.
func New(reg *registry.Registry, path string, params Params) *Boiler {
	b := &Boiler{
		Path:       path,
		Params:     params,
		status:     reg.Register(path+".status", registry.KindBinary, "", true),
		firingRate: reg.Register(path+".firing_rate", registry.KindAnalog, "percent", false),
		gasFlow:    reg.Register(path+".gas_flow_cfh", registry.KindAnalog, "cfh", false),
		hwSupply:   reg.Register(path+".hw_supply_temp", registry.KindAnalog, "degF", false),
		hwSetpoint: reg.Register(path+".hw_supply_temp_setpoint", registry.KindAnalog, "degF", true),
		fault:      reg.Register(path+".fault", registry.KindBinary, "", false),
	}
	b.status.SetPresentValue(1)
	b.hwSupply.SetPresentValue(params.HwSetpoint)
	b.hwSetpoint.SetPresentValue(params.HwSetpoint)
	return b
}

// Advance runs one tick given this boiler's share of requested heating MBH.
func (b *Boiler) Advance(ctx equipment.Context, requestedMBH float64) {
	dt := ctx.DtSeconds()

	statusVal, _ := b.status.EffectiveValue()
	running := statusVal != 0

	targetFiring := 0.0
	if running {
		targetFiring = equipment.Clamp(requestedMBH/b.Params.CapacityMBH*100.0, 0, 110)
	}
	newFiring := equipment.FirstOrder(b.firingRate.PresentValue(), targetFiring, dt, b.Params.LoadTau)

	gasFlowCFH := 0.0
	if running {
		firingMBH := newFiring / 100.0 * b.Params.CapacityMBH
		gasFlowCFH = firingMBH * 1000.0 / b.Params.LHV / (b.Params.Efficiency * ctx.Physics.EquipmentEfficiency)
	}

	setpoint, _ := b.hwSetpoint.EffectiveValue()
	target := setpoint
	if !running {
		target = ctx.Weather.OAT + 40 // idle boiler drifts toward building loop ambient
	} else if newFiring > 100 {
		target = setpoint + (newFiring-100)*0.1
	}
	newHw := equipment.FirstOrder(b.hwSupply.PresentValue(), target, dt, b.Params.HwTempTau)

	faulted := 0.0
	if newHw < 32 || newHw > 250 {
		newHw = equipment.Clamp(newHw, 32, 250)
		faulted = 1
	}

	b.firingRate.SetPresentValue(newFiring)
	b.gasFlow.SetPresentValue(gasFlowCFH)
	b.hwSupply.SetPresentValue(newHw)
	b.fault.SetPresentValue(faulted)
}
