// Package tower implements the cooling tower model: condenser water supply
// temperature approaches wet-bulb plus an approach delta that narrows as
// fan speed increases.
package tower

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Params are a cooling tower's static physical constants.
type Params struct {
	CapacityTons float64
	CwSetpoint   float64
	MinApproach  float64 // degF, approach at 100% fan
	MaxApproach  float64 // degF, approach at 0% fan
	CwTempTau    float64
	FanTau       float64
}

// Tower is one cooling tower serving one or more chiller condensers.
type Tower struct {
	Path   string
	Params Params

	cwSupply *registry.Point
	fanSpeed *registry.Point
	fault    *registry.Point

	pi *equipment.PI
}

// New registers a cooling tower's points at path.
func New(reg *registry.Registry, path string, params Params) *Tower {
	t := &Tower{
		Path:     path,
		Params:   params,
		cwSupply: reg.Register(path+".cw_supply_temp", registry.KindAnalog, "degF", false),
		fanSpeed: reg.Register(path+".fan_speed", registry.KindAnalog, "percent", false),
		fault:    reg.Register(path+".fault", registry.KindBinary, "", false),
		pi:       equipment.NewPI(10.0, 1.0, 0, 100),
	}
	t.cwSupply.SetPresentValue(params.CwSetpoint)
	return t
}

// Advance sequences fan speed to hold cw_supply_temp at its setpoint given
// this tick's wet-bulb temperature.
func (t *Tower) Advance(ctx equipment.Context, wetBulbF float64) {
	dt := ctx.DtSeconds()

	currentCw := t.cwSupply.PresentValue()
	fanCmd := t.pi.Update(currentCw-t.Params.CwSetpoint, dt)
	newFanSpeed := equipment.FirstOrder(t.fanSpeed.PresentValue(), fanCmd, dt, t.Params.FanTau)

	approach := t.Params.MaxApproach - (t.Params.MaxApproach-t.Params.MinApproach)*(newFanSpeed/100.0)
	target := wetBulbF + approach
	newCw := equipment.FirstOrder(currentCw, target, dt, t.Params.CwTempTau)

	faulted := 0.0
	if newCw < wetBulbF-5 || newCw > 120 {
		newCw = equipment.Clamp(newCw, wetBulbF, 120)
		faulted = 1
	}

	t.cwSupply.SetPresentValue(newCw)
	t.fanSpeed.SetPresentValue(newFanSpeed)
	t.fault.SetPresentValue(faulted)
}

// CwSupplyTemp returns the tower's current present condenser water supply
// temperature, for the chillers it serves.
func (t *Tower) CwSupplyTemp() float64 { return t.cwSupply.PresentValue() }
