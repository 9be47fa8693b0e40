package wastewater

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// BlowerParams are an aeration blower's static physical constants.
type BlowerParams struct {
	DOSetpoint float64 // mg/L dissolved oxygen target
	DOTau      float64 // seconds, first-order DO response to airflow
	MaxAirflowSCFM float64
}

// Blower modulates airflow to hold dissolved oxygen at setpoint in the
// aeration basin.
type Blower struct {
	Path   string
	Params BlowerParams

	doLevel  *registry.Point
	airflow  *registry.Point
	doSetpoint *registry.Point

	pi *equipment.PI
}

// NewBlower registers a blower's points at path.
func NewBlower(reg *registry.Registry, path string, params BlowerParams) *Blower {
	b := &Blower{
		Path:       path,
		Params:     params,
		doLevel:    reg.Register(path+".do_level", registry.KindAnalog, "mg/L", false),
		airflow:    reg.Register(path+".airflow_scfm", registry.KindAnalog, "scfm", false),
		doSetpoint: reg.Register(path+".do_setpoint", registry.KindAnalog, "mg/L", true),
		pi:         equipment.NewPI(50.0, 2.0, 0, 1),
	}
	b.doLevel.SetPresentValue(params.DOSetpoint)
	b.doSetpoint.SetPresentValue(params.DOSetpoint)
	return b
}

// Advance modulates airflow to the current DO setpoint (honoring an
// override) and lets dissolved oxygen respond first-order to that airflow.
func (b *Blower) Advance(ctx equipment.Context) {
	dt := ctx.DtSeconds()

	setpoint, _ := b.doSetpoint.EffectiveValue()
	currentDO := b.doLevel.PresentValue()

	airflowFraction := b.pi.Update(setpoint-currentDO, dt)
	airflow := airflowFraction * b.Params.MaxAirflowSCFM

	targetDO := setpoint * equipment.Clamp(airflowFraction*1.2, 0, 1.5)
	newDO := equipment.FirstOrder(currentDO, targetDO, dt, b.Params.DOTau)

	b.doLevel.SetPresentValue(newDO)
	b.airflow.SetPresentValue(airflow)
}
