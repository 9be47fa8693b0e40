// Package pump implements the named CHW/HW/CW loop pump model: speed
// command honored directly, flow from a speed/head curve, kW from the
// pump affinity laws.
package pump

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Params are a pump's static physical constants.
type Params struct {
	RatedFlowGPM float64
	RatedHeadFt  float64
	RatedKW      float64
	SpeedTau     float64
}

// Pump is one pump in a named hydronic loop.
type Pump struct {
	Path   string
	Params Params

	speedCommand *registry.Point
	speed        *registry.Point
	flow         *registry.Point
	head         *registry.Point
	kw           *registry.Point
}

// New registers a pump's points at path.
func New(reg *registry.Registry, path string, params Params) *Pump {
	p := &Pump{
		Path:         path,
		Params:       params,
		speedCommand: reg.Register(path+".speed_command", registry.KindAnalog, "percent", true),
		speed:        reg.Register(path+".speed", registry.KindAnalog, "percent", false),
		flow:         reg.Register(path+".flow_gpm", registry.KindAnalog, "gpm", false),
		head:         reg.Register(path+".head_ft", registry.KindAnalog, "ft", false),
		kw:           reg.Register(path+".kw", registry.KindAnalog, "kW", false),
	}
	return p
}

// Advance honors the speed command, computes flow from the speed/head
// curve and downstream demand, and derives kW via the pump affinity laws
// (flow scales with speed, head with speed^2, power with speed^3).
func (p *Pump) Advance(ctx equipment.Context, downstreamDemandFraction float64) {
	dt := ctx.DtSeconds()

	speedCmd, _ := p.speedCommand.EffectiveValue()
	speedCmd = equipment.Clamp(speedCmd, 0, 100)
	newSpeed := equipment.FirstOrder(p.speed.PresentValue(), speedCmd, dt, p.Params.SpeedTau)

	speedFrac := newSpeed / 100.0
	flow := p.Params.RatedFlowGPM * speedFrac * equipment.Clamp(downstreamDemandFraction, 0, 1.2)
	head := p.Params.RatedHeadFt * speedFrac * speedFrac
	kw := p.Params.RatedKW * speedFrac * speedFrac * speedFrac * ctx.Physics.EquipmentEfficiency

	p.speed.SetPresentValue(newSpeed)
	p.flow.SetPresentValue(flow)
	p.head.SetPresentValue(head)
	p.kw.SetPresentValue(kw)
}

// KW returns this pump's current electrical draw, for the main meter.
func (p *Pump) KW() float64 { return p.kw.PresentValue() }
