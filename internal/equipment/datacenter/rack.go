// Package datacenter implements the optional data center module: server
// racks with IT load, and CRAC units sequencing supply air to meet an
// average rack inlet setpoint.
package datacenter

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Params are a rack's static physical constants.
type Params struct {
	ITLoadKW        float64
	RecirculationF  float64 // degF added to CRAC supply from hot-aisle mixing
	ThermalGainK    float64 // degF outlet rise per kW of IT load
}

// Rack is one server rack in the data center.
type Rack struct {
	Path   string
	Params Params

	inletTemp  *registry.Point
	outletTemp *registry.Point
	itLoad     *registry.Point
}

// New registers a rack's points at path.
func New(reg *registry.Registry, path string, params Params) *Rack {
	r := &Rack{
		Path:       path,
		Params:     params,
		inletTemp:  reg.Register(path+".inlet_temp", registry.KindAnalog, "degF", false),
		outletTemp: reg.Register(path+".outlet_temp", registry.KindAnalog, "degF", false),
		itLoad:     reg.Register(path+".it_load_kw", registry.KindAnalog, "kW", true),
	}
	r.itLoad.SetPresentValue(params.ITLoadKW)
	return r
}

// Advance computes inlet/outlet temperature from the CRAC's current supply
// temperature and this rack's IT load.
func (r *Rack) Advance(ctx equipment.Context, cracSupplyTempF float64) {
	itLoad, _ := r.itLoad.EffectiveValue()
	inlet := cracSupplyTempF + r.Params.RecirculationF
	outlet := inlet + itLoad*r.Params.ThermalGainK

	r.inletTemp.SetPresentValue(inlet)
	r.outletTemp.SetPresentValue(outlet)
}

// InletTemp returns the rack's current present inlet temperature, for the
// CRAC's average-inlet sequencing.
func (r *Rack) InletTemp() float64 { return r.inletTemp.PresentValue() }

// ITLoadKW returns the rack's current (possibly overridden) IT load.
func (r *Rack) ITLoadKW() float64 {
	v, _ := r.itLoad.EffectiveValue()
	return v
}
