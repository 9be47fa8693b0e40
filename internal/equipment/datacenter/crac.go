package datacenter

import (
	"gonum.org/v1/gonum/stat"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// CRACParams are a CRAC unit's static physical constants.
type CRACParams struct {
	InletSetpoint float64
	SupplyTau     float64
	CoolingKW     float64
}

// CRAC is a Computer Room Air Conditioner sequencing to meet the average
// rack inlet setpoint it's assigned.
type CRAC struct {
	Path   string
	Params CRACParams
	Racks  []*Rack

	supplyTemp  *registry.Point
	coolingLoad *registry.Point
	pue         *registry.Point

	pi *equipment.PI
}

// NewCRAC registers a CRAC's points at path.
func NewCRAC(reg *registry.Registry, path string, params CRACParams, racks []*Rack) *CRAC {
	c := &CRAC{
		Path:        path,
		Params:      params,
		Racks:       racks,
		supplyTemp:  reg.Register(path+".supply_temp", registry.KindAnalog, "degF", false),
		coolingLoad: reg.Register(path+".cooling_load_kw", registry.KindAnalog, "kW", false),
		pue:         reg.Register(path+".pue", registry.KindAnalog, "", false),
		pi:          equipment.NewPI(4.0, 0.1, 55, 75),
	}
	c.supplyTemp.SetPresentValue(params.InletSetpoint)
	return c
}

// Advance sequences supply_temp to hold the average rack inlet at setpoint,
// advances every served rack, and publishes PUE = total_input_kw /
// it_load_kw.
func (c *CRAC) Advance(ctx equipment.Context) {
	dt := ctx.DtSeconds()

	inlets := make([]float64, len(c.Racks))
	for i, r := range c.Racks {
		inlets[i] = r.InletTemp()
	}
	avgInlet := c.Params.InletSetpoint
	if len(inlets) > 0 {
		avgInlet = stat.Mean(inlets, nil)
	}

	cmd := c.pi.Update(avgInlet-c.Params.InletSetpoint, dt)
	newSupply := equipment.FirstOrder(c.supplyTemp.PresentValue(), c.Params.InletSetpoint+cmd*0.1, dt, c.Params.SupplyTau)

	for _, r := range c.Racks {
		r.Advance(ctx, newSupply)
	}

	itLoadTotal := 0.0
	for _, r := range c.Racks {
		itLoadTotal += r.ITLoadKW()
	}
	demandFraction := equipment.Clamp((avgInlet-c.Params.InletSetpoint)/10.0+0.5, 0.1, 1.0)
	coolingKW := c.Params.CoolingKW * demandFraction

	pue := 0.0
	if itLoadTotal > 0 {
		pue = (itLoadTotal + coolingKW) / itLoadTotal
	}

	c.supplyTemp.SetPresentValue(newSupply)
	c.coolingLoad.SetPresentValue(coolingKW)
	c.pue.SetPresentValue(pue)
}

// CoolingLoadKW returns the CRAC's current present cooling load, for the
// electrical meter's data-center draw.
func (c *CRAC) CoolingLoadKW() float64 { return c.coolingLoad.PresentValue() }
