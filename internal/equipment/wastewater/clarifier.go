package wastewater

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// ClarifierParams are a secondary clarifier's static physical constants.
type ClarifierParams struct {
	CapacityMGD     float64
	UnderflowFraction float64 // fraction of solids removed via underflow each tick
}

// Clarifier integrates solids entering against underflow removal to track
// the sludge blanket depth.
type Clarifier struct {
	Path   string
	Params ClarifierParams

	sludgeBlanket *registry.Point
	underflowGPM  *registry.Point
	effluentFlow  *registry.Point
}

// NewClarifier registers a clarifier's points at path.
func NewClarifier(reg *registry.Registry, path string, params ClarifierParams) *Clarifier {
	c := &Clarifier{
		Path:          path,
		Params:        params,
		sludgeBlanket: reg.Register(path+".sludge_blanket_ft", registry.KindAnalog, "ft", false),
		underflowGPM:  reg.Register(path+".underflow_gpm", registry.KindAnalog, "gpm", false),
		effluentFlow:  reg.Register(path+".effluent_flow_gpm", registry.KindAnalog, "gpm", false),
	}
	c.sludgeBlanket.SetPresentValue(2.0)
	return c
}

// Advance integrates influent solids against underflow removal and passes
// the remaining flow through as effluent.
func (c *Clarifier) Advance(ctx equipment.Context, influentGPM float64) {
	dt := ctx.DtSeconds()

	underflowGPM := influentGPM * c.Params.UnderflowFraction
	effluentGPM := influentGPM - underflowGPM

	solidsInRate := influentGPM * 0.0002 // ft of blanket growth per gpm-minute, lumped constant
	solidsOutRate := underflowGPM * 0.00025

	blanket := c.sludgeBlanket.PresentValue()
	newBlanket := equipment.Clamp(blanket+(solidsInRate-solidsOutRate)*(dt/60.0), 0, 15)

	c.sludgeBlanket.SetPresentValue(newBlanket)
	c.underflowGPM.SetPresentValue(underflowGPM)
	c.effluentFlow.SetPresentValue(effluentGPM)
}

// EffluentGPM returns the clarifier's current present effluent flow.
func (c *Clarifier) EffluentGPM() float64 { return c.effluentFlow.PresentValue() }
