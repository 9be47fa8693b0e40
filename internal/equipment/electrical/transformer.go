package electrical

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Transformer is a step-down distribution transformer feeding a building
// or data center PDU, modeling load loss and winding temperature rise.
// Not named directly in the original point model but a natural extension
// of the Electrical System: every building's feed passes through one.
type Transformer struct {
	Path         string
	CapacityKVA  float64
	LossFraction float64 // fraction of throughput lost as heat

	loadKW   *registry.Point
	lossKW   *registry.Point
	tempRise *registry.Point
	tapPos   *registry.Point
	fault    *registry.Point
}

// NewTransformer registers a transformer's points at path.
func NewTransformer(reg *registry.Registry, path string, capacityKVA float64) *Transformer {
	t := &Transformer{
		Path:         path,
		CapacityKVA:  capacityKVA,
		LossFraction: 0.02,
		loadKW:       reg.Register(path+".load_kw", registry.KindAnalog, "kW", false),
		lossKW:       reg.Register(path+".loss_kw", registry.KindAnalog, "kW", false),
		tempRise:     reg.Register(path+".winding_temp_rise", registry.KindAnalog, "degF", false),
		tapPos:       reg.Register(path+".tap_position", registry.KindMultiState, "", true),
		fault:        reg.Register(path+".fault", registry.KindBinary, "", false),
	}
	t.tapPos.SetPresentValue(3) // nominal tap, of 5 positions (0..4)
	return t
}

// Advance computes winding loss and temperature rise from downstreamKW.
func (t *Transformer) Advance(ctx equipment.Context, downstreamKW float64) {
	loadFraction := equipment.Clamp(downstreamKW/(t.CapacityKVA*0.92), 0, 1.3)
	lossKW := downstreamKW * t.LossFraction * (1 + loadFraction)
	tempRise := 40.0 * loadFraction * loadFraction

	faulted := 0.0
	if loadFraction > 1.2 {
		faulted = 1
	}

	t.loadKW.SetPresentValue(downstreamKW)
	t.lossKW.SetPresentValue(lossKW)
	t.tempRise.SetPresentValue(tempRise)
	t.fault.SetPresentValue(faulted)
}
