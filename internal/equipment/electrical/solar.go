package electrical

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Solar is a rooftop/ground-mount solar array feeding the main meter.
type Solar struct {
	Path         string
	CapacityKW   float64
	TempDerateF  float64 // panel temperature above which derating starts

	outputKW  *registry.Point
	panelTemp *registry.Point
}

// NewSolar registers a solar array's points at path.
func NewSolar(reg *registry.Registry, path string, capacityKW float64) *Solar {
	return &Solar{
		Path:       path,
		CapacityKW: capacityKW,
		TempDerateF: 95.0,
		outputKW:   reg.Register(path+".output_kw", registry.KindAnalog, "kW", false),
		panelTemp:  reg.Register(path+".panel_temp", registry.KindAnalog, "degF", false),
	}
}

// Advance computes output_kw = capacity * clamp(irradiance/1000,0,1) *
// temp_derate(panel_temp), where panel_temp runs hot above ambient under
// full sun.
func (s *Solar) Advance(ctx equipment.Context) {
	irradianceFraction := equipment.Clamp(ctx.Weather.SolarIrradiance/1000.0, 0, 1)
	panelTemp := ctx.Weather.OAT + irradianceFraction*40.0

	derate := 1.0
	if panelTemp > s.TempDerateF {
		derate = equipment.Clamp(1.0-(panelTemp-s.TempDerateF)*0.004, 0.7, 1.0)
	}

	outputKW := s.CapacityKW * irradianceFraction * derate

	s.outputKW.SetPresentValue(outputKW)
	s.panelTemp.SetPresentValue(panelTemp)
}

// OutputKW returns the array's current present output.
func (s *Solar) OutputKW() float64 { return s.outputKW.PresentValue() }
