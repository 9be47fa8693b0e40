package wastewater

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// UV is the final disinfection stage, interlocked to run only while
// effluent is actually flowing.
type UV struct {
	Path         string
	MinFlowGPM   float64

	status   *registry.Point
	doseMJ   *registry.Point
}

// NewUV registers a UV stage's points at path.
func NewUV(reg *registry.Registry, path string, minFlowGPM float64) *UV {
	return &UV{
		Path:       path,
		MinFlowGPM: minFlowGPM,
		status:     reg.Register(path+".status", registry.KindBinary, "", false),
		doseMJ:     reg.Register(path+".dose_mj_cm2", registry.KindAnalog, "mJ/cm2", false),
	}
}

// Advance interlocks UV operation to effluentGPM: below MinFlowGPM the
// stage shuts down entirely, since dosing a dry channel is meaningless.
func (u *UV) Advance(effluentGPM float64) {
	running := effluentGPM >= u.MinFlowGPM
	status := 0.0
	dose := 0.0
	if running {
		status = 1
		dose = equipment.Clamp(40.0-effluentGPM*0.01, 20, 40)
	}
	u.status.SetPresentValue(status)
	u.doseMJ.SetPresentValue(dose)
}
