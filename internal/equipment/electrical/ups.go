package electrical

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// UPSStatus mirrors the specification's UPS state machine:
// Online -> On_Battery -> Online (grid restore), or
// On_Battery -> Depleted (battery_pct=0), Depleted -> Online (restore).
type UPSStatus int

const (
	UPSOnline UPSStatus = iota
	UPSOnBattery
	UPSDepleted
)

// UPSParams are a UPS's static physical constants.
type UPSParams struct {
	CapacityKWh float64
}

// UPS rides through brief grid outages on battery, draining proportionally
// to the load it carries and recharging once the grid is restored.
type UPS struct {
	Path   string
	Params UPSParams

	status     *registry.Point
	batteryPct *registry.Point

	state UPSStatus
}

// NewUPS registers a UPS's points at path, starting fully charged online.
func NewUPS(reg *registry.Registry, path string, params UPSParams) *UPS {
	u := &UPS{
		Path:       path,
		Params:     params,
		status:     reg.Register(path+".status", registry.KindMultiState, "", false),
		batteryPct: reg.Register(path+".battery_pct", registry.KindAnalog, "percent", false),
		state:      UPSOnline,
	}
	u.batteryPct.SetPresentValue(100)
	return u
}

// Advance runs one tick given whether the grid is currently connected and
// the kW load this UPS is carrying.
func (u *UPS) Advance(ctx equipment.Context, gridConnected bool, loadKW float64) {
	dt := ctx.DtSeconds()
	battery := u.batteryPct.PresentValue()

	switch u.state {
	case UPSOnline:
		if !gridConnected {
			u.state = UPSOnBattery
		}
	case UPSOnBattery:
		if gridConnected {
			u.state = UPSOnline
		} else {
			battery -= loadKW / u.Params.CapacityKWh / 3600.0 * dt * 100.0
			if battery <= 0 {
				battery = 0
				u.state = UPSDepleted
			}
		}
	case UPSDepleted:
		if gridConnected {
			u.state = UPSOnline
		}
	}

	if u.state == UPSOnline && battery < 100 {
		// Recharge at a fixed rate once the grid is back.
		battery = equipment.Clamp(battery+dt/36.0, 0, 100)
	}

	u.batteryPct.SetPresentValue(battery)
	u.status.SetPresentValue(float64(u.state))
}

// Status returns the UPS's current state.
func (u *UPS) Status() UPSStatus { return u.state }
