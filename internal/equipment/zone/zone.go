// Package zone implements the combined VAV box + zone model: the smallest
// thermal unit in a BASim campus, owned by an AHU, driven by supply air
// from that AHU and outside conditions through the building envelope.
package zone

import (
	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// OccupancyMode is the schedule-driven comfort mode of a zone. Values map
// to multi-state point codes 0..4, in this order.
type OccupancyMode int

const (
	ModeAuto OccupancyMode = iota
	ModeOccupied
	ModeUnoccupied
	ModeWarmup
	ModeCooldown
)

// Params are the static physical constants of one zone, derived from the
// campus's physics parameters at assembly time.
type Params struct {
	ThermalMassTau float64 // seconds, response time of room_temp
	EnvelopeUA     float64 // BTU/h-degF, heat loss/gain through envelope
	InternalGains  float64 // BTU/h baseline internal heat gain when occupied
	SolarGain      float64 // BTU/h per unit of solar irradiance fraction
	MaxAirFlowCFM  float64
	MaxReheatBTU   float64

	OccupiedHeating   float64
	OccupiedCooling   float64
	UnoccupiedHeating float64
	UnoccupiedCooling float64
}

// Zone is one VAV box and the room it serves.
type Zone struct {
	Path   string
	Params Params

	roomTemp     *registry.Point
	damper       *registry.Point
	reheatValve  *registry.Point
	occupancy    *registry.Point
	supplyFlow   *registry.Point
	fault        *registry.Point

	dampersPI *equipment.PI
	reheatPI  *equipment.PI
}

// New registers a zone's points at path and returns the model. The zone
// holds no reference to its parent AHU; the AHU passes its current state
// in on each call to Advance.
func New(reg *registry.Registry, path string, params Params) *Zone {
	z := &Zone{
		Path:        path,
		Params:      params,
		roomTemp:    reg.Register(path+".room_temp", registry.KindAnalog, "degF", false),
		damper:      reg.Register(path+".damper_position", registry.KindAnalog, "percent", true),
		reheatValve: reg.Register(path+".reheat_valve", registry.KindAnalog, "percent", true),
		occupancy:   reg.Register(path+".occupancy_mode", registry.KindMultiState, "", true),
		supplyFlow:  reg.Register(path+".supply_air_flow", registry.KindAnalog, "cfm", false),
		fault:       reg.Register(path+".fault", registry.KindBinary, "", false),
		dampersPI:   equipment.NewPI(8.0, 0.5, 0, 100),
		reheatPI:    equipment.NewPI(6.0, 0.3, 0, 100),
	}
	z.roomTemp.SetPresentValue(72.0)
	z.occupancy.SetPresentValue(float64(ModeAuto))
	return z
}

// effectiveSetpoints returns the heating and cooling setpoints for the
// already-resolved occupancy mode, after applying occupancy offsets.
func (z *Zone) effectiveSetpoints(mode OccupancyMode) (heating, cooling float64) {
	switch mode {
	case ModeOccupied:
		return z.Params.OccupiedHeating, z.Params.OccupiedCooling
	case ModeWarmup:
		// Full heating authority, cooling disabled.
		return z.Params.OccupiedHeating + 2, 999
	case ModeCooldown:
		return -999, z.Params.OccupiedCooling - 2
	default: // Unoccupied, or Auto resolved to unoccupied hours
		return z.Params.UnoccupiedHeating, z.Params.UnoccupiedCooling
	}
}

// Advance computes this tick's room_temp, damper_position and reheat_valve
// given the AHU's current supply temperature, the building's outside
// conditions and the scheduled occupancy mode.
func (z *Zone) Advance(ctx equipment.Context, supplyTempF, ahuSupplyFlowCapacityCFM float64, scheduledMode OccupancyMode) {
	dt := ctx.DtSeconds()

	modeValue, _ := z.occupancy.EffectiveValue()
	mode := OccupancyMode(modeValue)
	if mode == ModeAuto {
		mode = scheduledMode
	}
	heatingSP, coolingSP := z.effectiveSetpoints(mode)

	roomTemp := z.roomTemp.PresentValue()

	// Damper/reheat PI on (room_temp - effective setpoint): positive error
	// (too warm) drives damper open for more cooling air; negative error
	// (too cold) drives reheat open.
	midpoint := (heatingSP + coolingSP) / 2
	if midpoint > 200 || midpoint < -200 {
		midpoint = (z.Params.OccupiedHeating + z.Params.OccupiedCooling) / 2
	}
	errVal := roomTemp - midpoint

	damperPct := z.dampersPI.Update(errVal, dt) * ctx.Physics.VAVGains
	damperPct = equipment.Clamp(damperPct, 0, 100)

	var reheatPct float64
	if roomTemp < heatingSP {
		reheatPct = z.reheatPI.Update(heatingSP-roomTemp, dt)
	} else {
		z.reheatPI.Reset()
	}
	reheatPct = equipment.Clamp(reheatPct, 0, 100)

	airFlowCFM := equipment.Clamp(ahuSupplyFlowCapacityCFM*damperPct/100.0, 0, z.Params.MaxAirFlowCFM)

	occupiedGains := z.Params.InternalGains
	if mode == ModeUnoccupied {
		occupiedGains *= 0.2
	}
	gains := occupiedGains*ctx.Physics.InternalGains +
		z.Params.SolarGain*ctx.Weather.SolarIrradiance/1000.0*ctx.Physics.SolarGain +
		z.Params.MaxReheatBTU*reheatPct/100.0

	envelopeLoss := z.Params.EnvelopeUA * ctx.Physics.EnvelopeUA * (ctx.Weather.OAT - roomTemp)
	supplyEffect := airFlowCFM * 1.08 * (supplyTempF - roomTemp) // 1.08 = air sensible heat factor, BTU/h per cfm-degF

	target := roomTemp + (supplyEffect+envelopeLoss+gains)/2000.0 // lump thermal capacitance scaling
	tau := z.Params.ThermalMassTau * ctx.Physics.ThermalMass

	faulted := 0.0
	if target > 200 || target < -100 {
		target = equipment.Clamp(target, -20, 150)
		faulted = 1
	}

	newRoomTemp := equipment.FirstOrder(roomTemp, target, dt, tau)

	z.roomTemp.SetPresentValue(newRoomTemp)
	z.damper.SetPresentValue(damperPct)
	z.reheatValve.SetPresentValue(reheatPct)
	z.supplyFlow.SetPresentValue(airFlowCFM)
	z.fault.SetPresentValue(faulted)
}

// DamperPosition returns the current (possibly overridden) damper position,
// for the AHU's worst-case-demand fan speed calculation.
func (z *Zone) DamperPosition() float64 {
	v, _ := z.damper.EffectiveValue()
	return v
}

// RoomTemp returns the zone's current present room temperature, for the
// AHU's return air temperature estimate.
func (z *Zone) RoomTemp() float64 { return z.roomTemp.PresentValue() }
