// Package chiller implements the chilled-water plant's chiller model:
// status state machine, load tracking and kW draw as a function of load and
// condenser water temperature.
package chiller

import (
	"time"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Status is the chiller's state machine: Off -> Starting -> Running ->
// Unloading -> Off.
type Status int

const (
	StatusOff Status = iota
	StatusStarting
	StatusRunning
	StatusUnloading
)

// startupDuration and unloadDuration bound how long a chiller spends
// ramping its compressor up or down before settling into Running or Off.
const (
	startupDuration = 30 * time.Second
	unloadDuration  = 30 * time.Second
)

// Params are a chiller's static physical constants.
type Params struct {
	CapacityTons        float64
	RatedKWPerTon        float64
	Rank                 int // plant staging order, lowest starts first
	MinOnTime            time.Duration
	MinOffTime           time.Duration
	ChwSetpoint          float64
	LoadTau              float64
	ChwTempTau           float64
}

// Chiller is one chiller in the central plant.
type Chiller struct {
	Path   string
	Params Params

	status       *registry.Point
	loadPercent  *registry.Point
	kw           *registry.Point
	chwSupply    *registry.Point
	chwSetpoint  *registry.Point
	fault        *registry.Point

	state          Status
	lastTransition time.Time
	requestedOn    bool // set by the plant sequencer, not by an override
}

// New registers a chiller's points at path.
func New(reg *registry.Registry, path string, params Params) *Chiller {
	c := &Chiller{
		Path:        path,
		Params:      params,
		status:      reg.Register(path+".status", registry.KindMultiState, "", true),
		loadPercent: reg.Register(path+".load_percent", registry.KindAnalog, "percent", false),
		kw:          reg.Register(path+".kw", registry.KindAnalog, "kW", false),
		chwSupply:   reg.Register(path+".chw_supply_temp", registry.KindAnalog, "degF", false),
		chwSetpoint: reg.Register(path+".chw_supply_temp_setpoint", registry.KindAnalog, "degF", true),
		fault:       reg.Register(path+".fault", registry.KindBinary, "", false),
	}
	c.chwSupply.SetPresentValue(params.ChwSetpoint)
	c.chwSetpoint.SetPresentValue(params.ChwSetpoint)
	return c
}

// SetEnabled is called by the plant sequencer each tick, before Advance, to
// request this chiller be staged on or off. The request only takes effect
// once Advance's state machine reaches a point where it's legal to act on
// it; MinOnTime/MinOffTime keep the compressor from short-cycling.
func (c *Chiller) SetEnabled(enabled bool, now time.Time) {
	c.requestedOn = enabled
}

// elapsedSinceTransition reports how long the chiller has held its current
// state. A zero lastTransition (never transitioned) reads as unconstrained,
// so the very first start isn't blocked by MinOffTime.
func (c *Chiller) elapsedSinceTransition(now time.Time) time.Duration {
	if c.lastTransition.IsZero() {
		return c.Params.MinOnTime + c.Params.MinOffTime
	}
	return now.Sub(c.lastTransition)
}

func (c *Chiller) transition(to Status, now time.Time) {
	c.state = to
	c.lastTransition = now
}

// step advances the chiller's state machine by one tick against the
// sequencer's latest SetEnabled request.
func (c *Chiller) step(now time.Time) {
	switch c.state {
	case StatusOff:
		if c.requestedOn && c.elapsedSinceTransition(now) >= c.Params.MinOffTime {
			c.transition(StatusStarting, now)
		}
	case StatusStarting:
		if c.elapsedSinceTransition(now) >= startupDuration {
			c.transition(StatusRunning, now)
		}
	case StatusRunning:
		if !c.requestedOn && c.elapsedSinceTransition(now) >= c.Params.MinOnTime {
			c.transition(StatusUnloading, now)
		}
	case StatusUnloading:
		if c.elapsedSinceTransition(now) >= unloadDuration {
			c.transition(StatusOff, now)
		}
	}
}

// LoadPercent returns this chiller's current (possibly overridden) load,
// for the plant sequencer's staging decision.
func (c *Chiller) LoadPercent() float64 {
	v, _ := c.loadPercent.EffectiveValue()
	return v
}

// Enabled reports whether the plant sequencer currently has this chiller
// staged on or coming online — the count it uses to rank the next chiller
// to stage.
func (c *Chiller) Enabled() bool {
	return c.state == StatusStarting || c.state == StatusRunning
}

// Status returns the chiller's current state.
func (c *Chiller) Status() Status { return c.state }

// KW returns this chiller's current electrical draw, for the main meter.
func (c *Chiller) KW() float64 { return c.kw.PresentValue() }

// Advance runs one tick given this chiller's share of requested cooling
// tons and the condenser water temperature supplied by its tower.
func (c *Chiller) Advance(ctx equipment.Context, requestedTons, condenserWaterTempF float64) {
	dt := ctx.DtSeconds()

	c.step(ctx.Now)

	statusOverride, hasOverride := c.status.EffectiveValue()
	running := c.state == StatusRunning
	if hasOverride {
		running = statusOverride != 0
	}

	targetLoad := 0.0
	if running {
		targetLoad = equipment.Clamp(requestedTons/c.Params.CapacityTons*100.0, 0, 120)
	}

	currentLoad := c.loadPercent.PresentValue()
	newLoad := equipment.FirstOrder(currentLoad, targetLoad, dt, c.Params.LoadTau)

	// kW = f(load, oat via tower, efficiency)
	efficiency := c.Params.RatedKWPerTon * ctx.Physics.EquipmentEfficiency
	condenserPenalty := 1.0 + equipment.Clamp((condenserWaterTempF-75.0)/100.0, -0.2, 0.5)
	loadKW := (newLoad / 100.0) * c.Params.CapacityTons * efficiency * condenserPenalty
	if !running {
		loadKW = 0
	}

	setpoint, _ := c.chwSetpoint.EffectiveValue()
	overloadDeviation := 0.0
	if newLoad > 100 {
		overloadDeviation = (newLoad - 100) * 0.1
	}
	targetChw := setpoint + overloadDeviation
	if !running {
		targetChw = condenserWaterTempF // idle chiller drifts toward ambient loop temp
	}
	newChw := equipment.FirstOrder(c.chwSupply.PresentValue(), targetChw, dt, c.Params.ChwTempTau)

	faulted := 0.0
	if newChw < 20 || newChw > 90 {
		newChw = equipment.Clamp(newChw, 20, 90)
		faulted = 1
	}

	c.loadPercent.SetPresentValue(newLoad)
	c.kw.SetPresentValue(loadKW)
	c.chwSupply.SetPresentValue(newChw)
	c.fault.SetPresentValue(faulted)
	c.status.SetPresentValue(float64(c.state))
}
