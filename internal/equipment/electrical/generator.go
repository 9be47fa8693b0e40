package electrical

import (
	"time"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// GeneratorStatus mirrors the specification's state machine:
// Off -> Starting -> Running -> Cooldown -> Off. Starting becomes Running
// after 2 sim-seconds; leaving Running and leaving Cooldown each take 60
// sim-seconds, and an outage during Cooldown returns it to Running.
type GeneratorStatus int

const (
	GenOff GeneratorStatus = iota
	GenStarting
	GenRunning
	GenCooldown
)

// sustainedOutageThreshold is how long the grid must stay down before the
// generator starts, per the specification's scenario 5 ("at T+10s any
// Generator status = Running").
const sustainedOutageThreshold = 10 * time.Second

// minRuntime enforces at least 60 simulated seconds in each running state
// before the next transition, to prevent short-cycling.
const minRuntime = 60 * time.Second

// GeneratorParams are a generator's static physical constants.
type GeneratorParams struct {
	CapacityKW    float64
	FuelTankGal   float64
	FuelBurnGalPerKWh float64
	RampTau       float64
}

// GeneratorParamsDefault returns a standby generator sized for a mid-size
// campus's critical electrical load.
func GeneratorParamsDefault() GeneratorParams {
	return GeneratorParams{
		CapacityKW:        500,
		FuelTankGal:       1000,
		FuelBurnGalPerKWh: 0.08,
		RampTau:           5,
	}
}

// Generator is a standby generator backing the campus electrical system.
type Generator struct {
	Path   string
	Params GeneratorParams

	status    *registry.Point
	outputKW  *registry.Point
	fuelPct   *registry.Point

	state            GeneratorStatus
	outageStart      time.Time
	outageActive     bool
	lastTransition   time.Time
}

// NewGenerator registers a generator's points at path, starting off with a
// full fuel tank.
func NewGenerator(reg *registry.Registry, path string, params GeneratorParams) *Generator {
	g := &Generator{
		Path:     path,
		Params:   params,
		status:   reg.Register(path+".status", registry.KindMultiState, "", false),
		outputKW: reg.Register(path+".output_kw", registry.KindAnalog, "kW", false),
		fuelPct:  reg.Register(path+".fuel_level_pct", registry.KindAnalog, "percent", false),
		state:    GenOff,
	}
	g.fuelPct.SetPresentValue(100)
	return g
}

func (g *Generator) runtimeElapsed(now time.Time) time.Duration {
	if g.lastTransition.IsZero() {
		return 0
	}
	return now.Sub(g.lastTransition)
}

func (g *Generator) transition(to GeneratorStatus, now time.Time) {
	g.state = to
	g.lastTransition = now
}

// Advance runs one tick given whether the grid is connected and the kW
// demand this generator would need to carry if running.
func (g *Generator) Advance(ctx equipment.Context, gridConnected bool, demandKW float64) {
	dt := ctx.DtSeconds()
	now := ctx.Now

	if !gridConnected {
		if !g.outageActive {
			g.outageActive = true
			g.outageStart = now
		}
	} else {
		g.outageActive = false
	}

	switch g.state {
	case GenOff:
		if g.outageActive && now.Sub(g.outageStart) >= sustainedOutageThreshold {
			g.transition(GenStarting, now)
		}
	case GenStarting:
		if g.runtimeElapsed(now) >= 2*time.Second {
			g.transition(GenRunning, now)
		}
	case GenRunning:
		if !g.outageActive && g.runtimeElapsed(now) >= minRuntime {
			g.transition(GenCooldown, now)
		}
	case GenCooldown:
		if g.runtimeElapsed(now) >= minRuntime {
			g.transition(GenOff, now)
		}
		if g.outageActive {
			g.transition(GenRunning, now)
		}
	}

	target := 0.0
	if g.state == GenRunning {
		target = equipment.Clamp(demandKW, 0, g.Params.CapacityKW)
	}
	newOutput := equipment.FirstOrder(g.outputKW.PresentValue(), target, dt, g.Params.RampTau)

	fuelPct := g.fuelPct.PresentValue()
	if g.state == GenRunning || g.state == GenStarting {
		burnGal := newOutput * g.Params.FuelBurnGalPerKWh * dt / 3600.0
		fuelPct = equipment.Clamp(fuelPct-burnGal/g.Params.FuelTankGal*100.0, 0, 100)
	}

	g.outputKW.SetPresentValue(newOutput)
	g.fuelPct.SetPresentValue(fuelPct)
	g.status.SetPresentValue(float64(g.state))
}

// Status returns the generator's current state.
func (g *Generator) Status() GeneratorStatus { return g.state }
