// Package electrical implements the campus electrical system: the main
// meter aggregating the downstream draws it is given, a rooftop solar array, a UPS,
// a standby generator and step-down transformers.
package electrical

import (
	"gonum.org/v1/gonum/floats"

	"github.com/basim-project/basim/internal/equipment"
	"github.com/basim-project/basim/internal/registry"
)

// Meter is the campus main electrical meter. It sums the draws passed to
// Advance each tick net of on-site solar generation. The campus passes the
// lighting/plug baseline, exterior lighting after dark, chillers, loop
// pumps, AHU fans and data center cooling; VAV reheat and wastewater
// equipment contribute no draw.
type Meter struct {
	Path string

	kw        *registry.Point
	kva       *registry.Point
	pf        *registry.Point
	voltageA  *registry.Point
	voltageB  *registry.Point
	voltageC  *registry.Point
	freq      *registry.Point
	kwhTotal  *registry.Point
	gridConn  *registry.Point
	fault     *registry.Point

	kwhAccum float64
}

// NewMeter registers the main meter's points at path.
func NewMeter(reg *registry.Registry, path string) *Meter {
	m := &Meter{
		Path:     path,
		kw:       reg.Register(path+".kw", registry.KindAnalog, "kW", false),
		kva:      reg.Register(path+".kva", registry.KindAnalog, "kVA", false),
		pf:       reg.Register(path+".pf", registry.KindAnalog, "", false),
		voltageA: reg.Register(path+".voltage_a", registry.KindAnalog, "V", false),
		voltageB: reg.Register(path+".voltage_b", registry.KindAnalog, "V", false),
		voltageC: reg.Register(path+".voltage_c", registry.KindAnalog, "V", false),
		freq:     reg.Register(path+".freq", registry.KindAnalog, "Hz", false),
		kwhTotal: reg.Register(path+".kwh_total", registry.KindAnalog, "kWh", false),
		gridConn: reg.Register(path+".grid_connected", registry.KindBinary, "", true),
		fault:    reg.Register(path+".fault", registry.KindBinary, "", false),
	}
	m.gridConn.SetPresentValue(1)
	m.voltageA.SetPresentValue(480)
	m.voltageB.SetPresentValue(480)
	m.voltageC.SetPresentValue(480)
	m.freq.SetPresentValue(60.0)
	return m
}

// GridConnected reports whether the grid-connected override, if any, shows
// the utility feed up.
func (m *Meter) GridConnected() bool {
	v, _ := m.gridConn.EffectiveValue()
	return v != 0
}

// Advance sums draws (one entry per downstream load, in kW), subtracts
// solarOutputKW, and publishes kw/kva/pf/voltage/freq/kwh_total. A
// brownout (from a Thunderstorm scenario) sags frequency and voltage
// briefly rather than tripping the meter outright.
func (m *Meter) Advance(ctx equipment.Context, draws []float64, solarOutputKW float64, brownout bool) {
	dt := ctx.DtSeconds()

	totalDraw := floats.Sum(draws)
	netKW := totalDraw - solarOutputKW
	if netKW < 0 {
		netKW = 0
	}

	const assumedPF = 0.92
	kva := netKW / assumedPF

	freqTarget := 60.0
	voltageTarget := 480.0
	if brownout {
		freqTarget = 59.5
		voltageTarget = 456.0
	}
	if !m.GridConnected() {
		// An islanded meter with no generator/UPS backing it reads zero;
		// the UPS/generator models pick up their own loads independently.
		netKW = 0
		kva = 0
		freqTarget = 0
		voltageTarget = 0
	}

	newFreq := equipment.FirstOrder(m.freq.PresentValue(), freqTarget, dt, 5.0)
	newVoltage := equipment.FirstOrder(m.voltageA.PresentValue(), voltageTarget, dt, 5.0)

	m.kwhAccum += netKW * dt / 3600.0

	m.kw.SetPresentValue(netKW)
	m.kva.SetPresentValue(kva)
	m.pf.SetPresentValue(assumedPF)
	m.voltageA.SetPresentValue(newVoltage)
	m.voltageB.SetPresentValue(newVoltage)
	m.voltageC.SetPresentValue(newVoltage)
	m.freq.SetPresentValue(newFreq)
	m.kwhTotal.SetPresentValue(m.kwhAccum)

	faulted := 0.0
	if netKW < 0 {
		faulted = 1
	}
	m.fault.SetPresentValue(faulted)
}

// KW returns the meter's current present load, for downstream dependents
// (e.g. PUE calculations) that read it within the same tick.
func (m *Meter) KW() float64 { return m.kw.PresentValue() }
