// Package equipment holds the shared building blocks every physical model
// (zone, AHU, chiller, electrical, data center, wastewater) is built from:
// the bounded first-order response used throughout the specification, a PI
// controller for damper/reheat/fan loops, and the Context each model's
// Advance is called with.
package equipment

import (
	"time"

	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

// Context is passed to every equipment model's Advance call. It bundles the
// registry handle, this tick's weather, the active physics parameters, and
// the wall/sim time of the tick, so models never reach for ambient globals.
type Context struct {
	Registry *registry.Registry
	Weather  weather.Conditions
	Physics  config.PhysicsParams
	Now      time.Time
	Dt       time.Duration
}

// DtSeconds returns the tick's elapsed simulated time in seconds.
func (c Context) DtSeconds() float64 { return c.Dt.Seconds() }

// FirstOrder advances x toward target under a bounded first-order response,
// per the specification: x <- x + (target-x) * min(1, dt/tau). tau <= 0 is
// treated as an instantaneous response (x becomes target).
func FirstOrder(x, target, dtSeconds, tau float64) float64 {
	if tau <= 0 {
		return target
	}
	frac := dtSeconds / tau
	if frac > 1 {
		frac = 1
	}
	return x + (target-x)*frac
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PI is a simple proportional-integral controller with output clamping and
// anti-windup (the integral term freezes once the output saturates).
type PI struct {
	Kp, Ki   float64
	OutMin   float64
	OutMax   float64
	integral float64
}

// NewPI returns a PI controller with the given gains and output bounds.
func NewPI(kp, ki, outMin, outMax float64) *PI {
	return &PI{Kp: kp, Ki: ki, OutMin: outMin, OutMax: outMax}
}

// Update steps the controller by dtSeconds given the current error
// (setpoint - measurement, or measurement - setpoint, caller's choice of
// sign) and returns the clamped output.
func (pi *PI) Update(errVal, dtSeconds float64) float64 {
	candidate := pi.integral + errVal*dtSeconds
	out := pi.Kp*errVal + pi.Ki*candidate
	if out < pi.OutMin {
		out = pi.OutMin
	} else if out > pi.OutMax {
		out = pi.OutMax
	} else {
		// Only accumulate the integral term while not saturated.
		pi.integral = candidate
	}
	return out
}

// Reset clears accumulated integral state.
func (pi *PI) Reset() { pi.integral = 0 }
