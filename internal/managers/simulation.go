// Package managers wires the simulation's independent subsystems (clock,
// weather, campus topology, tick driver, protocol gateways) into the two
// units internal/app starts and stops: the simulation itself and the
// gateways that expose it.
package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/clock"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/tick"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
)

// SimulationManager owns the point registry, campus topology, weather
// model and clock, and runs the tick driver that advances them all.
type SimulationManager struct {
	clock    *clock.Clock
	registry *registry.Registry
	campus   *campus.Campus
	weather  *weather.Model
	driver   *tick.Driver
}

// NewSimulationManager assembles a campus of cfg.CampusSize, a weather
// model at cfg.GeoLat, and a clock running at cfg.SimulationSpeed, all
// registered against a fresh point registry.
func NewSimulationManager(cfg *config.Config) (*SimulationManager, error) {
	reg := registry.New()

	c, err := campus.Assemble(reg, cfg.CampusSize)
	if err != nil {
		return nil, fmt.Errorf("assembling campus: %w", err)
	}

	clk := clock.New(time.Now(), cfg.SimulationSpeed)
	wx := weather.New(reg, cfg.GeoLat, weather.Normal, time.Now().UnixNano())
	driver := tick.New(clk, reg, wx, c, cfg.Physics)

	return &SimulationManager{
		clock:    clk,
		registry: reg,
		campus:   c,
		weather:  wx,
		driver:   driver,
	}, nil
}

// Registry returns the shared point registry every gateway reads and
// writes against.
func (s *SimulationManager) Registry() *registry.Registry { return s.registry }

// Campus returns the assembled equipment topology.
func (s *SimulationManager) Campus() *campus.Campus { return s.campus }

// Weather returns the weather model, so gateways and the HTTP API can
// change the active scenario.
func (s *SimulationManager) Weather() *weather.Model { return s.weather }

// Driver returns the tick driver, so the HTTP API can read and tune the
// active physics multipliers.
func (s *SimulationManager) Driver() *tick.Driver { return s.driver }

// Run blocks, advancing the simulation one tick_quantum at a time until
// ctx is cancelled.
func (s *SimulationManager) Run(ctx context.Context) error {
	return s.driver.Run(ctx)
}
