// Package app wires the simulation and its protocol gateways together and
// runs them until a shutdown signal arrives.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/managers"
	"github.com/basim-project/basim/pkg/config"
	"golang.org/x/sync/errgroup"
)

// App owns the simulation manager and the gateway manager that exposes it.
type App struct {
	cfg *config.Config

	simulation *managers.SimulationManager
	gateways   *managers.GatewayManager
}

// New creates a new application instance from cfg.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Run assembles the campus, starts the tick driver and every protocol
// gateway, and blocks until a shutdown signal or context cancellation
// arrives. Gateway and simulation goroutines are coordinated with an
// errgroup so the first startup failure is returned instead of silently
// swallowed.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sim, err := managers.NewSimulationManager(a.cfg)
	if err != nil {
		return err
	}
	a.simulation = sim

	gw, err := managers.NewGatewayManager(ctx, a.cfg, sim.Registry(), sim.Campus(), sim.Weather(), sim.Driver())
	if err != nil {
		return err
	}
	a.gateways = gw

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx) })
	g.Go(func() error { return gw.Run(gctx) })

	log.Info("BASim started successfully")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-gctx.Done():
		log.Info("a subsystem stopped unexpectedly, shutting down...")
	}

	cancel()

	log.Info("waiting for all subsystems to terminate...")
	err = g.Wait()
	log.Info("shutdown complete")

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
