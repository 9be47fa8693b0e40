// Package main starts a BASim instance: a simulated campus of central
// plant, HVAC and electrical equipment exposed over HTTP, Modbus/TCP,
// BACnet/IP and BACnet/SC.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/basim-project/basim/internal/app"
	"github.com/basim-project/basim/internal/constants"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/pkg/config"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("basim %s (%s/%s)\n", constants.Version, runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(log.Options{Debug: cfg.Debug, LogFile: cfg.LogFile}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infof("starting BASim %s, campus size %s, simulation speed %vx", constants.Version, cfg.CampusSize, cfg.SimulationSpeed)

	application := app.New(cfg)
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("application error: %v", err)
		os.Exit(1)
	}
}
