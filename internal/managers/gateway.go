package managers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/basim-project/basim/internal/campus"
	"github.com/basim-project/basim/internal/controllers/bacnetip"
	"github.com/basim-project/basim/internal/controllers/bacnetsc"
	"github.com/basim-project/basim/internal/controllers/httpapi"
	"github.com/basim-project/basim/internal/controllers/modbus"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/registry"
	"github.com/basim-project/basim/internal/tick"
	"github.com/basim-project/basim/internal/weather"
	"github.com/basim-project/basim/pkg/config"
	"golang.org/x/sync/errgroup"
)

// GatewayManager owns the four protocol gateways BASim exposes its
// registry through: the HTTP/JSON API, Modbus/TCP, BACnet/IP and
// BACnet/SC. Every gateway answers against the same registry, so a write
// through one is visible through all the others.
type GatewayManager struct {
	http     *httpapi.Controller
	modbus   *modbus.Controller
	bacnetip *bacnetip.Controller
	bacnetsc *bacnetsc.Controller

	wg sync.WaitGroup
}

// NewGatewayManager builds the four gateways from cfg, wired against reg,
// c, wx and driver.
func NewGatewayManager(ctx context.Context, cfg *config.Config, reg *registry.Registry, c *campus.Campus, wx *weather.Model, driver *tick.Driver) (*GatewayManager, error) {
	gm := &GatewayManager{}

	gm.http = httpapi.NewController(ctx, &gm.wg, cfg, reg, c, wx, driver)

	modbusMapping := modbus.Build(reg)
	clk := driver.Clock
	gm.modbus = modbus.NewController(fmt.Sprintf(":%d", cfg.ModbusPort), reg, modbusMapping, clk)

	bacnetObjects := bacnetip.Build(reg)
	bacnetipCtrl, err := bacnetip.NewController(fmt.Sprintf("0.0.0.0:%d", cfg.BACnetPort), cfg.DeviceID, reg, bacnetObjects)
	if err != nil {
		return nil, fmt.Errorf("building BACnet/IP gateway: %w", err)
	}
	gm.bacnetip = bacnetipCtrl

	deviceInstance, err := strconv.ParseUint(cfg.DeviceID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q: %w", cfg.DeviceID, err)
	}
	scDeviceInstance := uint32(deviceInstance)
	scAddr := fmt.Sprintf("0.0.0.0:%d", cfg.BACnetSCPort)
	gm.bacnetsc = bacnetsc.NewController(scAddr, cfg.BACnetSCTLSCertPath, cfg.BACnetSCTLSKeyPath, scDeviceInstance, reg, bacnetObjects)

	return gm, nil
}

// Run starts every gateway and blocks until ctx is cancelled or one of
// them fails to start. The HTTP API manages its own shutdown goroutine
// keyed off ctx (see httpapi.Controller.StartController); the other three
// block in their own Start/Run call, so they're coordinated here with an
// errgroup the same way the teacher's app.go waits on a sync.WaitGroup,
// but propagating the first startup error.
func (gm *GatewayManager) Run(ctx context.Context) error {
	if err := gm.http.StartController(); err != nil {
		return fmt.Errorf("starting HTTP API: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gm.modbus.Start() })
	g.Go(func() error { return gm.bacnetip.Run(gctx) })
	g.Go(func() error { return gm.bacnetsc.Start() })
	g.Go(func() error {
		<-gctx.Done()
		if err := gm.modbus.Stop(); err != nil {
			log.Errorf("managers: stopping Modbus gateway: %v", err)
		}
		gm.bacnetip.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return gm.bacnetsc.Stop(shutdownCtx)
	})

	err := g.Wait()
	gm.wg.Wait()
	return err
}
