// Package bacnetsc implements a BACnet/SC hub node: the same object model
// and ReadProperty/WriteProperty/WhoIs services as internal/controllers/
// bacnetip, framed over a WebSocket instead of BVLC/UDP.
package bacnetsc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/basim-project/basim/internal/controllers/bacnetip"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/registry"
)

// Path is the single endpoint every BACnet/SC node connects to.
const Path = "/bacnet-sc"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller accepts BACnet/SC WebSocket connections and answers them
// against the same registry and object mapping internal/controllers/
// bacnetip uses, so a write through either gateway is indistinguishable
// to the rest of the system.
type Controller struct {
	addr           string
	certPath       string
	keyPath        string
	deviceInstance uint32
	registry       *registry.Registry
	objects        *bacnetip.Objects

	mu        sync.Mutex
	deviceIDs map[uint32]bool
	server    *http.Server
}

// NewController builds a BACnet/SC gateway bound to addr ("0.0.0.0:47809"),
// serving reg through objs as device deviceInstance. certPath/keyPath may
// both be empty, in which case the gateway serves plain ws:// rather than
// refusing to start.
func NewController(addr, certPath, keyPath string, deviceInstance uint32, reg *registry.Registry, objs *bacnetip.Objects) *Controller {
	return &Controller{
		addr:           addr,
		certPath:       certPath,
		keyPath:        keyPath,
		deviceInstance: deviceInstance,
		registry:       reg,
		objects:        objs,
		deviceIDs:      make(map[uint32]bool),
	}
}

// Handler returns the http.Handler to mount at Path.
func (c *Controller) Handler() http.HandlerFunc {
	return c.serveHTTP
}

// Start listens on addr and serves BACnet/SC connections until Stop is
// called. It loads a TLS certificate pair when both certPath and keyPath
// are configured, and falls back to plain HTTP otherwise, matching the
// teacher's per-website optional-TLS behavior.
func (c *Controller) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, c.serveHTTP)

	server := &http.Server{Addr: c.addr, Handler: mux}
	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("bacnetsc: listen on %s: %w", c.addr, err)
	}

	if c.certPath != "" && c.keyPath != "" {
		cert, err := tls.LoadX509KeyPair(c.certPath, c.keyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("bacnetsc: load TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12})
		log.Infof("BACnet/SC hub listening on wss://%s%s", c.addr, Path)
	} else {
		log.Infof("BACnet/SC hub listening on ws://%s%s (no TLS configured)", c.addr, Path)
	}

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("bacnetsc: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the listening server.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (c *Controller) serveHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("bacnetsc: upgrade failed: %v", err)
		return
	}

	sess := newSession(conn, c.registry, c.objects, c.deviceInstance)
	if !sess.handshake() {
		conn.Close()
		return
	}

	if !c.claimDeviceID(sess.peerDeviceID) {
		log.Errorf("bacnetsc: rejecting duplicate device id %d", sess.peerDeviceID)
		conn.Close()
		return
	}
	defer c.releaseDeviceID(sess.peerDeviceID)

	go sess.writePump()
	sess.readPump()
}

func (c *Controller) claimDeviceID(id uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deviceIDs[id] {
		return false
	}
	c.deviceIDs[id] = true
	return true
}

func (c *Controller) releaseDeviceID(id uint32) {
	c.mu.Lock()
	delete(c.deviceIDs, id)
	c.mu.Unlock()
}
