package bacnetip

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/metrics"
	"github.com/basim-project/basim/internal/registry"
)

// Controller is a BACnet/IP device answering ReadProperty, WriteProperty
// and WhoIs/IAm over UDP. The receive loop mirrors the teacher's UDP
// receiver shape: a deadline-polling ReadFrom loop checked against a
// cancellable context, rather than a blocking read with no shutdown path.
type Controller struct {
	addr           string
	deviceInstance uint32
	registry       *registry.Registry
	objects        *Objects

	mu   sync.Mutex
	conn *net.UDPConn
}

// NewController builds a BACnet/IP gateway bound to addr ("0.0.0.0:47808"),
// serving reg through objs as device deviceID.
func NewController(addr string, deviceID string, reg *registry.Registry, objs *Objects) (*Controller, error) {
	instance, err := strconv.ParseUint(deviceID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bacnetip: invalid device id %q: %w", deviceID, err)
	}
	return &Controller{addr: addr, deviceInstance: uint32(instance), registry: reg, objects: objs}, nil
}

// Run opens the UDP socket and serves until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", c.addr)
	if err != nil {
		return fmt.Errorf("bacnetip: resolve %s: %w", c.addr, err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return fmt.Errorf("bacnetip: listen on %s: %w", c.addr, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	log.Infof("BACnet/IP device %d listening on %s", c.deviceInstance, c.addr)

	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			log.Errorf("bacnetip: read error: %v", err)
			continue
		}

		resp, reportOp, result := c.handleFrame(buf[:n])
		metrics.GatewayRequestsTotal.WithLabelValues("bacnetip", reportOp, result).Inc()
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDP(resp, raddr); err != nil {
			log.Errorf("bacnetip: write to %s failed: %v", raddr, err)
		}
	}
}

// Stop closes the listening socket from outside the Run goroutine.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// handleFrame decodes one BVLC+NPDU+APDU datagram and returns the reply
// frame (nil if the request warranted none), plus labels for the gateway
// request-count metric.
func (c *Controller) handleFrame(frame []byte) (response []byte, op, result string) {
	npdu, ok := stripBVLC(frame)
	if !ok {
		return nil, "decode", "exception"
	}
	apdu, ok := stripNPDU(npdu)
	if !ok {
		return nil, "decode", "exception"
	}
	if len(apdu) == 0 {
		return nil, "decode", "exception"
	}

	op = serviceOpName(apdu)
	respAPDU := HandleAPDU(c.registry, c.objects, c.deviceInstance, apdu)
	if respAPDU == nil {
		return nil, op, "ok"
	}

	result = "ok"
	if respAPDU[0]>>4 == pduError {
		result = "exception"
	}
	return wrapBVLC(respAPDU), op, result
}

func serviceOpName(apdu []byte) string {
	if len(apdu) < 2 {
		return "unknown"
	}
	pduType := apdu[0] >> 4
	switch pduType {
	case pduConfirmedRequest:
		if len(apdu) < 4 {
			return "unknown"
		}
		switch apdu[3] {
		case serviceReadProperty:
			return "read_property"
		case serviceWriteProperty:
			return "write_property"
		default:
			return "unknown"
		}
	case pduUnconfirmedRequest:
		switch apdu[1] {
		case serviceWhoIs:
			return "who_is"
		default:
			return "unknown"
		}
	default:
		return "unknown"
	}
}

// stripBVLC validates the BVLC header and returns the NPDU+APDU payload
// that follows it.
func stripBVLC(frame []byte) ([]byte, bool) {
	if len(frame) < 4 || frame[0] != bvlcType {
		return nil, false
	}
	switch frame[1] {
	case bvlcFuncUnicast, bvlcFuncBroadcast:
	default:
		return nil, false
	}
	return frame[4:], true
}

// wrapBVLC adds the NPDU header and BVLC header onto an outbound APDU for
// a unicast reply.
func wrapBVLC(apdu []byte) []byte {
	total := 4 + 2 + len(apdu)
	out := make([]byte, 0, total)
	out = append(out, bvlcType, bvlcFuncUnicast, byte(total>>8), byte(total))
	out = append(out, npduVersion, npduControl)
	out = append(out, apdu...)
	return out
}

// stripNPDU validates the NPDU header (version + control byte, no
// destination/source network fields since BASim is a single BACnet
// network) and returns the APDU that follows it.
func stripNPDU(b []byte) ([]byte, bool) {
	if len(b) < 2 || b[0] != npduVersion {
		return nil, false
	}
	control := b[1]
	if control&0x80 != 0 {
		// Network-layer message, not an application request. Nothing in
		// BASim's scope needs to originate or relay one.
		return nil, false
	}
	return b[2:], true
}
