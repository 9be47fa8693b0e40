package modbus

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/gnet/v2"

	"github.com/basim-project/basim/internal/clock"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/metrics"
	"github.com/basim-project/basim/internal/registry"
)

// Controller is a Modbus/TCP server exposing the registry's points as
// holding registers, per the static Mapping built at assembly time.
// Unlike a Modbus client talking to one station, this server accepts
// many simultaneous connections, so per-connection read state lives in
// gnet's connection context rather than a field on Controller.
type Controller struct {
	*gnet.BuiltinEventEngine

	addr     string
	registry *registry.Registry
	mapping  *Mapping
	clock    *clock.Clock

	mu  sync.Mutex
	eng gnet.Engine
}

// connState buffers partial reads for one TCP connection until a
// complete MBAP frame is available.
type connState struct {
	buf bytes.Buffer
}

// NewController builds a Modbus gateway bound to addr (host:port), serving
// reg through m.
func NewController(addr string, reg *registry.Registry, m *Mapping, clk *clock.Clock) *Controller {
	return &Controller{addr: addr, registry: reg, mapping: m, clock: clk}
}

// Start runs the gnet event loop. It blocks until the engine stops, so
// callers run it in its own goroutine and stop it via Stop.
func (c *Controller) Start() error {
	log.Infof("modbus gateway listening on %s (%d registers mapped)", c.addr, c.mapping.Size())
	return gnet.Run(c, "tcp://"+c.addr, gnet.WithMulticore(true))
}

// Stop shuts the engine down from outside the event loop goroutine. Called
// before OnBoot has run, it returns the empty engine's error and stops
// nothing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	eng := c.eng
	c.mu.Unlock()
	return eng.Stop(context.Background())
}

func (c *Controller) OnBoot(eng gnet.Engine) gnet.Action {
	c.mu.Lock()
	c.eng = eng
	c.mu.Unlock()
	return gnet.None
}

func (c *Controller) OnOpen(conn gnet.Conn) ([]byte, gnet.Action) {
	conn.SetContext(&connState{})
	return nil, gnet.None
}

func (c *Controller) OnClose(conn gnet.Conn, err error) gnet.Action {
	return gnet.None
}

func (c *Controller) OnTraffic(conn gnet.Conn) gnet.Action {
	state, ok := conn.Context().(*connState)
	if !ok {
		// Should never happen: OnOpen always sets this. Recover rather than
		// crash the whole event loop over one misbehaving connection.
		state = &connState{}
		conn.SetContext(state)
	}

	data, err := conn.Next(-1)
	if err != nil {
		return gnet.Close
	}
	state.buf.Write(data)

	for {
		buf := state.buf.Bytes()
		n := frameLength(buf)
		if n == 0 {
			break
		}
		adu := make([]byte, n)
		copy(adu, buf[:n])

		fc := byte(0)
		if len(adu) > mbapHeaderLen {
			fc = adu[mbapHeaderLen]
		}
		resp := handleADU(c.registry, c.mapping, c.clock.Now(), adu)
		recordResult(fc, resp)
		if err := conn.AsyncWrite(resp, nil); err != nil {
			log.Errorf("modbus: write failed: %v", err)
		}

		remaining := make([]byte, state.buf.Len()-n)
		copy(remaining, buf[n:])
		state.buf.Reset()
		state.buf.Write(remaining)
	}

	return gnet.None
}

func recordResult(fc byte, resp []byte) {
	op := opName(fc)
	result := "ok"
	if len(resp) > mbapHeaderLen && resp[mbapHeaderLen]&0x80 != 0 {
		result = "exception"
	}
	metrics.GatewayRequestsTotal.WithLabelValues("modbus", op, result).Inc()
}

func opName(fc byte) string {
	switch fc {
	case fcReadHoldingRegisters:
		return "read_holding"
	case fcReadInputRegisters:
		return "read_input"
	case fcWriteSingleRegister:
		return "write_single"
	case fcWriteMultipleRegisters:
		return "write_multiple"
	default:
		return fmt.Sprintf("fc_%d", fc)
	}
}
