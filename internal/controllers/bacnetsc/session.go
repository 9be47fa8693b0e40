package bacnetsc

import (
	"encoding/binary"
	"time"

	"github.com/gorilla/websocket"

	"github.com/basim-project/basim/internal/controllers/bacnetip"
	"github.com/basim-project/basim/internal/log"
	"github.com/basim-project/basim/internal/metrics"
	"github.com/basim-project/basim/internal/registry"
)

// Message types this hub node exchanges. A WebSocket binary message
// already delineates frame boundaries, so unlike BVLC/TCP there's no
// length field to frame on top of it.
const (
	messageConnectRequest = 0x00
	messageConnectAccept  = 0x01
	messageEncapsulatedAPDU = 0x06
)

// NPDU header this hub always sends: no destination/source network
// routing, matching internal/controllers/bacnetip's single-network NPDU.
const (
	npduVersion = 0x01
	npduControl = 0x00
)

const (
	writeWait = 10 * time.Second
	pingEvery = 30 * time.Second
)

// session is one BACnet/SC WebSocket connection: a read pump decoding
// inbound frames and dispatching them against the registry, and a write
// pump draining outbound replies plus periodic keepalive pings, the same
// two-goroutine shape gorilla/websocket connections are conventionally
// driven with.
type session struct {
	conn           *websocket.Conn
	registry       *registry.Registry
	objects        *bacnetip.Objects
	deviceInstance uint32
	peerDeviceID   uint32

	send chan []byte
}

func newSession(conn *websocket.Conn, reg *registry.Registry, objs *bacnetip.Objects, deviceInstance uint32) *session {
	return &session{
		conn:           conn,
		registry:       reg,
		objects:        objs,
		deviceInstance: deviceInstance,
		send:           make(chan []byte, 16),
	}
}

// handshake performs the Connect-Request -> Connect-Accept exchange that
// opens a BACnet/SC session.
func (s *session) handshake() bool {
	_, msg, err := s.conn.ReadMessage()
	if err != nil {
		log.Errorf("bacnetsc: handshake read failed: %v", err)
		return false
	}
	if len(msg) < 5 || msg[0] != messageConnectRequest {
		log.Errorf("bacnetsc: expected Connect-Request, got %v", msg)
		return false
	}
	s.peerDeviceID = binary.BigEndian.Uint32(msg[1:5])

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, []byte{messageConnectAccept}); err != nil {
		log.Errorf("bacnetsc: Connect-Accept write failed: %v", err)
		return false
	}
	return true
}

func (s *session) readPump() {
	defer close(s.send)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("bacnetsc: read error: %v", err)
			}
			return
		}
		if len(msg) < 1 || msg[0] != messageEncapsulatedAPDU {
			continue
		}
		s.handleNPDU(msg[1:])
	}
}

func (s *session) handleNPDU(npdu []byte) {
	if len(npdu) < 2 || npdu[0] != npduVersion || npdu[1]&0x80 != 0 {
		return
	}
	apdu := npdu[2:]

	op := "unknown"
	if len(apdu) >= 1 {
		op = apduOpName(apdu)
	}
	resp := bacnetip.HandleAPDU(s.registry, s.objects, s.deviceInstance, apdu)

	result := "ok"
	if resp != nil && resp[0]>>4 == 0x5 {
		result = "exception"
	}
	metrics.GatewayRequestsTotal.WithLabelValues("bacnetsc", op, result).Inc()

	if resp == nil {
		return
	}
	frame := append([]byte{messageEncapsulatedAPDU, npduVersion, npduControl}, resp...)
	select {
	case s.send <- frame:
	default:
		log.Errorf("bacnetsc: send buffer full for device %d, dropping reply", s.peerDeviceID)
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func apduOpName(apdu []byte) string {
	pduType := apdu[0] >> 4
	switch pduType {
	case 0x0: // confirmed request
		if len(apdu) < 4 {
			return "unknown"
		}
		switch apdu[3] {
		case 12:
			return "read_property"
		case 15:
			return "write_property"
		default:
			return "unknown"
		}
	case 0x1: // unconfirmed request
		if len(apdu) < 2 {
			return "unknown"
		}
		if apdu[1] == 8 {
			return "who_is"
		}
		return "unknown"
	default:
		return "unknown"
	}
}
