package bacnetsc

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/basim-project/basim/internal/controllers/bacnetip"
	"github.com/basim-project/basim/internal/registry"
)

func newTestController() (*Controller, *registry.Registry) {
	reg := registry.New()
	reg.Register("CentralPlant.Chiller_1.chw_supply_temp", registry.KindAnalog, "degF", true)
	p, _ := reg.Lookup("CentralPlant.Chiller_1.chw_supply_temp")
	p.SetPresentValue(44.5)

	objs := bacnetip.Build(reg)
	return NewController("", "", "", 389999, reg, objs), reg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func connectRequest(deviceID uint32) []byte {
	msg := make([]byte, 5)
	msg[0] = messageConnectRequest
	msg[1] = byte(deviceID >> 24)
	msg[2] = byte(deviceID >> 16)
	msg[3] = byte(deviceID >> 8)
	msg[4] = byte(deviceID)
	return msg
}

func TestHandshakeAcceptsConnectRequest(t *testing.T) {
	ctrl, _ := newTestController()
	srv := httptest.NewServer(ctrl.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, connectRequest(1001)); err != nil {
		t.Fatalf("write Connect-Request: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read Connect-Accept: %v", err)
	}
	if len(msg) != 1 || msg[0] != messageConnectAccept {
		t.Fatalf("expected Connect-Accept, got %v", msg)
	}
}

func TestWhoIsRoundTripGetsIAm(t *testing.T) {
	ctrl, _ := newTestController()
	srv := httptest.NewServer(ctrl.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	conn.WriteMessage(websocket.BinaryMessage, connectRequest(1002))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read Connect-Accept: %v", err)
	}

	whoIs := []byte{byte(0x1) << 4, 8} // Unconfirmed-Request, WhoIs
	frame := append([]byte{messageEncapsulatedAPDU, npduVersion, npduControl}, whoIs...)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("write WhoIs: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read I-Am: %v", err)
	}
	if len(msg) < 5 || msg[0] != messageEncapsulatedAPDU {
		t.Fatalf("expected encapsulated APDU, got %v", msg)
	}
	apdu := msg[3:]
	if apdu[0]>>4 != 0x1 || apdu[1] != 0 {
		t.Fatalf("expected I-Am, got %v", apdu)
	}
}

func TestDuplicateDeviceIDIsRejected(t *testing.T) {
	ctrl, _ := newTestController()
	srv := httptest.NewServer(ctrl.Handler())
	defer srv.Close()

	first := dial(t, srv)
	defer first.Close()
	first.WriteMessage(websocket.BinaryMessage, connectRequest(2001))
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err != nil {
		t.Fatalf("first handshake: %v", err)
	}

	second := dial(t, srv)
	defer second.Close()
	second.WriteMessage(websocket.BinaryMessage, connectRequest(2001))
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err != nil {
		t.Fatalf("second handshake: %v", err)
	}

	// The duplicate device id is rejected after the handshake, so the
	// connection closes without ever answering an application request.
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := second.ReadMessage(); err == nil {
		t.Fatal("expected connection to close after duplicate device id was rejected")
	}
}
