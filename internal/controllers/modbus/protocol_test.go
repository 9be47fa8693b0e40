package modbus

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/basim-project/basim/internal/registry"
)

func newTestRegistry() (*registry.Registry, *Mapping) {
	r := registry.New()
	r.Register("CentralPlant.Chiller_1.chw_supply_temp", registry.KindAnalog, "degF", true)
	r.Register("CentralPlant.Chiller_1.status", registry.KindBinary, "", true)
	r.Register("CentralPlant.Chiller_1.stage", registry.KindMultiState, "", true)

	p, _ := r.Lookup("CentralPlant.Chiller_1.chw_supply_temp")
	p.SetPresentValue(44.5)
	p, _ = r.Lookup("CentralPlant.Chiller_1.status")
	p.SetPresentValue(1)
	p, _ = r.Lookup("CentralPlant.Chiller_1.stage")
	p.SetPresentValue(2)

	return r, Build(r)
}

func buildReadADU(fc byte, start, qty uint16) []byte {
	pdu := make([]byte, 5)
	pdu[0] = fc
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], qty)
	return buildADU([]byte{0x00, 0x01}, 1, pdu)
}

func TestFrameLengthWaitsForCompleteADU(t *testing.T) {
	adu := buildReadADU(fcReadHoldingRegisters, 0, 2)
	if n := frameLength(adu[:len(adu)-1]); n != 0 {
		t.Fatalf("frameLength on truncated buffer = %d, want 0", n)
	}
	if n := frameLength(adu); n != len(adu) {
		t.Fatalf("frameLength = %d, want %d", n, len(adu))
	}
}

func TestReadAnalogPointRoundTripsThroughTwoRegisters(t *testing.T) {
	r, m := newTestRegistry()
	start, _, _, ok := lookupPathRegister(m, "CentralPlant.Chiller_1.chw_supply_temp")
	if !ok {
		t.Fatal("expected chw_supply_temp to be mapped")
	}

	req := buildReadADU(fcReadHoldingRegisters, start, 2)
	resp := handleADU(r, m, time.Now(), req)

	pdu := resp[mbapHeaderLen:]
	if pdu[0] != fcReadHoldingRegisters {
		t.Fatalf("unexpected function code in response: %x", pdu[0])
	}
	byteCount := pdu[1]
	if byteCount != 4 {
		t.Fatalf("byteCount = %d, want 4", byteCount)
	}
	hi := binary.BigEndian.Uint16(pdu[2:4])
	lo := binary.BigEndian.Uint16(pdu[4:6])
	bits := uint32(hi)<<16 | uint32(lo)
	got := math.Float32frombits(bits)
	if math.Abs(float64(got)-44.5) > 0.01 {
		t.Fatalf("decoded value = %v, want 44.5", got)
	}
}

func TestWriteSingleRegisterOverridesBinaryPoint(t *testing.T) {
	r, m := newTestRegistry()
	start, _, _, ok := lookupPathRegister(m, "CentralPlant.Chiller_1.status")
	if !ok {
		t.Fatal("expected status to be mapped")
	}

	pdu := make([]byte, 5)
	pdu[0] = fcWriteSingleRegister
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], 0)
	adu := buildADU([]byte{0x00, 0x02}, 1, pdu)

	resp := handleADU(r, m, time.Now(), adu)
	respPDU := resp[mbapHeaderLen:]
	if respPDU[0] != fcWriteSingleRegister {
		t.Fatalf("unexpected function code in response: %x", respPDU[0])
	}

	value, _, overridden, err := r.Read("CentralPlant.Chiller_1.status")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !overridden || value != 0 {
		t.Fatalf("expected status overridden to 0, got value=%v overridden=%v", value, overridden)
	}
}

func TestWriteSingleRegisterRejectsAnalogSpan(t *testing.T) {
	r, m := newTestRegistry()
	start, _, _, ok := lookupPathRegister(m, "CentralPlant.Chiller_1.chw_supply_temp")
	if !ok {
		t.Fatal("expected chw_supply_temp to be mapped")
	}

	pdu := make([]byte, 5)
	pdu[0] = fcWriteSingleRegister
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], 1234)
	adu := buildADU([]byte{0x00, 0x03}, 1, pdu)

	resp := handleADU(r, m, time.Now(), adu)
	respPDU := resp[mbapHeaderLen:]
	if respPDU[0] != fcWriteSingleRegister|0x80 {
		t.Fatalf("expected exception response, got function code %x", respPDU[0])
	}
	if respPDU[1] != exceptionIllegalDataAddress {
		t.Fatalf("exception code = %d, want %d", respPDU[1], exceptionIllegalDataAddress)
	}
}

func TestWriteMultipleRegistersOverridesAnalogPoint(t *testing.T) {
	r, m := newTestRegistry()
	start, _, _, ok := lookupPathRegister(m, "CentralPlant.Chiller_1.chw_supply_temp")
	if !ok {
		t.Fatal("expected chw_supply_temp to be mapped")
	}

	bits := math.Float32bits(48.0)
	pdu := make([]byte, 6+4)
	pdu[0] = fcWriteMultipleRegisters
	binary.BigEndian.PutUint16(pdu[1:3], start)
	binary.BigEndian.PutUint16(pdu[3:5], 2)
	pdu[5] = 4
	binary.BigEndian.PutUint16(pdu[6:8], uint16(bits>>16))
	binary.BigEndian.PutUint16(pdu[8:10], uint16(bits&0xFFFF))
	adu := buildADU([]byte{0x00, 0x04}, 1, pdu)

	resp := handleADU(r, m, time.Now(), adu)
	respPDU := resp[mbapHeaderLen:]
	if respPDU[0] != fcWriteMultipleRegisters {
		t.Fatalf("unexpected function code in response: %x", respPDU[0])
	}

	value, _, overridden, err := r.Read("CentralPlant.Chiller_1.chw_supply_temp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !overridden || math.Abs(value-48.0) > 0.01 {
		t.Fatalf("expected override to 48.0, got value=%v overridden=%v", value, overridden)
	}
}

func TestReadUnknownRegisterReturnsIllegalDataAddress(t *testing.T) {
	r, m := newTestRegistry()
	req := buildReadADU(fcReadHoldingRegisters, m.Size()+10, 1)
	resp := handleADU(r, m, time.Now(), req)

	pdu := resp[mbapHeaderLen:]
	if pdu[0] != fcReadHoldingRegisters|0x80 {
		t.Fatalf("expected exception response, got function code %x", pdu[0])
	}
	if pdu[1] != exceptionIllegalDataAddress {
		t.Fatalf("exception code = %d, want %d", pdu[1], exceptionIllegalDataAddress)
	}
}

func TestUnknownFunctionCodeReturnsIllegalFunction(t *testing.T) {
	r, m := newTestRegistry()
	pdu := []byte{0x2B, 0x00}
	adu := buildADU([]byte{0x00, 0x05}, 1, pdu)
	resp := handleADU(r, m, time.Now(), adu)

	respPDU := resp[mbapHeaderLen:]
	if respPDU[0] != 0x2B|0x80 {
		t.Fatalf("unexpected function code in response: %x", respPDU[0])
	}
	if respPDU[1] != exceptionIllegalFunction {
		t.Fatalf("exception code = %d, want %d", respPDU[1], exceptionIllegalFunction)
	}
}

// lookupPathRegister returns the starting register assigned to path, the
// register count it spans, its kind, and whether it was found at all.
func lookupPathRegister(m *Mapping, path string) (start uint16, registers uint16, kind registry.Kind, ok bool) {
	e, ok := m.byPath[path]
	if !ok {
		return 0, 0, 0, false
	}
	return e.start, e.registers, e.kind, true
}
