package bacnetip

import (
	"math"
	"testing"

	"github.com/basim-project/basim/internal/registry"
)

func newTestRegistry() (*registry.Registry, *Objects) {
	r := registry.New()
	r.Register("CentralPlant.Chiller_1.chw_supply_temp", registry.KindAnalog, "degF", true)
	r.Register("CentralPlant.Chiller_1.status", registry.KindBinary, "", true)

	p, _ := r.Lookup("CentralPlant.Chiller_1.chw_supply_temp")
	p.SetPresentValue(44.5)
	p, _ = r.Lookup("CentralPlant.Chiller_1.status")
	p.SetPresentValue(1)

	return r, Build(r)
}

func buildReadPropertyRequest(invokeID byte, ref ObjectRef, propID uint32) []byte {
	out := []byte{byte(pduConfirmedRequest) << 4, 0x05, invokeID, serviceReadProperty}
	out = append(out, encodeContextObjectIdentifier(0, ref)...)
	out = append(out, encodeContextUnsigned(1, propID)...)
	return out
}

func TestReadPropertyPresentValueAnalog(t *testing.T) {
	reg, objs := newTestRegistry()
	ref, ok := objs.RefFor("CentralPlant.Chiller_1.chw_supply_temp")
	if !ok {
		t.Fatal("expected chw_supply_temp to be mapped")
	}

	req := buildReadPropertyRequest(7, ref, propPresentValue)
	resp := HandleAPDU(reg, objs, 389999, req)
	if resp == nil || resp[0]>>4 != pduComplexACK {
		t.Fatalf("expected Complex-ACK, got %v", resp)
	}
	if resp[1] != 7 {
		t.Fatalf("invoke id = %d, want 7", resp[1])
	}

	// property-value is wrapped in an opening/closing context tag 3.
	params := resp[3:]
	_, _, rest, ok := decodeObjectAndProperty(params)
	if !ok {
		t.Fatal("failed to decode echoed object/property")
	}
	if len(rest) < 1 || !isOpeningTag(rest[0]) {
		t.Fatalf("expected opening tag 3, got %x", rest[0])
	}
	value, isNull, _, err := decodePresentValue(rest[1:])
	if err != nil {
		t.Fatalf("decodePresentValue: %v", err)
	}
	if isNull {
		t.Fatal("expected a real value, got null")
	}
	if math.Abs(value-44.5) > 0.01 {
		t.Fatalf("value = %v, want 44.5", value)
	}
}

func buildWritePropertyRequest(invokeID byte, ref ObjectRef, propID uint32, valueBytes []byte, priority uint32) []byte {
	out := []byte{byte(pduConfirmedRequest) << 4, 0x05, invokeID, serviceWriteProperty}
	out = append(out, encodeContextObjectIdentifier(0, ref)...)
	out = append(out, encodeContextUnsigned(1, propID)...)
	out = append(out, openingTag(3))
	out = append(out, valueBytes...)
	out = append(out, closingTag(3))
	out = append(out, encodeContextUnsigned(4, priority)...)
	return out
}

func TestWritePropertyOverridesAnalogPoint(t *testing.T) {
	reg, objs := newTestRegistry()
	ref, _ := objs.RefFor("CentralPlant.Chiller_1.chw_supply_temp")

	req := buildWritePropertyRequest(9, ref, propPresentValue, encodeAppReal(48.0), 8)
	resp := HandleAPDU(reg, objs, 389999, req)
	if resp == nil || resp[0]>>4 != pduSimpleACK {
		t.Fatalf("expected Simple-ACK, got %v", resp)
	}

	value, _, overridden, err := reg.Read("CentralPlant.Chiller_1.chw_supply_temp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !overridden || math.Abs(value-48.0) > 0.01 {
		t.Fatalf("expected override to 48.0, got value=%v overridden=%v", value, overridden)
	}

	slots, err := reg.Overrides("CentralPlant.Chiller_1.chw_supply_temp")
	if err != nil || len(slots) != 1 || slots[0].Priority != 8 {
		t.Fatalf("expected one priority-8 slot, got %+v (err=%v)", slots, err)
	}
}

func TestWritePropertyNullReleasesPriority(t *testing.T) {
	reg, objs := newTestRegistry()
	ref, _ := objs.RefFor("CentralPlant.Chiller_1.chw_supply_temp")

	setReq := buildWritePropertyRequest(10, ref, propPresentValue, encodeAppReal(48.0), 8)
	if resp := HandleAPDU(reg, objs, 389999, setReq); resp[0]>>4 != pduSimpleACK {
		t.Fatalf("setup write failed: %v", resp)
	}

	releaseReq := buildWritePropertyRequest(11, ref, propPresentValue, encodeAppNull(), 8)
	resp := HandleAPDU(reg, objs, 389999, releaseReq)
	if resp == nil || resp[0]>>4 != pduSimpleACK {
		t.Fatalf("expected Simple-ACK for release, got %v", resp)
	}

	_, _, overridden, err := reg.Read("CentralPlant.Chiller_1.chw_supply_temp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if overridden {
		t.Fatal("expected override to be released")
	}
}

func TestReadPropertyUnknownObjectReturnsError(t *testing.T) {
	reg, objs := newTestRegistry()
	req := buildReadPropertyRequest(1, ObjectRef{Type: ObjectAnalogValue, Instance: 9999}, propPresentValue)
	resp := HandleAPDU(reg, objs, 389999, req)
	if resp == nil || resp[0]>>4 != pduError {
		t.Fatalf("expected Error PDU, got %v", resp)
	}
}

func TestWhoIsGetsIAmForConfiguredDevice(t *testing.T) {
	reg, objs := newTestRegistry()
	whoIs := []byte{byte(pduUnconfirmedRequest) << 4, serviceWhoIs}
	resp := HandleAPDU(reg, objs, 389999, whoIs)
	if resp == nil || resp[0]>>4 != pduUnconfirmedRequest || resp[1] != serviceIAm {
		t.Fatalf("expected I-Am, got %v", resp)
	}
}

func TestBVLCRoundTrip(t *testing.T) {
	apdu := []byte{byte(pduUnconfirmedRequest) << 4, serviceWhoIs}
	framed := wrapBVLC(apdu)
	npdu, ok := stripBVLC(framed)
	if !ok {
		t.Fatal("stripBVLC failed")
	}
	decoded, ok := stripNPDU(npdu)
	if !ok {
		t.Fatal("stripNPDU failed")
	}
	if len(decoded) != len(apdu) || decoded[0] != apdu[0] || decoded[1] != apdu[1] {
		t.Fatalf("round trip mismatch: got %v, want %v", decoded, apdu)
	}
}
