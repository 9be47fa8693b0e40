// Package modbus implements a Modbus/TCP server exposing every registry
// point over a static register mapping built at assembly time: 03/04
// reads the registry, 06/16 writes override it at priority 8.
package modbus

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/basim-project/basim/internal/registry"
)

const (
	fcReadHoldingRegisters   = 0x03
	fcReadInputRegisters     = 0x04
	fcWriteSingleRegister    = 0x06
	fcWriteMultipleRegisters = 0x10

	exceptionIllegalFunction    = 0x01
	exceptionIllegalDataAddress = 0x02
	exceptionIllegalDataValue   = 0x03
)

// mbapHeaderLen is the Modbus TCP Application Protocol header: transaction
// id (2 bytes), protocol id (2 bytes, always 0), length (2 bytes, counts
// unit id + PDU), unit id (1 byte).
const mbapHeaderLen = 7

// overrideSource identifies writes made through this gateway in the
// registry's priority-array audit trail.
const overrideSource = "modbus"

// overridePriority is the fixed priority every Modbus write lands at, per
// the specification.
const overridePriority = 8

// frameLength reports the total byte length of the ADU at the front of
// buf (MBAP header + PDU), or 0 if buf doesn't yet hold a complete frame.
func frameLength(buf []byte) int {
	if len(buf) < mbapHeaderLen {
		return 0
	}
	length := binary.BigEndian.Uint16(buf[4:6])
	total := 6 + int(length)
	if total < mbapHeaderLen || len(buf) < total {
		return 0
	}
	return total
}

// handleADU decodes one complete Modbus TCP ADU, dispatches it against
// reg via m, and returns the response ADU (same transaction id and unit
// id, a PDU reply or exception).
func handleADU(reg *registry.Registry, m *Mapping, now time.Time, adu []byte) []byte {
	transactionID := adu[0:2]
	unitID := adu[6]
	pdu := adu[mbapHeaderLen:]

	fc := pdu[0]
	respPDU, excCode := handlePDU(reg, m, now, fc, pdu[1:])
	if excCode != 0 {
		respPDU = []byte{fc | 0x80, excCode}
	}
	return buildADU(transactionID, unitID, respPDU)
}

func buildADU(transactionID []byte, unitID byte, pdu []byte) []byte {
	out := make([]byte, mbapHeaderLen+len(pdu))
	copy(out[0:2], transactionID)
	// protocol id stays 0
	binary.BigEndian.PutUint16(out[4:6], uint16(1+len(pdu)))
	out[6] = unitID
	copy(out[7:], pdu)
	return out
}

// handlePDU returns either a reply PDU (excCode == 0) or a Modbus
// exception code to wrap into an exception response.
func handlePDU(reg *registry.Registry, m *Mapping, now time.Time, fc byte, data []byte) ([]byte, byte) {
	switch fc {
	case fcReadHoldingRegisters, fcReadInputRegisters:
		return handleReadRegisters(reg, m, data)
	case fcWriteSingleRegister:
		return handleWriteSingleRegister(reg, m, now, data)
	case fcWriteMultipleRegisters:
		return handleWriteMultipleRegisters(reg, m, now, data)
	default:
		return nil, exceptionIllegalFunction
	}
}

func handleReadRegisters(reg *registry.Registry, m *Mapping, data []byte) ([]byte, byte) {
	if len(data) < 4 {
		return nil, exceptionIllegalDataValue
	}
	start := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	if qty == 0 || qty > 125 {
		return nil, exceptionIllegalDataValue
	}

	out := make([]byte, 1+int(qty)*2)
	out[0] = byte(qty * 2)
	for i := uint16(0); i < qty; i++ {
		word, ok := readRegisterWord(reg, m, start+i)
		if !ok {
			return nil, exceptionIllegalDataAddress
		}
		binary.BigEndian.PutUint16(out[1+int(i)*2:], word)
	}
	return out, 0
}

func readRegisterWord(reg *registry.Registry, m *Mapping, register uint16) (uint16, bool) {
	path, kind, offset, ok := m.Lookup(register)
	if !ok {
		return 0, false
	}
	value, _, _, err := reg.Read(path)
	if err != nil {
		return 0, false
	}
	if kind == registry.KindAnalog {
		return analogRegisterWord(value, offset), true
	}
	return uint16(value), true
}

func analogRegisterWord(value float64, offset uint16) uint16 {
	bits := math.Float32bits(float32(value))
	if offset == 0 {
		return uint16(bits >> 16)
	}
	return uint16(bits & 0xFFFF)
}

func handleWriteSingleRegister(reg *registry.Registry, m *Mapping, now time.Time, data []byte) ([]byte, byte) {
	if len(data) < 4 {
		return nil, exceptionIllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	val := binary.BigEndian.Uint16(data[2:4])

	path, kind, offset, ok := m.Lookup(addr)
	if !ok {
		return nil, exceptionIllegalDataAddress
	}
	if kind == registry.KindAnalog || offset != 0 {
		// Analog points span two registers and must be written via 0x10.
		return nil, exceptionIllegalDataAddress
	}

	if err := reg.Override(path, float64(val), overridePriority, overrideSource, now, 0); err != nil {
		return nil, exceptionIllegalDataAddress
	}
	return data[0:4], 0
}

func handleWriteMultipleRegisters(reg *registry.Registry, m *Mapping, now time.Time, data []byte) ([]byte, byte) {
	if len(data) < 5 {
		return nil, exceptionIllegalDataValue
	}
	start := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	byteCount := data[4]
	if int(byteCount) != int(qty)*2 || len(data) < 5+int(byteCount) {
		return nil, exceptionIllegalDataValue
	}
	values := data[5 : 5+int(byteCount)]

	path, kind, offset, ok := m.Lookup(start)
	if !ok {
		return nil, exceptionIllegalDataAddress
	}

	span, _ := m.RegisterSpan(start)
	if kind == registry.KindAnalog {
		if offset != 0 || qty != 2 || span != 2 {
			return nil, exceptionIllegalDataAddress
		}
		hi := binary.BigEndian.Uint16(values[0:2])
		lo := binary.BigEndian.Uint16(values[2:4])
		bits := uint32(hi)<<16 | uint32(lo)
		v := float64(math.Float32frombits(bits))
		if err := reg.Override(path, v, overridePriority, overrideSource, now, 0); err != nil {
			return nil, exceptionIllegalDataAddress
		}
	} else {
		if qty != 1 || offset != 0 {
			return nil, exceptionIllegalDataAddress
		}
		v := float64(binary.BigEndian.Uint16(values[0:2]))
		if err := reg.Override(path, v, overridePriority, overrideSource, now, 0); err != nil {
			return nil, exceptionIllegalDataAddress
		}
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[0:2], start)
	binary.BigEndian.PutUint16(out[2:4], qty)
	return out, 0
}
