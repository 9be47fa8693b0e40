package bacnetip

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/basim-project/basim/internal/registry"
)

// BVLC (BACnet Virtual Link Control) identifies the frame as BACnet/IP and
// says whether it was unicast or broadcast at the link layer.
const (
	bvlcType          = 0x81
	bvlcFuncUnicast   = 0x0A
	bvlcFuncBroadcast = 0x0B
)

// NPDU (Network PDU) version and control byte this gateway always sends:
// no destination/source network routing, not a network-layer message.
const (
	npduVersion = 0x01
	npduControl = 0x00
)

// PDU types occupy the top nibble of the first APDU byte.
const (
	pduConfirmedRequest   = 0x0
	pduUnconfirmedRequest = 0x1
	pduSimpleACK          = 0x2
	pduComplexACK         = 0x3
	pduError              = 0x5
)

// Service choices this gateway implements.
const (
	serviceIAm                  = 0
	serviceReadProperty         = 12
	serviceReadPropertyMultiple = 14
	serviceWriteProperty        = 15
	serviceWhoIs                = 8
)

// Property identifiers referenced by the services above.
const (
	propObjectIdentifier = 75
	propObjectName       = 77
	propObjectType       = 79
	propPresentValue     = 85
)

// Application tag numbers for primitive values.
const (
	appTagNull             = 0
	appTagUnsigned         = 2
	appTagReal             = 4
	appTagEnumerated       = 9
	appTagObjectIdentifier = 12
)

// Error class/code pairs this gateway can report.
const (
	errorClassObject   = 1
	errorClassProperty = 2

	errorCodeUnknownObject       = 31
	errorCodeUnknownProperty     = 32
	errorCodeWriteAccessDenied   = 40
	errorCodeValueOutOfRange     = 37
	errorCodeOther               = 0
)

var errShortBuffer = errors.New("bacnetip: short buffer")

// tagByte builds a tag octet for the small lengths (0-4 bytes) and tag
// numbers (0-14) this gateway ever needs; BACnet's extended tag-number and
// extended-length encodings never come up at BASim's object count.
func tagByte(tagNumber int, context bool, length int) byte {
	b := byte(tagNumber << 4)
	if context {
		b |= 0x08
	}
	b |= byte(length)
	return b
}

func openingTag(tagNumber int) byte { return byte(tagNumber<<4) | 0x0E }
func closingTag(tagNumber int) byte { return byte(tagNumber<<4) | 0x0F }

func isOpeningTag(b byte) bool { return b&0x07 == 0x06 && b&0x08 != 0 }
func isClosingTag(b byte) bool { return b&0x07 == 0x07 && b&0x08 != 0 }
func tagNumberOf(b byte) int   { return int(b >> 4) }

// encodeObjectIdentifier packs a BACnet object identifier into its 4-byte
// application- or context-tagged value: top 10 bits object type, bottom 22
// bits instance number.
func encodeObjectIdentifier(ref ObjectRef) []byte {
	v := (uint32(ref.Type) << 22) | (ref.Instance & 0x3FFFFF)
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

func decodeObjectIdentifier(b []byte) (ObjectRef, error) {
	if len(b) < 4 {
		return ObjectRef{}, errShortBuffer
	}
	v := binary.BigEndian.Uint32(b[:4])
	return ObjectRef{Type: ObjectType(v >> 22), Instance: v & 0x3FFFFF}, nil
}

func encodeContextObjectIdentifier(tagNumber int, ref ObjectRef) []byte {
	return append([]byte{tagByte(tagNumber, true, 4)}, encodeObjectIdentifier(ref)...)
}

func encodeAppObjectIdentifier(ref ObjectRef) []byte {
	return append([]byte{tagByte(appTagObjectIdentifier, false, 4)}, encodeObjectIdentifier(ref)...)
}

func encodeContextUnsigned(tagNumber int, v uint32) []byte {
	enc := encodeUnsignedValue(v)
	return append([]byte{tagByte(tagNumber, true, len(enc))}, enc...)
}

func encodeAppUnsigned(v uint32) []byte {
	enc := encodeUnsignedValue(v)
	return append([]byte{tagByte(appTagUnsigned, false, len(enc))}, enc...)
}

// encodeUnsignedValue returns v in the minimum number of big-endian bytes.
func encodeUnsignedValue(v uint32) []byte {
	switch {
	case v <= 0xFF:
		return []byte{byte(v)}
	case v <= 0xFFFF:
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(v))
		return out
	default:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, v)
		return out
	}
}

func decodeUnsignedValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func encodeAppEnumerated(v uint32) []byte {
	enc := encodeUnsignedValue(v)
	return append([]byte{tagByte(appTagEnumerated, false, len(enc))}, enc...)
}

func encodeAppReal(v float32) []byte {
	out := make([]byte, 5)
	out[0] = tagByte(appTagReal, false, 4)
	binary.BigEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

func encodeAppNull() []byte {
	return []byte{tagByte(appTagNull, false, 0)}
}

// presentValueBytes encodes a point's current value as the application
// primitive its kind uses on the wire: Real for analog, Enumerated for
// binary and multi-state.
func presentValueBytes(kind registry.Kind, value float64) []byte {
	if kind == registry.KindAnalog {
		return encodeAppReal(float32(value))
	}
	return encodeAppEnumerated(uint32(value))
}

// decodePresentValue reads a single application-tagged primitive (Real,
// Enumerated/Unsigned or Null) and returns its numeric value, or isNull=true
// for Null (a release at this priority).
func decodePresentValue(b []byte) (value float64, isNull bool, consumed int, err error) {
	if len(b) == 0 {
		return 0, false, 0, errShortBuffer
	}
	tagNum := tagNumberOf(b[0])
	length := int(b[0] & 0x07)
	switch tagNum {
	case appTagNull:
		return 0, true, 1, nil
	case appTagReal:
		if len(b) < 5 {
			return 0, false, 0, errShortBuffer
		}
		bits := binary.BigEndian.Uint32(b[1:5])
		return float64(math.Float32frombits(bits)), false, 5, nil
	case appTagUnsigned, appTagEnumerated:
		if len(b) < 1+length {
			return 0, false, 0, errShortBuffer
		}
		return float64(decodeUnsignedValue(b[1 : 1+length])), false, 1 + length, nil
	default:
		return 0, false, 0, errors.New("bacnetip: unsupported value tag")
	}
}
