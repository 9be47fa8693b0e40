package bacnetip

import (
	"time"

	"github.com/basim-project/basim/internal/registry"
)

// writeSource identifies BACnet/IP writes in the registry's priority-array
// audit trail.
const writeSource = "bacnet"

// defaultPriority is used for a WriteProperty request that omits the
// priority parameter, per the BACnet default.
const defaultPriority = 16

// HandleAPDU decodes one confirmed or unconfirmed-request APDU and returns
// the reply APDU to send back (nil for an unconfirmed request needing no
// reply, or an IAm broadcast triggered by WhoIs).
func HandleAPDU(reg *registry.Registry, objs *Objects, deviceInstance uint32, apdu []byte) []byte {
	if len(apdu) == 0 {
		return nil
	}
	pduType := apdu[0] >> 4

	switch pduType {
	case pduConfirmedRequest:
		return handleConfirmedRequest(reg, objs, apdu)
	case pduUnconfirmedRequest:
		return handleUnconfirmedRequest(objs, deviceInstance, apdu)
	default:
		return nil
	}
}

func handleConfirmedRequest(reg *registry.Registry, objs *Objects, apdu []byte) []byte {
	if len(apdu) < 4 {
		return nil
	}
	invokeID := apdu[2]
	serviceChoice := apdu[3]
	params := apdu[4:]

	switch serviceChoice {
	case serviceReadProperty:
		return handleReadProperty(reg, objs, invokeID, params)
	case serviceWriteProperty:
		return handleWriteProperty(reg, objs, invokeID, params)
	default:
		return buildError(invokeID, serviceChoice, errorClassProperty, errorCodeOther)
	}
}

func handleUnconfirmedRequest(objs *Objects, deviceInstance uint32, apdu []byte) []byte {
	if len(apdu) < 2 {
		return nil
	}
	serviceChoice := apdu[1]
	switch serviceChoice {
	case serviceWhoIs:
		return buildIAm(deviceInstance)
	default:
		return nil
	}
}

// decodeObjectAndProperty reads the [0] objectIdentifier and [1]
// propertyIdentifier context-tagged parameters common to ReadProperty and
// WriteProperty requests.
func decodeObjectAndProperty(b []byte) (ref ObjectRef, propID uint32, rest []byte, ok bool) {
	if len(b) < 1 || tagNumberOf(b[0]) != 0 {
		return ObjectRef{}, 0, nil, false
	}
	length := int(b[0] & 0x07)
	if len(b) < 1+length {
		return ObjectRef{}, 0, nil, false
	}
	objRef, err := decodeObjectIdentifier(b[1 : 1+length])
	if err != nil {
		return ObjectRef{}, 0, nil, false
	}
	b = b[1+length:]

	if len(b) < 1 || tagNumberOf(b[0]) != 1 {
		return ObjectRef{}, 0, nil, false
	}
	length = int(b[0] & 0x07)
	if len(b) < 1+length {
		return ObjectRef{}, 0, nil, false
	}
	propID = decodeUnsignedValue(b[1 : 1+length])
	b = b[1+length:]

	return objRef, propID, b, true
}

func handleReadProperty(reg *registry.Registry, objs *Objects, invokeID byte, params []byte) []byte {
	ref, propID, _, ok := decodeObjectAndProperty(params)
	if !ok {
		return buildError(invokeID, serviceReadProperty, errorClassProperty, errorCodeOther)
	}
	path, ok := objs.PathFor(ref)
	if !ok {
		return buildError(invokeID, serviceReadProperty, errorClassObject, errorCodeUnknownObject)
	}

	switch propID {
	case propObjectIdentifier:
		return buildReadPropertyAck(invokeID, ref, propID, encodeAppObjectIdentifier(ref))
	case propObjectType:
		return buildReadPropertyAck(invokeID, ref, propID, encodeAppEnumerated(uint32(ref.Type)))
	case propPresentValue:
		value, _, _, err := reg.Read(path)
		if err != nil {
			return buildError(invokeID, serviceReadProperty, errorClassObject, errorCodeUnknownObject)
		}
		p, _ := reg.Lookup(path)
		return buildReadPropertyAck(invokeID, ref, propID, presentValueBytes(p.Kind(), value))
	default:
		return buildError(invokeID, serviceReadProperty, errorClassProperty, errorCodeUnknownProperty)
	}
}

func handleWriteProperty(reg *registry.Registry, objs *Objects, invokeID byte, params []byte) []byte {
	ref, propID, rest, ok := decodeObjectAndProperty(params)
	if !ok {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeOther)
	}
	if propID != propPresentValue {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeWriteAccessDenied)
	}
	path, ok := objs.PathFor(ref)
	if !ok {
		return buildError(invokeID, serviceWriteProperty, errorClassObject, errorCodeUnknownObject)
	}

	if len(rest) < 1 || !isOpeningTag(rest[0]) || tagNumberOf(rest[0]) != 3 {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeOther)
	}
	rest = rest[1:]
	value, isNull, consumed, err := decodePresentValue(rest)
	if err != nil {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeValueOutOfRange)
	}
	rest = rest[consumed:]
	if len(rest) < 1 || !isClosingTag(rest[0]) || tagNumberOf(rest[0]) != 3 {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeOther)
	}
	rest = rest[1:]

	priority := uint32(defaultPriority)
	if len(rest) > 0 && tagNumberOf(rest[0]) == 4 {
		length := int(rest[0] & 0x07)
		if len(rest) >= 1+length {
			priority = decodeUnsignedValue(rest[1 : 1+length])
		}
	}

	var writeErr error
	if isNull {
		writeErr = reg.Release(path, int(priority))
	} else {
		writeErr = reg.Override(path, value, int(priority), writeSource, time.Now(), 0)
	}
	if writeErr != nil {
		return buildError(invokeID, serviceWriteProperty, errorClassProperty, errorCodeWriteAccessDenied)
	}

	return buildSimpleAck(invokeID, serviceWriteProperty)
}

func buildReadPropertyAck(invokeID byte, ref ObjectRef, propID uint32, valueBytes []byte) []byte {
	out := []byte{byte(pduComplexACK) << 4, invokeID, serviceReadProperty}
	out = append(out, encodeContextObjectIdentifier(0, ref)...)
	out = append(out, encodeContextUnsigned(1, propID)...)
	out = append(out, openingTag(3))
	out = append(out, valueBytes...)
	out = append(out, closingTag(3))
	return out
}

func buildSimpleAck(invokeID byte, serviceChoice byte) []byte {
	return []byte{byte(pduSimpleACK) << 4, invokeID, serviceChoice}
}

func buildError(invokeID byte, serviceChoice byte, class, code uint32) []byte {
	out := []byte{byte(pduError) << 4, invokeID, serviceChoice}
	out = append(out, encodeAppEnumerated(class)...)
	out = append(out, encodeAppEnumerated(code)...)
	return out
}

func buildIAm(deviceInstance uint32) []byte {
	out := []byte{byte(pduUnconfirmedRequest) << 4, serviceIAm}
	out = append(out, encodeAppObjectIdentifier(ObjectRef{Type: ObjectDevice, Instance: deviceInstance})...)
	out = append(out, encodeAppUnsigned(1476)...)  // max APDU length accepted
	out = append(out, encodeAppEnumerated(0)...)   // segmentation-supported: none
	out = append(out, encodeAppUnsigned(0)...)     // vendor id
	return out
}
