// Package bacnetip implements a BACnet/IP device: one analog_value,
// binary_value or multi_state_value object per registry point, answering
// ReadProperty, WriteProperty, WhoIs and IAm over UDP/47808.
// ReadPropertyMultiple is not implemented: such a request is answered with
// an Error PDU.
package bacnetip

import (
	"github.com/basim-project/basim/internal/registry"
)

// ObjectType is a BACnet object-type enumeration value. Only the three
// value-object types BASim exposes and the device type used in I-Am are
// named here.
type ObjectType uint16

const (
	ObjectAnalogValue     ObjectType = 2
	ObjectBinaryValue     ObjectType = 5
	ObjectDevice          ObjectType = 8
	ObjectMultiStateValue ObjectType = 19
)

func objectTypeFor(k registry.Kind) ObjectType {
	switch k {
	case registry.KindBinary:
		return ObjectBinaryValue
	case registry.KindMultiState:
		return ObjectMultiStateValue
	default:
		return ObjectAnalogValue
	}
}

// ObjectRef identifies one BACnet object: its type and instance number.
type ObjectRef struct {
	Type     ObjectType
	Instance uint32
}

// Objects is the static object-identifier <-> point-path table built once
// at assembly time, the BACnet/IP analogue of the Modbus gateway's
// register Mapping. Each point kind gets its own per-type instance
// counter, e.g. the first binary point is binary_value,0 regardless of
// how many analog_value objects precede it.
type Objects struct {
	byRef  map[ObjectRef]string
	byPath map[string]ObjectRef
	paths  []string
}

// Build walks every registered point and assigns it an object reference.
func Build(reg *registry.Registry) *Objects {
	o := &Objects{
		byRef:  make(map[ObjectRef]string),
		byPath: make(map[string]ObjectRef),
	}
	counters := make(map[ObjectType]uint32)
	for _, path := range reg.Paths() {
		p, ok := reg.Lookup(path)
		if !ok {
			continue
		}
		t := objectTypeFor(p.Kind())
		ref := ObjectRef{Type: t, Instance: counters[t]}
		counters[t]++
		o.byRef[ref] = path
		o.byPath[path] = ref
		o.paths = append(o.paths, path)
	}
	return o
}

// PathFor returns the point path backing ref.
func (o *Objects) PathFor(ref ObjectRef) (string, bool) {
	path, ok := o.byRef[ref]
	return path, ok
}

// RefFor returns the object reference assigned to path.
func (o *Objects) RefFor(path string) (ObjectRef, bool) {
	ref, ok := o.byPath[path]
	return ref, ok
}

// Paths returns every mapped point path, in assignment order.
func (o *Objects) Paths() []string { return o.paths }
