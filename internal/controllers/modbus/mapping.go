package modbus

import (
	"github.com/basim-project/basim/internal/registry"
)

// entry describes one registered point's placement in the holding-register
// address space: its starting register and how many consecutive registers
// it occupies.
type entry struct {
	path      string
	kind      registry.Kind
	start     uint16
	registers uint16 // 2 for a 32-bit float analog point, 1 otherwise
}

// Mapping is the static register_index -> point_path table built once at
// assembly time, per the specification. Point order follows
// registry.Paths(), so the mapping is stable across runs for a given
// campus assembly.
type Mapping struct {
	byRegister map[uint16]*entry
	byPath     map[string]*entry
	size       uint16
}

// Build walks every point currently registered and assigns it the next
// free holding-register range: 2 registers for an analog point (a 32-bit
// float spans two consecutive big-endian registers), 1 for binary or
// multi-state.
func Build(reg *registry.Registry) *Mapping {
	m := &Mapping{
		byRegister: make(map[uint16]*entry),
		byPath:     make(map[string]*entry),
	}

	next := uint16(0)
	for _, path := range reg.Paths() {
		p, ok := reg.Lookup(path)
		if !ok {
			continue
		}
		regs := uint16(1)
		if p.Kind() == registry.KindAnalog {
			regs = 2
		}
		e := &entry{path: path, kind: p.Kind(), start: next, registers: regs}
		for i := uint16(0); i < regs; i++ {
			m.byRegister[next+i] = e
		}
		m.byPath[path] = e
		next += regs
	}
	m.size = next
	return m
}

// Lookup returns the point whose range contains register, and register's
// offset (0 or 1) within that point's range.
func (m *Mapping) Lookup(register uint16) (path string, kind registry.Kind, offset uint16, ok bool) {
	e, ok := m.byRegister[register]
	if !ok {
		return "", 0, 0, false
	}
	return e.path, e.kind, register - e.start, true
}

// RegisterSpan returns how many consecutive registers the entry containing
// register occupies, and whether it was found at all.
func (m *Mapping) RegisterSpan(register uint16) (uint16, bool) {
	e, ok := m.byRegister[register]
	if !ok {
		return 0, false
	}
	return e.registers, true
}

// Size returns the total number of holding registers spanned by the
// mapping, for bounds-checking multi-register requests.
func (m *Mapping) Size() uint16 { return m.size }
