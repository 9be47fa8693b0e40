// Package registry implements the point address space: a hierarchical,
// dotted-path namespace of typed simulation variables, each backed by a
// BACnet-style 16-slot priority override stack with auto-expiry.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry is the shared address space every equipment model and protocol
// gateway operates against. Point lookup and creation are guarded by the
// registry's own RWMutex; value reads and writes are guarded per-point so the
// common read path never blocks on the map lock.
type Registry struct {
	mu     sync.RWMutex
	points map[string]*Point

	// view holds the last tick-boundary snapshot. Readers load it without
	// ever blocking on an in-progress tick.
	view atomic.Pointer[map[string]Snapshot]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{points: make(map[string]*Point)}
	empty := make(map[string]Snapshot)
	r.view.Store(&empty)
	return r
}

// Register adds a new point to the address space. Called only during campus
// assembly, before the tick loop starts.
func (r *Registry) Register(path string, kind Kind, units string, writable bool) *Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := NewPoint(path, kind, units, writable)
	r.points[path] = p
	return p
}

// Lookup returns the point at path, for use by equipment models that own it.
func (r *Registry) Lookup(path string) (*Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.points[path]
	return p, ok
}

// MustLookup returns the point at path, or panics. Equipment models call
// this for points they declare as owned at assembly time — a miss means a
// wiring bug, not a runtime condition.
func (r *Registry) MustLookup(path string) *Point {
	p, ok := r.Lookup(path)
	if !ok {
		panic(fmt.Sprintf("registry: point %q not registered", path))
	}
	return p
}

// Read returns a point's effective value, units, and override status. Fails
// with ErrUnknownPoint if path isn't registered.
func (r *Registry) Read(path string) (value float64, units string, overridden bool, err error) {
	p, ok := r.Lookup(path)
	if !ok {
		return 0, "", false, newError(ErrUnknownPoint, path, nil)
	}
	value, overridden = p.EffectiveValue()
	return value, p.Units(), overridden, nil
}

// Override writes v into priority slot pr at path. duration, if non-zero,
// sets an expiry relative to now.
func (r *Registry) Override(path string, v float64, pr int, source string, now time.Time, duration time.Duration) error {
	p, ok := r.Lookup(path)
	if !ok {
		return newError(ErrUnknownPoint, path, nil)
	}
	var expiresAt *time.Time
	if duration > 0 {
		t := now.Add(duration)
		expiresAt = &t
	}
	return p.Override(v, pr, source, expiresAt)
}

// Release clears priority slot pr at path, or every slot when pr is zero.
func (r *Registry) Release(path string, pr int) error {
	p, ok := r.Lookup(path)
	if !ok {
		return newError(ErrUnknownPoint, path, nil)
	}
	return p.Release(pr)
}

// Overrides returns the occupied priority slots at path.
func (r *Registry) Overrides(path string) ([]OverrideSlot, error) {
	p, ok := r.Lookup(path)
	if !ok {
		return nil, newError(ErrUnknownPoint, path, nil)
	}
	return p.Overrides(), nil
}

// AllOverrides returns every occupied priority slot across the whole
// registry, keyed by path, for the overrides-listing API endpoint.
func (r *Registry) AllOverrides() map[string][]OverrideSlot {
	r.mu.RLock()
	paths := make([]*Point, 0, len(r.points))
	for _, p := range r.points {
		paths = append(paths, p)
	}
	r.mu.RUnlock()

	out := make(map[string][]OverrideSlot)
	for _, p := range paths {
		if slots := p.Overrides(); len(slots) > 0 {
			out[p.Path()] = slots
		}
	}
	return out
}

// Expire clears every expired priority slot across the registry. Called
// once per tick, before equipment models advance.
func (r *Registry) Expire(now time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.points {
		p.Expire(now)
	}
}

// PublishSnapshot computes a fresh point-in-time view of the whole registry
// and atomically publishes it, so that Snapshot() readers never observe a
// partially-advanced tick. Called once at the end of each tick, after every
// equipment model has finished advancing.
func (r *Registry) PublishSnapshot() {
	r.mu.RLock()
	next := make(map[string]Snapshot, len(r.points))
	for path, p := range r.points {
		next[path] = p.snapshot()
	}
	r.mu.RUnlock()
	r.view.Store(&next)
}

// Snapshot returns the most recently published tick-boundary view, filtered
// to paths under prefix (or all paths, if prefix is empty), keyed by path.
func (r *Registry) Snapshot(prefix string) map[string]Snapshot {
	view := *r.view.Load()
	if prefix == "" {
		out := make(map[string]Snapshot, len(view))
		for k, v := range view {
			out[k] = v
		}
		return out
	}
	out := make(map[string]Snapshot)
	for k, v := range view {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// Paths returns every registered point path, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.points))
	for p := range r.points {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of registered points.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}
