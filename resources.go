package kura

import (
	"fmt"
	"reflect"
)

// Resources is a typed singleton store for world context that is not tied to
// any entity: asset caches, resource roots, clocks. A Nexus hands its
// Resources to encode/decode hooks so a component can, for example, turn a
// loaded asset handle into a path before encoding and back after decoding.
//
// At most one resource per type is stored. Slots are reused through a free
// list so repeated add/remove cycles do not grow the backing slice.
type Resources struct {
	items   []any
	types   map[reflect.Type]int
	freeIDs []int
}

// Add stores res and returns its slot. It panics if res is nil or a resource
// of the same dynamic type already exists.
func (r *Resources) Add(res any) int {
	if res == nil {
		panic("kura: cannot add nil resource")
	}
	t := reflect.TypeOf(res)
	if r.types == nil {
		r.types = make(map[reflect.Type]int)
	}
	if _, ok := r.types[t]; ok {
		panic(fmt.Sprintf("kura: resource of type %s already exists", t))
	}
	var id int
	if last := len(r.freeIDs) - 1; last >= 0 {
		id = r.freeIDs[last]
		r.freeIDs = r.freeIDs[:last]
		r.items[id] = res
	} else {
		r.items = append(r.items, res)
		id = len(r.items) - 1
	}
	r.types[t] = id
	return id
}

// Has reports whether slot id holds a resource.
func (r *Resources) Has(id int) bool {
	return id >= 0 && id < len(r.items) && r.items[id] != nil
}

// Get returns the resource in slot id, or nil.
func (r *Resources) Get(id int) any {
	if !r.Has(id) {
		return nil
	}
	return r.items[id]
}

// Remove frees slot id.
func (r *Resources) Remove(id int) {
	if !r.Has(id) {
		return
	}
	delete(r.types, reflect.TypeOf(r.items[id]))
	r.items[id] = nil
	r.freeIDs = append(r.freeIDs, id)
}

// Len returns the number of stored resources.
func (r *Resources) Len() int {
	return len(r.types)
}

// Clear removes all resources.
func (r *Resources) Clear() {
	clear(r.items)
	r.items = r.items[:0]
	clear(r.types)
	r.freeIDs = r.freeIDs[:0]
}

// AddResource stores res, keyed by *T.
func AddResource[T any](r *Resources, res *T) int {
	return r.Add(res)
}

// GetResource returns the stored *T, or nil.
func GetResource[T any](r *Resources) *T {
	if id, ok := r.types[reflect.TypeFor[*T]()]; ok {
		return r.items[id].(*T)
	}
	return nil
}

// HasResource reports whether a *T is stored.
func HasResource[T any](r *Resources) bool {
	_, ok := r.types[reflect.TypeFor[*T]()]
	return ok
}

// RemoveResource removes the stored *T, if any.
func RemoveResource[T any](r *Resources) {
	if id, ok := r.types[reflect.TypeFor[*T]()]; ok {
		r.Remove(id)
	}
}
