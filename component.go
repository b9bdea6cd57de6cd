package kura

import (
	"fmt"
	"reflect"
)

// ComponentID is a process-local type tag for a component type. It is assigned
// by a Nexus on first use of a Go type and must never be persisted: the same
// type may receive a different ID in another Nexus or another build.
type ComponentID uint8

// MaxComponentTypes defines the maximum number of unique component types that
// can be registered in one Nexus.
const MaxComponentTypes = 256

// componentRegistry maps Go types to component IDs and owns one table per type.
type componentRegistry struct {
	typeToID map[reflect.Type]ComponentID
	idToType [MaxComponentTypes]reflect.Type
	tables   [MaxComponentTypes]componentTable
	next     int // counter for assigning new component type IDs
}

func newComponentRegistry() componentRegistry {
	return componentRegistry{typeToID: make(map[reflect.Type]ComponentID, 16)}
}

// ComponentIDOf registers or fetches the ComponentID of type T in the nexus.
// It panics once more than MaxComponentTypes distinct types are used.
func ComponentIDOf[T any](n *Nexus) ComponentID {
	return columnOf[T](n).id
}

// ComponentType returns the Go type registered under id, or nil.
func (n *Nexus) ComponentType(id ComponentID) reflect.Type {
	return n.components.idToType[id]
}

// lookupID fetches the id of t without registering it.
func (r *componentRegistry) lookupID(t reflect.Type) (ComponentID, bool) {
	id, ok := r.typeToID[t]
	return id, ok
}

// columnOf returns the typed table for T, creating it on first use.
func columnOf[T any](n *Nexus) *column[T] {
	t := reflect.TypeFor[T]()
	if id, ok := n.components.typeToID[t]; ok {
		return n.components.tables[id].(*column[T])
	}
	if n.components.next >= MaxComponentTypes {
		panic(fmt.Sprintf("kura: too many component types, cannot register %s", t))
	}
	id := ComponentID(n.components.next)
	n.components.next++
	c := newColumn[T](id, n.initialCapacity)
	n.components.typeToID[t] = id
	n.components.idToType[id] = t
	n.components.tables[id] = c
	return c
}

// lookupColumn returns the typed table for T without registering it.
func lookupColumn[T any](n *Nexus) (*column[T], bool) {
	id, ok := n.components.lookupID(reflect.TypeFor[T]())
	if !ok {
		return nil, false
	}
	return n.components.tables[id].(*column[T]), true
}
