package kura

import (
	"fmt"
	"reflect"
)

// Builder caches the table of component type T so that spawning and
// accessing many entities with T skips the per-call type lookup.
type Builder[T any] struct {
	nexus *Nexus
	col   *column[T]
}

// NewBuilder creates a Builder for T, registering T if needed.
func NewBuilder[T any](n *Nexus) *Builder[T] {
	return &Builder[T]{nexus: n, col: columnOf[T](n)}
}

// ID returns the ComponentID of T.
func (b *Builder[T]) ID() ComponentID {
	return b.col.id
}

// NewEntity creates an entity holding v.
func (b *Builder[T]) NewEntity(v T) Entity {
	e := b.nexus.CreateEntity()
	// a fresh entity has no components, attach cannot fail
	if _, err := attach(b.nexus, b.col, e, v); err != nil {
		panic(err)
	}
	return e
}

// NewEntities creates count entities each holding a copy of v.
func (b *Builder[T]) NewEntities(count int, v T) []Entity {
	if count <= 0 {
		return nil
	}
	ents := make([]Entity, count)
	for i := range ents {
		ents[i] = b.NewEntity(v)
	}
	return ents
}

// Get returns e's T, or nil.
func (b *Builder[T]) Get(e Entity) *T {
	if !b.nexus.IsValid(e) {
		return nil
	}
	return b.col.get(e.ID)
}

// Set overwrites e's T in place, or attaches it when missing.
func (b *Builder[T]) Set(e Entity, v T) error {
	if !b.nexus.IsValid(e) {
		return fmt.Errorf("set %s on %s: %w", reflect.TypeFor[T](), e, ErrEntityNotFound)
	}
	if p := b.col.get(e.ID); p != nil {
		*p = v
		return nil
	}
	_, err := attach(b.nexus, b.col, e, v)
	return err
}
