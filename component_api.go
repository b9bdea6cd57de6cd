package kura

import (
	"fmt"
	"reflect"
)

// Add attaches v to entity e and returns a pointer to the stored copy.
//
// It fails with ErrEntityNotFound if e is not live and with
// ErrComponentExists if e already holds a component of type T; in both cases
// nothing is modified. On success every group whose trait set involves T is
// re-evaluated for e before Add returns.
//
// The returned pointer refers to dense storage and is only valid until the
// next structural change of T's table.
func Add[T any](n *Nexus, e Entity, v T) (*T, error) {
	if !n.IsValid(e) {
		return nil, fmt.Errorf("add %s to %s: %w", reflect.TypeFor[T](), e, ErrEntityNotFound)
	}
	return attach(n, columnOf[T](n), e, v)
}

func attach[T any](n *Nexus, c *column[T], e Entity, v T) (*T, error) {
	if n.masks[e.ID].containsBit(c.id) {
		return nil, fmt.Errorf("add %s to %s: %w", reflect.TypeFor[T](), e, ErrComponentExists)
	}
	c.insert(e.ID, v)
	n.masks[e.ID].set(c.id)
	joined, left := n.updateGroups(e, c.id)
	if n.events != nil {
		Publish(n.events, ComponentAdded{Entity: e, Component: c.id})
		n.publishMembership(e, joined, true)
		n.publishMembership(e, left, false)
	}
	return c.get(e.ID), nil
}

// Set stores v on e, overwriting an existing component of type T in place or
// adding it when missing.
func Set[T any](n *Nexus, e Entity, v T) (*T, error) {
	if !n.IsValid(e) {
		return nil, fmt.Errorf("set %s on %s: %w", reflect.TypeFor[T](), e, ErrEntityNotFound)
	}
	c := columnOf[T](n)
	if p := c.get(e.ID); p != nil {
		*p = v
		return p, nil
	}
	return attach(n, c, e, v)
}

// Get returns a pointer to e's component of type T, or nil if e is not live
// or does not hold one.
func Get[T any](n *Nexus, e Entity) *T {
	if !n.IsValid(e) {
		return nil
	}
	c, ok := lookupColumn[T](n)
	if !ok {
		return nil
	}
	return c.get(e.ID)
}

// Has reports whether e holds a component of type T.
func Has[T any](n *Nexus, e Entity) bool {
	return Get[T](n, e) != nil
}

// Remove detaches e's component of type T. It fails with ErrEntityNotFound or
// ErrComponentNotFound without modifying anything.
func Remove[T any](n *Nexus, e Entity) error {
	c, ok := lookupColumn[T](n)
	if !ok {
		if !n.IsValid(e) {
			return fmt.Errorf("remove %s from %s: %w", reflect.TypeFor[T](), e, ErrEntityNotFound)
		}
		return fmt.Errorf("remove %s from %s: %w", reflect.TypeFor[T](), e, ErrComponentNotFound)
	}
	return n.RemoveComponent(c.id, e)
}

// RemoveComponent detaches the component identified by id from e. The table
// stays dense: the last element moves into the freed position.
func (n *Nexus) RemoveComponent(id ComponentID, e Entity) error {
	if !n.IsValid(e) {
		return fmt.Errorf("remove component %d from %s: %w", id, e, ErrEntityNotFound)
	}
	if !n.masks[e.ID].containsBit(id) {
		return fmt.Errorf("remove component %d from %s: %w", id, e, ErrComponentNotFound)
	}
	n.components.tables[id].remove(e.ID)
	n.masks[e.ID].unset(id)
	joined, left := n.updateGroups(e, id)
	if n.events != nil {
		Publish(n.events, ComponentRemoved{Entity: e, Component: id})
		n.publishMembership(e, joined, true)
		n.publishMembership(e, left, false)
	}
	return nil
}

// Component returns e's component identified by id as a pointer boxed in an
// interface (a *T for the registered type T).
func (n *Nexus) Component(id ComponentID, e Entity) (any, bool) {
	if !n.HasComponent(id, e) {
		return nil, false
	}
	return n.components.tables[id].value(e.ID), true
}

// HasComponent reports whether e holds the component identified by id.
func (n *Nexus) HasComponent(id ComponentID, e Entity) bool {
	return n.IsValid(e) && n.masks[e.ID].containsBit(id)
}

// ComponentIDs returns the ids of every component e holds, ascending.
func (n *Nexus) ComponentIDs(e Entity) []ComponentID {
	if !n.IsValid(e) {
		return nil
	}
	mask := n.masks[e.ID]
	return mask.appendIDs(make([]ComponentID, 0, mask.count()))
}

// ComponentCount returns how many components of the type identified by id
// are stored.
func (n *Nexus) ComponentCount(id ComponentID) int {
	t := n.components.tables[id]
	if t == nil {
		return 0
	}
	return t.len()
}
