// Package kura is an entity/component storage engine: a sparse-set entity
// registry, dense per-type component tables, incrementally maintained
// groups and a binary snapshot format keyed by stable type identifiers.
package kura

import "fmt"

// Entity represents a unique handle to an entity slot in a Nexus. It combines
// a 32-bit slot ID with a 32-bit version so that a handle captured before the
// slot was recycled is detected as stale instead of aliasing the new entity.
type Entity struct {
	// ID is the recyclable slot of the entity.
	ID uint32
	// Version is the slot generation. It is bumped every time the slot is
	// released, so a destroyed handle never becomes valid again.
	Version uint32
}

// IsZero reports whether e is the zero handle, which never names a live entity.
func (e Entity) IsZero() bool {
	return e.Version == 0
}

func (e Entity) String() string {
	return fmt.Sprintf("%d@%d", e.ID, e.Version)
}
