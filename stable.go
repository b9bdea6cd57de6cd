package kura

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// StableID identifies a component type in persisted snapshots. Unlike
// ComponentID it must stay constant across restarts, rebuilds and versions.
type StableID uint64

func (id StableID) String() string {
	return fmt.Sprintf("0x%016x", uint64(id))
}

// StableIDOf derives a StableID from a declared type name with xxhash64. The
// result is stable only as long as the name is; types that may be renamed
// should return a literal StableID instead.
func StableIDOf(name string) StableID {
	return StableID(xxhash.Sum64String(name))
}

// Storable is implemented by components that take part in snapshots.
// StableID must not depend on the receiver's field values: it is also called
// on the zero value during registration.
type Storable interface {
	StableID() StableID
	MarshalBinary() ([]byte, error)
}

// EncodeHook lets a component snapshot derived state into persistable fields
// before any bytes are written, e.g. turning a loaded asset handle into its
// path. Hooks for all encoded entities run before the first record is
// written, so a hook may read sibling components.
type EncodeHook interface {
	BeforeEncode(n *Nexus, owner Entity) error
}

// DecodeHook lets a component rebuild derived state after decoding. Hooks run
// once per component after every component of the snapshot is attached.
type DecodeHook interface {
	AfterDecode(n *Nexus, owner Entity) error
}
