package kura

import (
	"errors"
	"fmt"
)

// Structural errors returned by Nexus operations.
var (
	ErrEntityNotFound    = errors.New("kura: entity not found")
	ErrComponentExists   = errors.New("kura: entity already has component")
	ErrComponentNotFound = errors.New("kura: entity does not have component")
	ErrInvalidTraitSet   = errors.New("kura: invalid group trait set")
	ErrDuplicateEntity   = errors.New("kura: entity listed more than once")
)

// Registry errors.
var (
	ErrRegistryFrozen         = errors.New("kura: registry is frozen")
	ErrDuplicateStableID      = errors.New("kura: stable identifier already registered")
	ErrInvalidStorableType    = errors.New("kura: invalid storable type")
	ErrComponentNotRegistered = errors.New("kura: component not registered")
)

// Snapshot format errors.
var (
	ErrBadMagic           = errors.New("kura: not a nexus snapshot")
	ErrUnsupportedVersion = errors.New("kura: unsupported snapshot version")
	ErrChecksumMismatch   = errors.New("kura: snapshot checksum mismatch")
	ErrTruncated          = errors.New("kura: snapshot truncated")
	ErrCorrupt            = errors.New("kura: snapshot corrupt")
)

// ComponentNotRegisteredError reports a stable identifier found in a snapshot
// that the registry does not know. It matches ErrComponentNotRegistered.
type ComponentNotRegisteredError struct {
	ID StableID
}

func (e *ComponentNotRegisteredError) Error() string {
	return fmt.Sprintf("kura: component %s not registered", e.ID)
}

func (e *ComponentNotRegisteredError) Is(target error) bool {
	return target == ErrComponentNotRegistered
}
