package kura

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GroupTraitSet is the membership rule of a Group: an entity matches when it
// holds every required component and none of the excluded ones. It is an
// immutable, comparable value with a precomputed hash.
type GroupTraitSet struct {
	requires bitmask256
	excludes bitmask256
	hash     uint64
}

// NewGroupTraitSet builds a trait set. It returns ErrInvalidTraitSet when
// requiresAll is empty or shares an id with excludesAll.
func NewGroupTraitSet(requiresAll, excludesAll []ComponentID) (GroupTraitSet, error) {
	req := maskOf(requiresAll)
	exc := maskOf(excludesAll)
	if req.isZero() {
		return GroupTraitSet{}, fmt.Errorf("%w: requiresAll is empty", ErrInvalidTraitSet)
	}
	if req.intersects(exc) {
		return GroupTraitSet{}, fmt.Errorf("%w: requiresAll %v overlaps excludesAll %v",
			ErrInvalidTraitSet, req.appendIDs(nil), exc.appendIDs(nil))
	}
	return GroupTraitSet{requires: req, excludes: exc, hash: hashMasks(req, exc)}, nil
}

func hashMasks(req, exc bitmask256) uint64 {
	var buf [64]byte
	for i := range 4 {
		binary.LittleEndian.PutUint64(buf[i*8:], req[i])
		binary.LittleEndian.PutUint64(buf[32+i*8:], exc[i])
	}
	return xxhash.Sum64(buf[:])
}

// Hash returns the precomputed hash of the trait set.
func (t GroupTraitSet) Hash() uint64 {
	return t.hash
}

// Requires returns the required component ids, ascending.
func (t GroupTraitSet) Requires() []ComponentID {
	return t.requires.appendIDs(nil)
}

// Excludes returns the excluded component ids, ascending.
func (t GroupTraitSet) Excludes() []ComponentID {
	return t.excludes.appendIDs(nil)
}

// Matches reports whether an entity holding exactly ids satisfies the set.
func (t GroupTraitSet) Matches(ids []ComponentID) bool {
	return t.matches(maskOf(ids))
}

func (t GroupTraitSet) matches(m bitmask256) bool {
	return m.contains(t.requires) && !m.intersects(t.excludes)
}

// Involves reports whether id appears in either side of the set, i.e. whether
// adding or removing that component can change membership.
func (t GroupTraitSet) Involves(id ComponentID) bool {
	return t.requires.containsBit(id) || t.excludes.containsBit(id)
}

func (t GroupTraitSet) String() string {
	var sb strings.Builder
	sb.WriteString("<GroupTraitSet requiresAll:")
	fmt.Fprint(&sb, t.requires.appendIDs(nil))
	sb.WriteString(" excludesAll:")
	fmt.Fprint(&sb, t.excludes.appendIDs(nil))
	sb.WriteString(">")
	return sb.String()
}
