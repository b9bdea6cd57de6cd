package kura

import "iter"

const sparseTombstone = -1

// SparseSet maps sparse uint32 keys to densely packed values. Insert, Remove,
// Contains and Get are O(1); iteration walks the dense arrays only.
//
// Removal swaps the last element into the freed position, so the dense order
// is not stable across removals and pointers returned by Ptr are invalidated
// by any later Insert or Remove.
type SparseSet[T any] struct {
	keys   []uint32
	values []T
	sparse []int32 // key -> dense index, sparseTombstone if absent
}

// NewSparseSet creates a set with room for capacity elements.
func NewSparseSet[T any](capacity int) *SparseSet[T] {
	s := &SparseSet[T]{}
	s.reserve(capacity)
	return s
}

func (s *SparseSet[T]) reserve(capacity int) {
	if capacity <= 0 {
		return
	}
	s.keys = make([]uint32, 0, capacity)
	s.values = make([]T, 0, capacity)
	s.sparse = growSlice(s.sparse, capacity, sparseTombstone)
}

// Len returns the number of elements.
func (s *SparseSet[T]) Len() int {
	return len(s.keys)
}

// Contains reports whether key is present.
func (s *SparseSet[T]) Contains(key uint32) bool {
	return s.index(key) >= 0
}

func (s *SparseSet[T]) index(key uint32) int {
	if int(key) >= len(s.sparse) {
		return sparseTombstone
	}
	idx := int(s.sparse[key])
	if idx < 0 || idx >= len(s.keys) || s.keys[idx] != key {
		return sparseTombstone
	}
	return idx
}

// Insert stores v under key. It returns true if the key is new and false if an
// existing value was replaced in place.
func (s *SparseSet[T]) Insert(key uint32, v T) bool {
	if idx := s.index(key); idx >= 0 {
		s.values[idx] = v
		return false
	}
	if int(key) >= len(s.sparse) {
		s.sparse = growSlice(s.sparse, int(key)+1, sparseTombstone)
	}
	s.sparse[key] = int32(len(s.keys))
	s.keys = append(s.keys, key)
	s.values = append(s.values, v)
	return true
}

// Get returns the value stored under key.
func (s *SparseSet[T]) Get(key uint32) (T, bool) {
	idx := s.index(key)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return s.values[idx], true
}

// Ptr returns a pointer to the value stored under key, or nil. The pointer
// refers to dense storage and stays valid until the next Insert or Remove.
func (s *SparseSet[T]) Ptr(key uint32) *T {
	idx := s.index(key)
	if idx < 0 {
		return nil
	}
	return &s.values[idx]
}

// Remove deletes key, moving the last element into its slot. It returns the
// removed value and whether the key was present.
func (s *SparseSet[T]) Remove(key uint32) (T, bool) {
	var zero T
	idx := s.index(key)
	if idx < 0 {
		return zero, false
	}
	removed := s.values[idx]
	last := len(s.keys) - 1
	if idx < last {
		movedKey := s.keys[last]
		s.keys[idx] = movedKey
		s.values[idx] = s.values[last]
		s.sparse[movedKey] = int32(idx)
	}
	// clear the vacated tail so the set does not retain references
	s.values[last] = zero
	s.keys = s.keys[:last]
	s.values = s.values[:last]
	s.sparse[key] = sparseTombstone
	return removed, true
}

// Keys returns the dense key slice. The slice is owned by the set.
func (s *SparseSet[T]) Keys() []uint32 {
	return s.keys
}

// Values returns the dense value slice. The slice is owned by the set.
func (s *SparseSet[T]) Values() []T {
	return s.values
}

// All iterates over key/value pairs in dense order.
func (s *SparseSet[T]) All() iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		for i, k := range s.keys {
			if !yield(k, s.values[i]) {
				return
			}
		}
	}
}

// Clear removes every element but keeps the allocated capacity.
func (s *SparseSet[T]) Clear() {
	for _, k := range s.keys {
		s.sparse[k] = sparseTombstone
	}
	clear(s.values)
	s.keys = s.keys[:0]
	s.values = s.values[:0]
}
