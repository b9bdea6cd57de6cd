package kura

// componentTable is the type-erased view of one column, used where the nexus
// must act on every component of an entity without knowing their types.
type componentTable interface {
	remove(owner uint32) bool
	// value returns a *T boxed in an interface, or nil.
	value(owner uint32) any
	len() int
}

// column is the dense storage for one component type. Values are packed
// contiguously; the set's keys double as the owner reverse map.
type column[T any] struct {
	set SparseSet[T]
	id  ComponentID
}

func newColumn[T any](id ComponentID, capacity int) *column[T] {
	c := &column[T]{id: id}
	c.set.reserve(capacity)
	return c
}

func (c *column[T]) remove(owner uint32) bool {
	_, ok := c.set.Remove(owner)
	return ok
}

func (c *column[T]) value(owner uint32) any {
	p := c.set.Ptr(owner)
	if p == nil {
		return nil
	}
	return p
}

func (c *column[T]) len() int { return c.set.Len() }

// get returns a direct pointer to the owner's value, or nil.
func (c *column[T]) get(owner uint32) *T {
	return c.set.Ptr(owner)
}

// insert appends v for owner and returns a pointer into dense storage.
func (c *column[T]) insert(owner uint32, v T) *T {
	c.set.Insert(owner, v)
	return c.set.Ptr(owner)
}
