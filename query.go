package kura

// Cursor walks the dense member list of a group. It carries all the iteration
// state of a query; typed access comes from Accessors, so a Cursor plus one
// Accessor per component type serves any number of required types.
//
// Example:
//
//	pos, vel := kura.AccessorOf[Position](n), kura.AccessorOf[Velocity](n)
//	hp, tag := kura.AccessorOf[Health](n), kura.AccessorOf[Tag](n)
//	c := kura.NewCursor(n, []kura.ComponentID{pos.ID(), vel.ID(), hp.ID(), tag.ID()})
//	for c.Next() {
//	    e := c.Entity()
//	    pos.Get(e).X += vel.Get(e).VX
//	}
//
// Structural mutations during iteration are not supported.
type Cursor struct {
	group *Group
	idx   int
	cur   Entity
}

// NewCursor creates a cursor over the cached group for the pattern. It panics
// when required lists a type twice or the pattern is invalid.
func NewCursor(n *Nexus, required []ComponentID, excludes ...ComponentID) *Cursor {
	c := newCursor(n, required, excludes)
	return &c
}

func newCursor(n *Nexus, required []ComponentID, excludes []ComponentID) Cursor {
	for i := range required {
		for j := i + 1; j < len(required); j++ {
			if required[i] == required[j] {
				panic("kura: duplicate component types in query")
			}
		}
	}
	return Cursor{group: n.Group(required, excludes), idx: -1}
}

// Reset rewinds the cursor to the beginning.
func (c *Cursor) Reset() {
	c.idx = -1
	c.cur = Entity{}
}

// Next advances to the next member. It returns false when iteration is
// complete. It must be called before Entity or Get.
func (c *Cursor) Next() bool {
	c.idx++
	members := c.group.members.Values()
	if c.idx >= len(members) {
		return false
	}
	c.cur = members[c.idx]
	return true
}

// Entity returns the current entity.
func (c *Cursor) Entity() Entity {
	return c.cur
}

// Group returns the group the cursor iterates.
func (c *Cursor) Group() *Group {
	return c.group
}

// Len returns the number of entities the cursor will visit.
func (c *Cursor) Len() int {
	return c.group.Len()
}

// Accessor is a typed view of one component table. Get is a sparse index
// lookup with no reflection or map access.
type Accessor[T any] struct {
	col *column[T]
}

// AccessorOf returns the accessor for T, registering T if needed.
func AccessorOf[T any](n *Nexus) Accessor[T] {
	return Accessor[T]{col: columnOf[T](n)}
}

// ID returns the ComponentID of T.
func (a Accessor[T]) ID() ComponentID {
	return a.col.id
}

// Get returns e's T, or nil. It does not check e's version, so e must be
// live, as every member yielded by a Cursor is.
func (a Accessor[T]) Get(e Entity) *T {
	return a.col.get(e.ID)
}

// Query iterates every entity holding component A (and none of the excluded
// components), yielding a direct pointer to A.
//
// Example:
//
//	q := kura.NewQuery[Position](n)
//	for q.Next() {
//	    p := q.Get()
//	    p.X++
//	}
type Query[A any] struct {
	a Accessor[A]
	Cursor
}

// NewQuery creates a query over the cached group {A} minus excludes.
func NewQuery[A any](n *Nexus, excludes ...ComponentID) *Query[A] {
	a := AccessorOf[A](n)
	return &Query[A]{a: a, Cursor: newCursor(n, []ComponentID{a.ID()}, excludes)}
}

// Get returns the current entity's A.
func (q *Query[A]) Get() *A {
	return q.a.Get(q.cur)
}

// Query2 iterates every entity holding components A and B.
type Query2[A, B any] struct {
	a Accessor[A]
	b Accessor[B]
	Cursor
}

// NewQuery2 creates a query over the cached group {A, B} minus excludes.
func NewQuery2[A, B any](n *Nexus, excludes ...ComponentID) *Query2[A, B] {
	a, b := AccessorOf[A](n), AccessorOf[B](n)
	return &Query2[A, B]{a: a, b: b, Cursor: newCursor(n, []ComponentID{a.ID(), b.ID()}, excludes)}
}

// Get returns the current entity's A and B.
func (q *Query2[A, B]) Get() (*A, *B) {
	return q.a.Get(q.cur), q.b.Get(q.cur)
}

// Query3 iterates every entity holding components A, B and C. Larger
// patterns use NewCursor with one Accessor per type.
type Query3[A, B, C any] struct {
	a Accessor[A]
	b Accessor[B]
	c Accessor[C]
	Cursor
}

// NewQuery3 creates a query over the cached group {A, B, C} minus excludes.
func NewQuery3[A, B, C any](n *Nexus, excludes ...ComponentID) *Query3[A, B, C] {
	a, b, c := AccessorOf[A](n), AccessorOf[B](n), AccessorOf[C](n)
	return &Query3[A, B, C]{a: a, b: b, c: c, Cursor: newCursor(n, []ComponentID{a.ID(), b.ID(), c.ID()}, excludes)}
}

// Get returns the current entity's A, B and C.
func (q *Query3[A, B, C]) Get() (*A, *B, *C) {
	return q.a.Get(q.cur), q.b.Get(q.cur), q.c.Get(q.cur)
}
