package kura

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// go test -run ^TestLifecycle$ . -count 1
func TestLifecycle(t *testing.T) {
	n := NewNexus(16)
	e1 := n.CreateEntity()
	require.Equal(t, Entity{ID: 0, Version: 1}, e1)

	_, err := Add(n, e1, Position{X: 1, Y: 2})
	require.NoError(t, err)
	p := ComponentIDOf[Position](n)

	g := n.Group([]ComponentID{p}, nil)
	require.True(t, g.Contains(e1))

	require.NoError(t, Remove[Position](n, e1))
	require.False(t, g.Contains(e1))

	require.NoError(t, n.Destroy(e1))
	require.Nil(t, Get[Position](n, e1))
	_, ok := n.Component(p, e1)
	require.False(t, ok)

	// LIFO reuse of the freed slot with a bumped version
	e2 := n.CreateEntity()
	require.Equal(t, e1.ID, e2.ID)
	require.Equal(t, e1.Version+1, e2.Version)
	require.False(t, n.IsValid(e1))
	require.True(t, n.IsValid(e2))
}

func TestStaleHandle(t *testing.T) {
	n := NewNexus(0)
	e := n.CreateEntity()
	_, err := Add(n, e, Health{Current: 5})
	require.NoError(t, err)
	require.NoError(t, n.Destroy(e))

	reused := n.CreateEntity()
	_, err = Add(n, reused, Health{Current: 9})
	require.NoError(t, err)

	require.ErrorIs(t, n.Destroy(e), ErrEntityNotFound)
	_, err = Add(n, e, Position{})
	require.ErrorIs(t, err, ErrEntityNotFound)
	require.ErrorIs(t, Remove[Health](n, e), ErrEntityNotFound)
	require.Nil(t, Get[Health](n, e), "stale handle must not alias the new entity")
	require.Equal(t, int32(9), Get[Health](n, reused).Current)

	require.True(t, Entity{}.IsZero())
	require.False(t, e.IsZero())
	require.Equal(t, "0@1", e.String())
	require.False(t, n.IsValid(Entity{}))
	require.False(t, n.IsValid(Entity{ID: 99, Version: 1}))
}

func TestComponentUniqueness(t *testing.T) {
	n := NewNexus(0)
	e := n.CreateEntity()
	first, err := Add(n, e, Health{Current: 10, Max: 10})
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = Add(n, e, Health{Current: 1, Max: 1})
	require.ErrorIs(t, err, ErrComponentExists)
	require.Equal(t, Health{Current: 10, Max: 10}, *Get[Health](n, e))
	require.Equal(t, 1, n.ComponentCount(ComponentIDOf[Health](n)))
}

func TestSetOverwritesOrAdds(t *testing.T) {
	n := NewNexus(0)
	e := n.CreateEntity()

	p, err := Set(n, e, Position{X: 1})
	require.NoError(t, err)
	require.Equal(t, float32(1), p.X)

	p, err = Set(n, e, Position{X: 2})
	require.NoError(t, err)
	require.Equal(t, float32(2), p.X)
	require.Equal(t, 1, n.ComponentCount(ComponentIDOf[Position](n)))
}

func TestRemoveMissingComponent(t *testing.T) {
	n := NewNexus(0)
	e := n.CreateEntity()
	require.ErrorIs(t, Remove[Velocity](n, e), ErrComponentNotFound)

	_, err := Add(n, e, Position{})
	require.NoError(t, err)
	require.ErrorIs(t, Remove[Health](n, e), ErrComponentNotFound)
	require.ErrorIs(t, n.RemoveComponent(ComponentIDOf[Health](n), e), ErrComponentNotFound)
	require.True(t, Has[Position](n, e))
}

func TestComponentIDsAndLookup(t *testing.T) {
	n := NewNexus(0)
	e := n.CreateEntity()
	_, _ = Add(n, e, Velocity{VX: 3})
	_, _ = Add(n, e, Position{X: 1})

	vel, pos := ComponentIDOf[Velocity](n), ComponentIDOf[Position](n)
	require.Equal(t, []ComponentID{vel, pos}, n.ComponentIDs(e))
	require.True(t, n.HasComponent(pos, e))
	require.Equal(t, "kura.Position", n.ComponentType(pos).String())

	v, ok := n.Component(vel, e)
	require.True(t, ok)
	require.Equal(t, float32(3), v.(*Velocity).VX)
	require.Nil(t, n.ComponentIDs(Entity{}))
}

func TestDenseTablesAfterRemoval(t *testing.T) {
	n := NewNexus(0)
	ents := n.CreateEntities(5)
	for i, e := range ents {
		_, err := Add(n, e, Health{Current: int32(i)})
		require.NoError(t, err)
	}
	require.NoError(t, n.Destroy(ents[1]))
	require.NoError(t, Remove[Health](n, ents[3]))

	require.Equal(t, 3, n.ComponentCount(ComponentIDOf[Health](n)))
	for _, i := range []int{0, 2, 4} {
		require.Equal(t, int32(i), Get[Health](n, ents[i]).Current)
	}
}

// go test -run ^TestEntityCountConservation$ . -count 1
func TestEntityCountConservation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n := NewNexus(8)
	var live []Entity
	var dead []Entity
	creates, destroys := 0, 0

	for range 2000 {
		if len(live) == 0 || rng.IntN(3) > 0 {
			e := n.CreateEntity()
			creates++
			live = append(live, e)
			continue
		}
		i := rng.IntN(len(live))
		e := live[i]
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
		require.NoError(t, n.Destroy(e))
		destroys++
		dead = append(dead, e)
	}

	require.Equal(t, creates-destroys, n.EntityCount())
	require.Len(t, n.Entities(), n.EntityCount())
	for _, e := range dead {
		require.False(t, n.IsValid(e), "destroyed handle %s is still live", e)
	}
	seen := make(map[uint32]bool, len(live))
	for _, e := range live {
		require.True(t, n.IsValid(e))
		require.False(t, seen[e.ID], "slot %d handed out twice", e.ID)
		seen[e.ID] = true
	}
}

func TestClear(t *testing.T) {
	n := NewNexus(0)
	pos := ComponentIDOf[Position](n)
	g := n.Group([]ComponentID{pos}, nil)
	ents := n.CreateEntities(10)
	for _, e := range ents {
		_, err := Add(n, e, Position{})
		require.NoError(t, err)
	}
	require.Equal(t, 10, g.Len())

	n.Clear()
	require.Zero(t, n.EntityCount())
	require.Zero(t, n.ComponentCount(pos))
	require.Zero(t, g.Len())
	for _, e := range ents {
		require.False(t, n.IsValid(e))
	}

	// groups stay registered and keep tracking
	e := n.CreateEntity()
	_, err := Add(n, e, Position{})
	require.NoError(t, err)
	require.Same(t, g, n.Group([]ComponentID{pos}, nil))
	require.True(t, g.Contains(e))

	stats := n.Stats()
	require.Equal(t, NexusStats{Entities: 1, Components: 1, ComponentTypes: 1, Groups: 1, FreeSlots: 9}, stats)
	require.Equal(t, "<Nexus entities:1 components:1 groups:1>", n.String())
}

func TestNexusEvents(t *testing.T) {
	bus := NewEventBus()
	n := NewNexus(0, WithEventBus(bus))
	var created, destroyed, added, removed int
	Subscribe(bus, func(EntityCreated) { created++ })
	Subscribe(bus, func(EntityDestroyed) { destroyed++ })
	Subscribe(bus, func(ComponentAdded) { added++ })
	Subscribe(bus, func(ComponentRemoved) { removed++ })

	e := n.CreateEntity()
	_, _ = Add(n, e, Position{})
	_, _ = Add(n, e, Velocity{})
	require.NoError(t, Remove[Velocity](n, e))
	require.NoError(t, n.Destroy(e))

	require.Equal(t, 1, created)
	require.Equal(t, 1, destroyed)
	require.Equal(t, 2, added)
	require.Equal(t, 2, removed)
	require.Same(t, bus, n.Events())
}

// go test -run ^TestEventsSeeConsistentState$ . -count 1
func TestEventsSeeConsistentState(t *testing.T) {
	bus := NewEventBus()
	n := NewNexus(0, WithEventBus(bus))
	pos := ComponentIDOf[Position](n)
	g := n.Group([]ComponentID{pos}, nil)

	type observed struct {
		has      bool
		hasValue bool
		member   bool
	}
	var added, removed []observed
	Subscribe(bus, func(ev ComponentAdded) {
		v, ok := n.Component(ev.Component, ev.Entity)
		require.True(t, ok)
		require.Equal(t, float32(1), v.(*Position).X)
		added = append(added, observed{n.HasComponent(ev.Component, ev.Entity), ok, g.Contains(ev.Entity)})
	})
	Subscribe(bus, func(ev ComponentRemoved) {
		v, ok := n.Component(ev.Component, ev.Entity)
		require.Nil(t, v)
		removed = append(removed, observed{n.HasComponent(ev.Component, ev.Entity), ok, g.Contains(ev.Entity)})
	})
	Subscribe(bus, func(ev GroupMemberAdded) {
		require.True(t, g.Contains(ev.Entity))
	})
	Subscribe(bus, func(ev GroupMemberRemoved) {
		require.False(t, g.Contains(ev.Entity))
	})
	Subscribe(bus, func(ev EntityDestroyed) {
		require.False(t, n.IsValid(ev.Entity))
	})

	e := n.CreateEntity()
	_, err := Add(n, e, Position{X: 1})
	require.NoError(t, err)
	require.NoError(t, Remove[Position](n, e))
	_, err = Add(n, e, Position{X: 1})
	require.NoError(t, err)
	require.NoError(t, n.Destroy(e))

	require.Equal(t, []observed{{true, true, true}, {true, true, true}}, added)
	require.Equal(t, []observed{{false, false, false}, {false, false, false}}, removed)
}

func TestBuilder(t *testing.T) {
	n := NewNexus(0)
	b := NewBuilder[Health](n)
	require.Equal(t, ComponentIDOf[Health](n), b.ID())

	ents := b.NewEntities(3, Health{Current: 7, Max: 7})
	require.Len(t, ents, 3)
	for _, e := range ents {
		require.Equal(t, int32(7), b.Get(e).Current)
	}

	require.NoError(t, b.Set(ents[0], Health{Current: 1}))
	require.Equal(t, int32(1), b.Get(ents[0]).Current)

	bare := n.CreateEntity()
	require.NoError(t, b.Set(bare, Health{Current: 2}))
	require.True(t, Has[Health](n, bare))

	require.NoError(t, n.Destroy(ents[1]))
	require.Nil(t, b.Get(ents[1]))
	require.ErrorIs(t, b.Set(ents[1], Health{}), ErrEntityNotFound)
	require.Nil(t, b.NewEntities(0, Health{}))
}

func TestTooManyComponentTypesPanics(t *testing.T) {
	n := NewNexus(0)
	n.components.next = MaxComponentTypes
	require.PanicsWithValue(t, "kura: too many component types, cannot register kura.Tag", func() {
		ComponentIDOf[Tag](n)
	})
}
