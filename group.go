package kura

import (
	"iter"

	"go.uber.org/zap"
)

// Group is a cached view of every entity whose component set satisfies a
// trait set. The nexus keeps its membership current synchronously on every
// Add, Remove and Destroy, so iterating a Group always reflects the last
// structural mutation without re-querying.
type Group struct {
	nexus   *Nexus
	members SparseSet[Entity]
	traits  GroupTraitSet
}

// groupCache buckets groups by their precomputed trait hash.
type groupCache struct {
	byHash map[uint64][]*Group
	list   []*Group
}

func newGroupCache() groupCache {
	return groupCache{byHash: make(map[uint64][]*Group)}
}

func (c *groupCache) find(t GroupTraitSet) *Group {
	for _, g := range c.byHash[t.hash] {
		if g.traits == t {
			return g
		}
	}
	return nil
}

func (c *groupCache) add(g *Group) {
	c.byHash[g.traits.hash] = append(c.byHash[g.traits.hash], g)
	c.list = append(c.list, g)
}

// Group returns the cached group for the pattern, building it with one scan
// of the live entities the first time the pattern is requested. Requesting
// the same pattern again returns the same *Group.
//
// An invalid pattern (empty requiresAll, or overlap with excludesAll) is a
// programming error and panics.
func (n *Nexus) Group(requiresAll, excludesAll []ComponentID) *Group {
	traits, err := NewGroupTraitSet(requiresAll, excludesAll)
	if err != nil {
		panic(err.Error())
	}
	return n.GroupFor(traits)
}

// GroupFor returns the cached group for an already validated trait set.
func (n *Nexus) GroupFor(traits GroupTraitSet) *Group {
	if traits.requires.isZero() {
		panic(ErrInvalidTraitSet.Error())
	}
	if g := n.groups.find(traits); g != nil {
		return g
	}
	g := &Group{nexus: n, traits: traits}
	g.members.reserve(n.entities.Len())
	for _, id := range n.entities.Keys() {
		if traits.matches(n.masks[id]) {
			e := Entity{ID: id, Version: n.versions[id]}
			g.members.Insert(id, e)
		}
	}
	n.groups.add(g)
	n.logger.Debug("group created",
		zap.Stringer("traits", traits),
		zap.Int("members", g.members.Len()))
	if n.events != nil {
		Publish(n.events, GroupCreated{Traits: traits})
	}
	return g
}

// Groups returns every cached group in creation order.
func (n *Nexus) Groups() []*Group {
	return n.groups.list
}

// updateGroups re-evaluates e against every group whose trait set involves
// the changed component. The changed groups are returned only when an event
// bus is attached, for publishing once every group is up to date.
func (n *Nexus) updateGroups(e Entity, changed ComponentID) (joined, left []*Group) {
	mask := n.masks[e.ID]
	for _, g := range n.groups.list {
		if !g.traits.Involves(changed) {
			continue
		}
		isMember := g.members.Contains(e.ID)
		isMatch := g.traits.matches(mask)
		switch {
		case isMatch && !isMember:
			g.members.Insert(e.ID, e)
			if n.events != nil {
				joined = append(joined, g)
			}
		case !isMatch && isMember:
			g.members.Remove(e.ID)
			if n.events != nil {
				left = append(left, g)
			}
		}
	}
	return joined, left
}

// leaveGroups drops e from every group it belongs to.
func (n *Nexus) leaveGroups(e Entity) (left []*Group) {
	for _, g := range n.groups.list {
		if _, ok := g.members.Remove(e.ID); ok && n.events != nil {
			left = append(left, g)
		}
	}
	return left
}

func (n *Nexus) publishMembership(e Entity, groups []*Group, joined bool) {
	for _, g := range groups {
		if joined {
			Publish(n.events, GroupMemberAdded{Entity: e, Traits: g.traits})
		} else {
			Publish(n.events, GroupMemberRemoved{Entity: e, Traits: g.traits})
		}
	}
}

// Traits returns the group's trait set.
func (g *Group) Traits() GroupTraitSet {
	return g.traits
}

// Nexus returns the nexus the group belongs to.
func (g *Group) Nexus() *Nexus {
	return g.nexus
}

// Len returns the number of member entities.
func (g *Group) Len() int {
	return g.members.Len()
}

// IsEmpty reports whether the group has no members.
func (g *Group) IsEmpty() bool {
	return g.members.Len() == 0
}

// Contains reports whether e is a member.
func (g *Group) Contains(e Entity) bool {
	m, ok := g.members.Get(e.ID)
	return ok && m == e
}

// CanBecomeMember reports whether e's current component set satisfies the
// trait set, independent of cached membership.
func (g *Group) CanBecomeMember(e Entity) bool {
	return g.nexus.IsValid(e) && g.traits.matches(g.nexus.masks[e.ID])
}

// Entities returns the members in dense order. The slice is owned by the
// group and is invalidated by the next structural mutation.
func (g *Group) Entities() []Entity {
	return g.members.Values()
}

// All iterates over the members. Mutating the nexus during iteration is not
// supported; collect entities first when a system needs to destroy them.
func (g *Group) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, e := range g.members.Values() {
			if !yield(e) {
				return
			}
		}
	}
}
