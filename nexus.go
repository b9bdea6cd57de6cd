package kura

import (
	"fmt"

	"go.uber.org/zap"
)

// Nexus owns every live entity and component and is the only mutation
// surface of the storage engine. It keeps:
//   - the live entity set (a sparse set keyed by slot ID),
//   - one dense table per component type,
//   - the per-slot component-id mask, the single source of truth for
//     "does entity X have component Y",
//   - a LIFO free list of released slots,
//   - the cached groups, kept current synchronously on every mutation.
//
// A Nexus is not safe for concurrent use. Callers that need concurrency keep
// one Nexus per simulation goroutine and exchange snapshots.
type Nexus struct {
	entities        SparseSet[Entity]
	versions        []uint32     // slot generation, indexed by entity ID
	masks           []bitmask256 // component-id set, indexed by entity ID
	free            []uint32     // stack of released slot IDs
	components      componentRegistry
	groups          groupCache
	resources       *Resources
	events          *EventBus
	logger          *zap.Logger
	initialCapacity int
}

// Option configures a Nexus.
type Option func(*Nexus)

// WithLogger sets the logger used for diagnostics. The default discards logs.
func WithLogger(l *zap.Logger) Option {
	return func(n *Nexus) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithEventBus attaches a bus on which the nexus publishes lifecycle events.
func WithEventBus(bus *EventBus) Option {
	return func(n *Nexus) {
		n.events = bus
	}
}

// WithResources shares an existing resource store with the nexus.
func WithResources(r *Resources) Option {
	return func(n *Nexus) {
		if r != nil {
			n.resources = r
		}
	}
}

// NewNexus creates a Nexus with storage pre-allocated for initialCapacity
// entities. Storage grows automatically past that.
//
// Parameters:
//   - initialCapacity: The number of entity slots to reserve up front.
//   - opts: Optional logger, event bus and resource store.
//
// Returns:
//   - The newly created Nexus.
func NewNexus(initialCapacity int, opts ...Option) *Nexus {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	n := &Nexus{
		versions:        make([]uint32, 0, initialCapacity),
		masks:           make([]bitmask256, 0, initialCapacity),
		free:            make([]uint32, 0, initialCapacity/4),
		components:      newComponentRegistry(),
		groups:          newGroupCache(),
		resources:       &Resources{},
		logger:          zap.NewNop(),
		initialCapacity: initialCapacity,
	}
	n.entities.reserve(initialCapacity)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Resources returns the world context handed to encode/decode hooks.
func (n *Nexus) Resources() *Resources {
	return n.resources
}

// Events returns the attached event bus, or nil.
func (n *Nexus) Events() *EventBus {
	return n.events
}

// Logger returns the nexus logger.
func (n *Nexus) Logger() *zap.Logger {
	return n.logger
}

// CreateEntity allocates a new entity with no components. Released slots are
// reused last-in first-out, carrying their bumped version; otherwise storage
// grows by one slot. It never fails.
func (n *Nexus) CreateEntity() Entity {
	var id uint32
	if last := len(n.free) - 1; last >= 0 {
		id = n.free[last]
		n.free = n.free[:last]
	} else {
		id = uint32(len(n.versions))
		n.versions = append(n.versions, 1)
		n.masks = append(n.masks, bitmask256{})
	}
	e := Entity{ID: id, Version: n.versions[id]}
	n.entities.Insert(id, e)
	if n.events != nil {
		Publish(n.events, EntityCreated{Entity: e})
	}
	return e
}

// CreateEntities creates count entities with no components and returns them
// in creation order.
func (n *Nexus) CreateEntities(count int) []Entity {
	if count <= 0 {
		return nil
	}
	ents := make([]Entity, count)
	for i := range ents {
		ents[i] = n.CreateEntity()
	}
	return ents
}

// IsValid reports whether e names a live entity. A handle whose slot was
// released (and possibly reused) is not valid.
func (n *Nexus) IsValid(e Entity) bool {
	if e.Version == 0 || int(e.ID) >= len(n.versions) {
		return false
	}
	return n.versions[e.ID] == e.Version && n.entities.Contains(e.ID)
}

// Exists is an alias of IsValid.
func (n *Nexus) Exists(e Entity) bool {
	return n.IsValid(e)
}

// Destroy removes every component of e, drops it from every group, releases
// its slot and invalidates the handle. Destroying a stale or unknown handle is
// reported as ErrEntityNotFound.
func (n *Nexus) Destroy(e Entity) error {
	if !n.IsValid(e) {
		n.logger.Warn("destroy of unknown entity", zap.Stringer("entity", e))
		return fmt.Errorf("destroy %s: %w", e, ErrEntityNotFound)
	}
	var buf [MaxComponentTypes]ComponentID
	removed := n.masks[e.ID].appendIDs(buf[:0])
	for _, id := range removed {
		n.components.tables[id].remove(e.ID)
	}
	n.masks[e.ID] = bitmask256{}
	var left []*Group
	if len(removed) > 0 {
		left = n.leaveGroups(e)
	}
	n.entities.Remove(e.ID)
	n.versions[e.ID]++
	if n.versions[e.ID] == 0 {
		n.versions[e.ID] = 1
	}
	n.free = append(n.free, e.ID)

	// the entity is fully gone before any handler runs
	if n.events != nil {
		for _, id := range removed {
			Publish(n.events, ComponentRemoved{Entity: e, Component: id})
		}
		n.publishMembership(e, left, false)
		Publish(n.events, EntityDestroyed{Entity: e})
	}
	return nil
}

// DestroyEntities destroys each entity in ents, stopping at the first error.
func (n *Nexus) DestroyEntities(ents []Entity) error {
	for _, e := range ents {
		if err := n.Destroy(e); err != nil {
			return err
		}
	}
	return nil
}

// EntityCount returns the number of live entities.
func (n *Nexus) EntityCount() int {
	return n.entities.Len()
}

// Entities returns the live entities in dense order. The slice is owned by the
// nexus and is invalidated by the next create or destroy; copy it to keep it.
func (n *Nexus) Entities() []Entity {
	return n.entities.Values()
}

// Clear destroys every entity. Afterwards every component table, every
// component-id mask and every group membership set is empty.
//
// Clear does not reset the nexus to its freshly created state: the free list
// keeps every released slot with its bumped version, so handles from before
// the clear remain invalid; the group cache keeps every registered Group,
// which stays usable and keeps tracking; component types keep their
// ComponentIDs and their (now empty) tables. Use a new Nexus for a full reset.
func (n *Nexus) Clear() {
	for n.entities.Len() > 0 {
		live := n.entities.Values()
		// destroying the last dense element avoids swap churn
		_ = n.Destroy(live[len(live)-1])
	}
}

// NexusStats is a structural summary of a Nexus.
type NexusStats struct {
	Entities       int
	Components     int
	ComponentTypes int
	Groups         int
	FreeSlots      int
}

// Stats returns structural counts.
func (n *Nexus) Stats() NexusStats {
	s := NexusStats{
		Entities:       n.entities.Len(),
		ComponentTypes: n.components.next,
		Groups:         len(n.groups.list),
		FreeSlots:      len(n.free),
	}
	for i := 0; i < n.components.next; i++ {
		s.Components += n.components.tables[i].len()
	}
	return s
}

func (n *Nexus) String() string {
	s := n.Stats()
	return fmt.Sprintf("<Nexus entities:%d components:%d groups:%d>", s.Entities, s.Components, s.Groups)
}
