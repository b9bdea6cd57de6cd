package kura

// Lifecycle events published by a Nexus on its EventBus. Handlers run
// synchronously inside the mutating call, after component tables, masks and
// group memberships already reflect the change, and must not mutate the
// nexus.

// EntityCreated is published after an entity is created.
type EntityCreated struct {
	Entity Entity
}

// EntityDestroyed is published after an entity is destroyed. The handle is
// already invalid when handlers run.
type EntityDestroyed struct {
	Entity Entity
}

// ComponentAdded is published after a component is attached.
type ComponentAdded struct {
	Entity    Entity
	Component ComponentID
}

// ComponentRemoved is published after a component is detached, including
// removals performed by Destroy; in that case the entity is already invalid.
type ComponentRemoved struct {
	Entity    Entity
	Component ComponentID
}

// GroupCreated is published when a new trait pattern is first requested.
type GroupCreated struct {
	Traits GroupTraitSet
}

// GroupMemberAdded is published when an entity starts matching a group.
type GroupMemberAdded struct {
	Entity Entity
	Traits GroupTraitSet
}

// GroupMemberRemoved is published when an entity stops matching a group.
type GroupMemberRemoved struct {
	Entity Entity
	Traits GroupTraitSet
}
