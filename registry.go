package kura

import (
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Attacher adds one decoded component to an entity and reports the
// ComponentID it was stored under.
type Attacher func(n *Nexus, e Entity) (ComponentID, error)

// StorableType describes a persisted component type. Decode turns a payload
// into an Attacher; it is the only place that relates the stable identifier
// to a concrete Go type, so decoding never needs a type assertion.
type StorableType struct {
	Type   reflect.Type // optional; guards against two types sharing an ID
	Decode func(payload []byte) (Attacher, error)
	Name   string
	ID     StableID
}

// Registry maps stable identifiers to storable component types. It is an
// explicit object: build one at start-up, register every type, Freeze it and
// pass it to a Codec. After Freeze it is read-only and safe to share between
// goroutines.
type Registry struct {
	types  map[StableID]StorableType
	byType map[reflect.Type]StableID
	logger *zap.Logger
	mu     sync.RWMutex
	frozen bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types:  make(map[StableID]StorableType),
		byType: make(map[reflect.Type]StableID),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a storable type descriptor.
func (r *Registry) Register(t StorableType) error {
	if t.Decode == nil {
		return fmt.Errorf("%w: %q has no decoder", ErrInvalidStorableType, t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("register %q: %w", t.Name, ErrRegistryFrozen)
	}
	if prev, ok := r.types[t.ID]; ok {
		return fmt.Errorf("register %q as %s (held by %q): %w", t.Name, t.ID, prev.Name, ErrDuplicateStableID)
	}
	if t.Type != nil {
		if prev, ok := r.byType[t.Type]; ok {
			return fmt.Errorf("%w: %s already registered as %s", ErrInvalidStorableType, t.Type, prev)
		}
		r.byType[t.Type] = t.ID
	}
	r.types[t.ID] = t
	r.logger.Debug("storable type registered", zap.String("name", t.Name), zap.Stringer("id", t.ID))
	return nil
}

// storablePtr constrains *T to a storable, decodable component.
type storablePtr[T any] interface {
	*T
	Storable
	encoding.BinaryUnmarshaler
}

// RegisterStorable registers component type T. Its stable identifier is read
// from the zero value of T.
//
// Example:
//
//	reg := kura.NewRegistry()
//	if err := kura.RegisterStorable[Health](reg); err != nil { ... }
func RegisterStorable[T any, PT storablePtr[T]](r *Registry) error {
	var zero T
	t := reflect.TypeFor[T]()
	return r.Register(StorableType{
		ID:   PT(&zero).StableID(),
		Name: t.String(),
		Type: t,
		Decode: func(payload []byte) (Attacher, error) {
			var v T
			if err := PT(&v).UnmarshalBinary(payload); err != nil {
				return nil, err
			}
			return func(n *Nexus, e Entity) (ComponentID, error) {
				c := columnOf[T](n)
				if _, err := attach(n, c, e, v); err != nil {
					return 0, err
				}
				return c.id, nil
			}, nil
		},
	})
}

// Lookup returns the descriptor registered under id.
func (r *Registry) Lookup(id StableID) (StorableType, bool) {
	r.mu.RLock()
	t, ok := r.types[id]
	r.mu.RUnlock()
	return t, ok
}

// accepts reports whether component value v (a *T) may be encoded under id.
func (r *Registry) accepts(id StableID, v any) bool {
	t, ok := r.Lookup(id)
	if !ok {
		return false
	}
	if t.Type == nil {
		return true
	}
	rt := reflect.TypeOf(v)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt == t.Type
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Types returns every descriptor ordered by stable identifier.
func (r *Registry) Types() []StorableType {
	r.mu.RLock()
	out := make([]StorableType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b StorableType) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Freeze ends the registration phase. Later Register calls fail with
// ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
