package kura

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Codec encodes entities of a Nexus into snapshots and decodes snapshots into
// fresh entities. Only components that implement Storable and are registered
// in the codec's Registry are persisted; other components are skipped.
//
// A Codec holds no per-call state and may be shared once its Registry is
// frozen. The Nexus passed to Encode or Decode must not be used concurrently.
type Codec struct {
	registry    *Registry
	logger      *zap.Logger
	header      Header
	maxEntities int
}

// DefaultMaxDecodeEntities is the entity limit of a Codec without
// WithMaxEntities. A snapshot costs no bytes per component-less entity, so
// the declared count is bounded explicitly before anything is allocated.
const DefaultMaxDecodeEntities = 1 << 20

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithGenerator sets the generator name written into snapshot headers.
func WithGenerator(name string) CodecOption {
	return func(c *Codec) {
		c.header.Generator = name
	}
}

// WithOrigin sets the origin written into snapshot headers.
func WithOrigin(origin string) CodecOption {
	return func(c *Codec) {
		c.header.Origin = origin
	}
}

// WithMaxEntities sets how many entities one Decode may create. Values
// outside 1..MaxSnapshotEntities are clamped.
func WithMaxEntities(limit int) CodecOption {
	return func(c *Codec) {
		c.maxEntities = min(max(limit, 1), MaxSnapshotEntities)
	}
}

// WithCodecLogger sets the codec logger.
func WithCodecLogger(l *zap.Logger) CodecOption {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCodec creates a codec backed by reg.
func NewCodec(reg *Registry, opts ...CodecOption) *Codec {
	c := &Codec{
		registry:    reg,
		logger:      zap.NewNop(),
		header:      Header{Version: SnapshotVersion, Generator: DefaultGenerator},
		maxEntities: DefaultMaxDecodeEntities,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the codec resolves stable identifiers with.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// storables returns the persistable components of e.
func (c *Codec) storables(n *Nexus, e Entity) []Storable {
	mask := n.masks[e.ID]
	var buf [MaxComponentTypes]ComponentID
	var out []Storable
	for _, id := range mask.appendIDs(buf[:0]) {
		v := n.components.tables[id].value(e.ID)
		s, ok := v.(Storable)
		if !ok || !c.registry.accepts(s.StableID(), v) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Encode writes the persistable components of entities into a snapshot.
//
// Every entity must be live and listed once. Each listed entity gets an
// ordinal equal to its position in entities; Decode returns entities in the
// same order. All BeforeEncode hooks run before the first component is
// marshaled. Within an entity, records are ordered by stable identifier, so
// encoding the result of a Decode yields identical bytes.
func (c *Codec) Encode(n *Nexus, entities []Entity) ([]byte, error) {
	seen := make(map[uint32]struct{}, len(entities))
	for _, e := range entities {
		if !n.IsValid(e) {
			return nil, fmt.Errorf("encode %s: %w", e, ErrEntityNotFound)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("encode %s: %w", e, ErrDuplicateEntity)
		}
		seen[e.ID] = struct{}{}
	}

	for _, e := range entities {
		for _, s := range c.storables(n, e) {
			h, ok := s.(EncodeHook)
			if !ok {
				continue
			}
			if err := h.BeforeEncode(n, e); err != nil {
				return nil, fmt.Errorf("encode %s: before-encode hook of %s: %w", e, s.StableID(), err)
			}
		}
	}

	storage := NexusStorage{Header: c.header, EntityCount: len(entities)}
	for ord, e := range entities {
		// hooks may have changed structure, collect again
		stored := c.storables(n, e)
		slices.SortFunc(stored, func(a, b Storable) int {
			switch x, y := a.StableID(), b.StableID(); {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		})
		for _, s := range stored {
			payload, err := s.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("encode %s: marshal %s: %w", e, s.StableID(), err)
			}
			storage.Components = append(storage.Components, ComponentStorage{
				Entity:  ord,
				ID:      s.StableID(),
				Payload: payload,
			})
		}
	}

	data, err := storage.MarshalBinary()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("nexus encoded",
		zap.Int("entities", storage.EntityCount),
		zap.Int("components", len(storage.Components)),
		zap.Int("bytes", len(data)))
	return data, nil
}

type stagedComponent struct {
	attach Attacher
	name   string
	entity int
	id     ComponentID
}

// Decode creates one new entity per snapshot entity, attaches the decoded
// components and runs every AfterDecode hook once. It returns the new
// entities in ordinal order.
//
// The snapshot is fully validated, and every stable identifier resolved and
// payload decoded, before the nexus is touched. Snapshots declaring more
// entities than the codec's limit are rejected with ErrCorrupt. If attaching
// or a hook fails afterwards, every entity created by this call is destroyed
// again and the nexus is left as it was.
func (c *Codec) Decode(n *Nexus, data []byte) ([]Entity, error) {
	var storage NexusStorage
	if err := storage.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if storage.EntityCount > c.maxEntities {
		return nil, fmt.Errorf("%w: %d entities exceeds decode limit %d", ErrCorrupt, storage.EntityCount, c.maxEntities)
	}

	staged := make([]stagedComponent, len(storage.Components))
	for i, rec := range storage.Components {
		t, ok := c.registry.Lookup(rec.ID)
		if !ok {
			return nil, &ComponentNotRegisteredError{ID: rec.ID}
		}
		att, err := t.Decode(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %d: decode %s: %w", ErrCorrupt, rec.Entity, t.Name, err)
		}
		staged[i] = stagedComponent{attach: att, name: t.Name, entity: rec.Entity}
	}

	entities := n.CreateEntities(storage.EntityCount)
	for i := range staged {
		sc := &staged[i]
		id, err := sc.attach(n, entities[sc.entity])
		if err != nil {
			c.rollback(n, entities)
			return nil, fmt.Errorf("decode: attach %s to entity %d: %w", sc.name, sc.entity, err)
		}
		sc.id = id
	}

	var hookErr error
	for _, sc := range staged {
		e := entities[sc.entity]
		v, ok := n.Component(sc.id, e)
		if !ok {
			continue
		}
		if h, ok := v.(DecodeHook); ok {
			if err := h.AfterDecode(n, e); err != nil {
				hookErr = multierr.Append(hookErr,
					fmt.Errorf("after-decode hook of %s on entity %d: %w", sc.name, sc.entity, err))
			}
		}
	}
	if hookErr != nil {
		c.rollback(n, entities)
		return nil, hookErr
	}

	c.logger.Debug("nexus decoded",
		zap.String("generator", storage.Header.Generator),
		zap.String("origin", storage.Header.Origin),
		zap.Int("entities", storage.EntityCount),
		zap.Int("components", len(storage.Components)))
	return entities, nil
}

func (c *Codec) rollback(n *Nexus, entities []Entity) {
	for _, e := range entities {
		if n.IsValid(e) {
			_ = n.Destroy(e)
		}
	}
	c.logger.Warn("decode rolled back", zap.Int("entities", len(entities)))
}

// EncodeFile encodes entities and publishes the snapshot at path atomically:
// the bytes go to a temporary file in the same directory, which is synced
// and renamed over path. ctx is checked before encoding and before the
// rename.
func (c *Codec) EncodeFile(ctx context.Context, n *Nexus, path string, entities []Entity) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := c.Encode(n, entities)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("encode file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	err = multierr.Append(err, f.Close())
	if err != nil {
		return fmt.Errorf("encode file %s: %w", path, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("encode file: %w", err)
	}
	c.logger.Debug("snapshot written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// DecodeFile reads the snapshot at path and decodes it into n.
func (c *Codec) DecodeFile(ctx context.Context, n *Nexus, path string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ents, err := c.Decode(n, data)
	if err != nil {
		return nil, fmt.Errorf("decode file %s: %w", path, err)
	}
	return ents, nil
}
