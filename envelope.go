package kura

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	snapshotMagic = "KNX"

	// SnapshotVersion is the snapshot format version written by Encode.
	SnapshotVersion uint8 = 1

	// MaxSnapshotEntities bounds the entity count a snapshot may declare.
	MaxSnapshotEntities = 1 << 24

	// DefaultGenerator is the generator name written when none is configured.
	DefaultGenerator = "kura"

	// smallest record: ordinal (1) + stable id (8) + payload length (1)
	minRecordSize = 10
)

// Header carries the snapshot metadata fields.
type Header struct {
	Generator string
	Origin    string
	Version   uint8
}

// ComponentStorage is one persisted component: the ordinal of its owner
// within the snapshot, its stable type identifier and its opaque payload.
type ComponentStorage struct {
	Payload []byte
	ID      StableID
	Entity  int
}

// NexusStorage is the decoded form of a snapshot. It is a transfer object
// only; a Nexus never stores it.
type NexusStorage struct {
	Header      Header
	Components  []ComponentStorage
	Checksum    uint64
	EntityCount int
}

// checksum folds the entity and component counts with factor 11.
func checksum(entityCount, componentCount uint64) uint64 {
	var c uint64
	c = c*11 + entityCount
	c = c*11 + componentCount
	return c
}

// MarshalBinary writes the snapshot. The checksum is recomputed from the
// counts; s.Checksum is ignored. Components must already be in ascending
// (Entity, ID) order.
func (s *NexusStorage) MarshalBinary() ([]byte, error) {
	size := len(snapshotMagic) + 1 + 2*binary.MaxVarintLen64 + len(s.Header.Generator) + len(s.Header.Origin) + 24
	for i := range s.Components {
		size += 2*binary.MaxVarintLen64 + 8 + len(s.Components[i].Payload)
	}
	buf := make([]byte, 0, size)
	buf = appendHeader(buf, s.Header)
	ec, cc := uint64(s.EntityCount), uint64(len(s.Components))
	buf = binary.LittleEndian.AppendUint64(buf, checksum(ec, cc))
	buf = binary.LittleEndian.AppendUint64(buf, ec)
	buf = binary.LittleEndian.AppendUint64(buf, cc)
	for _, c := range s.Components {
		buf = binary.AppendUvarint(buf, uint64(c.Entity))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(c.ID))
		buf = binary.AppendUvarint(buf, uint64(len(c.Payload)))
		buf = append(buf, c.Payload...)
	}
	return buf, nil
}

func appendHeader(buf []byte, h Header) []byte {
	version := h.Version
	if version == 0 {
		version = SnapshotVersion
	}
	buf = append(buf, snapshotMagic...)
	buf = append(buf, version)
	buf = binary.AppendUvarint(buf, uint64(len(h.Generator)))
	buf = append(buf, h.Generator...)
	buf = binary.AppendUvarint(buf, uint64(len(h.Origin)))
	buf = append(buf, h.Origin...)
	return buf
}

// UnmarshalBinary parses and validates a snapshot. The checksum is verified
// before any component record is read. Payloads alias data.
func (s *NexusStorage) UnmarshalBinary(data []byte) error {
	r := reader{buf: data}
	h, err := r.header()
	if err != nil {
		return err
	}
	sum, err := r.u64()
	if err != nil {
		return err
	}
	ec, err := r.u64()
	if err != nil {
		return err
	}
	cc, err := r.u64()
	if err != nil {
		return err
	}
	if want := checksum(ec, cc); sum != want {
		return fmt.Errorf("%w: stored %#x, computed %#x", ErrChecksumMismatch, sum, want)
	}
	if ec > MaxSnapshotEntities {
		return fmt.Errorf("%w: %d entities exceeds limit %d", ErrCorrupt, ec, MaxSnapshotEntities)
	}
	if cc > ec*MaxComponentTypes {
		return fmt.Errorf("%w: %d components for %d entities", ErrCorrupt, cc, ec)
	}
	if cc > uint64(r.remaining()/minRecordSize) {
		return fmt.Errorf("%w: %d components declared, %d bytes left", ErrTruncated, cc, r.remaining())
	}

	comps := make([]ComponentStorage, cc)
	prevEntity, prevID := -1, StableID(0)
	for i := range comps {
		ord, err := r.uvarint()
		if err != nil {
			return err
		}
		if ord >= ec {
			return fmt.Errorf("%w: record %d references entity %d of %d", ErrCorrupt, i, ord, ec)
		}
		id, err := r.u64()
		if err != nil {
			return err
		}
		n, err := r.uvarint()
		if err != nil {
			return err
		}
		payload, err := r.bytes(n)
		if err != nil {
			return err
		}
		c := ComponentStorage{Entity: int(ord), ID: StableID(id), Payload: payload}
		if c.Entity < prevEntity || (c.Entity == prevEntity && c.ID <= prevID) {
			return fmt.Errorf("%w: record %d (entity %d, %s) out of order", ErrCorrupt, i, c.Entity, c.ID)
		}
		prevEntity, prevID = c.Entity, c.ID
		comps[i] = c
	}
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, r.remaining())
	}

	*s = NexusStorage{
		Header:      h,
		Components:  comps,
		Checksum:    sum,
		EntityCount: int(ec),
	}
	return nil
}

// ReadHeader returns the metadata of a snapshot without decoding its
// records.
func ReadHeader(data []byte) (Header, error) {
	r := reader{buf: data}
	return r.header()
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) header() (Header, error) {
	if r.remaining() < len(snapshotMagic)+1 || string(r.buf[:len(snapshotMagic)]) != snapshotMagic {
		return Header{}, ErrBadMagic
	}
	r.off = len(snapshotMagic)
	h := Header{Version: r.buf[r.off]}
	r.off++
	if h.Version != SnapshotVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	var err error
	if h.Generator, err = r.str(); err != nil {
		return Header{}, err
	}
	if h.Origin, err = r.str(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	switch {
	case n == 0:
		return 0, ErrTruncated
	case n < 0:
		return 0, fmt.Errorf("%w: varint overflow at offset %d", ErrCorrupt, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) bytes(n uint64) ([]byte, error) {
	if n > math.MaxInt || int(n) > r.remaining() {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+int(n) : r.off+int(n)]
	r.off += int(n)
	return b, nil
}

func (r *reader) str() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
