package kura

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// --- Test Components ---

type Position struct{ X, Y float32 }

func (Position) StableID() StableID { return StableIDOf("kura.test.Position") }

func (p Position) MarshalBinary() ([]byte, error) {
	b := binary.LittleEndian.AppendUint32(nil, math.Float32bits(p.X))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(p.Y)), nil
}

func (p *Position) UnmarshalBinary(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("position: want 8 bytes, got %d", len(b))
	}
	p.X = math.Float32frombits(binary.LittleEndian.Uint32(b))
	p.Y = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	return nil
}

// Velocity is not Storable and is skipped by the codec.
type Velocity struct{ VX, VY float32 }

type Health struct{ Current, Max int32 }

func (Health) StableID() StableID { return StableIDOf("kura.test.Health") }

func (h Health) MarshalBinary() ([]byte, error) {
	b := binary.LittleEndian.AppendUint32(nil, uint32(h.Current))
	return binary.LittleEndian.AppendUint32(b, uint32(h.Max)), nil
}

func (h *Health) UnmarshalBinary(b []byte) error {
	if len(b) != 8 {
		return fmt.Errorf("health: want 8 bytes, got %d", len(b))
	}
	h.Current = int32(binary.LittleEndian.Uint32(b))
	h.Max = int32(binary.LittleEndian.Uint32(b[4:]))
	return nil
}

type Name struct{ Value string }

func (Name) StableID() StableID { return 0x4e414d4500000001 }

func (n Name) MarshalBinary() ([]byte, error) { return []byte(n.Value), nil }

func (n *Name) UnmarshalBinary(b []byte) error {
	n.Value = string(b)
	return nil
}

type Tag struct{}

// Assets is a resource mapping asset paths to loaded handles.
type Assets struct {
	paths []string
	loads int
}

func (a *Assets) Load(path string) int {
	a.loads++
	for i, p := range a.paths {
		if p == path {
			return i + 1
		}
	}
	a.paths = append(a.paths, path)
	return len(a.paths)
}

func (a *Assets) Path(handle int) (string, bool) {
	if handle <= 0 || handle > len(a.paths) {
		return "", false
	}
	return a.paths[handle-1], true
}

var errNoAssets = errors.New("no asset cache")

// Sprite persists only its asset path; the handle is rebuilt after decode.
type Sprite struct {
	Path   string
	handle int
}

func (Sprite) StableID() StableID { return StableIDOf("kura.test.Sprite") }

func (s Sprite) MarshalBinary() ([]byte, error) { return []byte(s.Path), nil }

func (s *Sprite) UnmarshalBinary(b []byte) error {
	s.Path = string(b)
	return nil
}

func (s *Sprite) BeforeEncode(n *Nexus, _ Entity) error {
	assets := GetResource[Assets](n.Resources())
	if assets == nil {
		return errNoAssets
	}
	path, ok := assets.Path(s.handle)
	if !ok {
		return fmt.Errorf("unknown sprite handle %d", s.handle)
	}
	s.Path = path
	return nil
}

func (s *Sprite) AfterDecode(n *Nexus, _ Entity) error {
	assets := GetResource[Assets](n.Resources())
	if assets == nil {
		return errNoAssets
	}
	s.handle = assets.Load(s.Path)
	return nil
}

// Unmarshalable always fails to marshal.
type Unmarshalable struct{}

func (Unmarshalable) StableID() StableID { return StableIDOf("kura.test.Unmarshalable") }

func (Unmarshalable) MarshalBinary() ([]byte, error) { return nil, errors.New("cannot marshal") }

func (*Unmarshalable) UnmarshalBinary([]byte) error { return nil }

func newTestRegistry() *Registry {
	reg := NewRegistry()
	for _, err := range []error{
		RegisterStorable[Position](reg),
		RegisterStorable[Health](reg),
		RegisterStorable[Name](reg),
		RegisterStorable[Sprite](reg),
	} {
		if err != nil {
			panic(err)
		}
	}
	reg.Freeze()
	return reg
}
