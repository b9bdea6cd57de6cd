package kura

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResources(t *testing.T) {
	type testStruct1 struct{}
	type testStruct2 struct{}

	t.Run("Add and Get", func(t *testing.T) {
		r := &Resources{}
		res1 := &testStruct1{}
		require.Equal(t, 0, r.Add(res1))
		require.Same(t, res1, r.Get(0))
	})

	t.Run("Has", func(t *testing.T) {
		r := &Resources{}
		r.Add(&testStruct1{})
		require.True(t, r.Has(0))
		require.False(t, r.Has(1))
		require.False(t, r.Has(-1))
	})

	t.Run("Add same type panics", func(t *testing.T) {
		r := &Resources{}
		r.Add(&testStruct1{})
		require.Panics(t, func() { r.Add(&testStruct1{}) })
	})

	t.Run("Add nil panics", func(t *testing.T) {
		r := &Resources{}
		require.PanicsWithValue(t, "kura: cannot add nil resource", func() { r.Add(nil) })
	})

	t.Run("Slots are reused", func(t *testing.T) {
		r := &Resources{}
		id0 := r.Add(&testStruct1{})
		id1 := r.Add(&testStruct2{})
		r.Remove(id0)
		r.Remove(id1)
		require.Equal(t, 1, r.Add(&testStruct1{}))
		require.Equal(t, 0, r.Add(&testStruct2{}))
		require.Equal(t, 2, r.Len())
	})

	t.Run("Remove and Clear", func(t *testing.T) {
		r := &Resources{}
		id := r.Add(&testStruct1{})
		r.Remove(id)
		r.Remove(id)
		require.Nil(t, r.Get(id))

		r.Add(&testStruct1{})
		r.Add(&testStruct2{})
		r.Clear()
		require.Zero(t, r.Len())
		require.False(t, r.Has(0))
		require.Equal(t, 0, r.Add(&testStruct1{}))
	})

	t.Run("Typed access", func(t *testing.T) {
		r := &Resources{}
		assets := &Assets{}
		AddResource(r, assets)
		require.True(t, HasResource[Assets](r))
		require.Same(t, assets, GetResource[Assets](r))
		require.Nil(t, GetResource[testStruct1](r))

		RemoveResource[Assets](r)
		require.False(t, HasResource[Assets](r))
		require.Nil(t, GetResource[Assets](r))
	})

	t.Run("Shared with a nexus", func(t *testing.T) {
		r := &Resources{}
		n := NewNexus(0, WithResources(r))
		require.Same(t, r, n.Resources())
		require.NotNil(t, NewNexus(0).Resources())
	})
}
