package value_test

import (
	"testing"

	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

func internedKey(s string) *value.ObjString {
	return value.NewString(s).AsStringKey()
}

func TestTableSetGetDelete(t *testing.T) {
	tbl := value.NewTable()
	k1 := internedKey("a")
	k2 := internedKey("b")

	require.True(t, tbl.Set(k1, value.Number(1)))
	require.True(t, tbl.Set(k2, value.Number(2)))
	require.False(t, tbl.Set(k1, value.Number(11)), "overwrite is not a new key")
	require.Equal(t, 2, tbl.Count())

	v, ok := tbl.Get(k1)
	require.True(t, ok)
	require.Equal(t, 11.0, v.AsNumber())

	require.True(t, tbl.Delete(k1))
	_, ok = tbl.Get(k1)
	require.False(t, ok)
	require.Equal(t, 1, tbl.Count(), "delete decrements the live-entry count")
}

func TestTableTombstoneReuseDoesNotDoubleCount(t *testing.T) {
	tbl := value.NewTable()
	k1 := internedKey("x")
	k2 := internedKey("y")

	tbl.Set(k1, value.Number(1))
	tbl.Delete(k1)
	before := tbl.Count()
	tbl.Set(k2, value.Number(2))
	require.Equal(t, before+1, tbl.Count())
}

func TestTableGrowthPreservesEntries(t *testing.T) {
	tbl := value.NewTable()
	keys := make([]*value.ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := internedKey(string(rune('a' + i%26)) + string(rune('0'+i/26)))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, float64(i), v.AsNumber())
	}
}

func TestFindStringDedup(t *testing.T) {
	tbl := value.NewTable()
	k := internedKey("hello")
	tbl.Set(k, value.Nil)

	found := tbl.FindString("hello", value.HashString("hello"))
	require.Same(t, k, found)

	require.Nil(t, tbl.FindString("nope", value.HashString("nope")))
}

func TestAddAllCopiesEntries(t *testing.T) {
	src := value.NewTable()
	dst := value.NewTable()
	k := internedKey("init")
	src.Set(k, value.Number(1))

	dst.AddAll(src)
	v, ok := dst.Get(k)
	require.True(t, ok)
	require.Equal(t, 1.0, v.AsNumber())
}
