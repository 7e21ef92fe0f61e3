package value_test

import (
	"math"
	"testing"

	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

func TestEquality(t *testing.T) {
	require.True(t, value.Equal(value.Nil, value.Nil))
	require.True(t, value.Equal(value.True, value.True))
	require.False(t, value.Equal(value.True, value.False))
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.Number(2)))
	require.False(t, value.Equal(value.Nil, value.False))

	nan := value.Number(math.NaN())
	require.False(t, value.Equal(nan, nan), "NaN must not equal itself")
}

func TestObjectIdentityEquality(t *testing.T) {
	s1 := value.ObjVal(value.NewString("hi"))
	s2 := value.ObjVal(value.NewString("hi"))
	// distinct, un-interned allocations are not equal by identity even with
	// the same bytes; interning (owned by the heap package) is what makes
	// equal-bytes strings compare equal in practice.
	require.False(t, value.Equal(s1, s2))
	require.True(t, value.Equal(s1, s1))
}

func TestFalsey(t *testing.T) {
	require.True(t, value.Nil.Falsey())
	require.True(t, value.False.Falsey())
	require.False(t, value.True.Falsey())
	require.False(t, value.Number(0).Falsey())
	require.False(t, value.ObjVal(value.NewString("")).Falsey())
}

func TestCanonicalRendering(t *testing.T) {
	require.Equal(t, "nil", value.Nil.String())
	require.Equal(t, "true", value.True.String())
	require.Equal(t, "false", value.False.String())
	require.Equal(t, "1", value.Number(1).String())
	require.Equal(t, "1.5", value.Number(1.5).String())

	fn := value.NewFunction()
	fn.AsFunctionPayload().Name = value.NewString("fib").AsStringKey()
	require.Equal(t, "<fn fib>", value.ObjVal(fn).String())

	script := value.NewFunction()
	require.Equal(t, "<script>", value.ObjVal(script).String())

	class := value.NewClass(value.NewString("Pair").AsStringKey())
	require.Equal(t, "Pair", value.ObjVal(class).String())

	inst := value.NewInstance(class)
	require.Equal(t, "Pair instance", value.ObjVal(inst).String())
}
