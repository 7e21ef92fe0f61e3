package heap_test

import (
	"testing"

	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

// fakeRoots implements heap.RootSource, marking only what the test wires up.
type fakeRoots struct {
	live []value.Value
}

func (r *fakeRoots) MarkRoots(h *heap.Heap) {
	for _, v := range r.live {
		h.MarkValue(v)
	}
}

func TestInternStringDeduplicates(t *testing.T) {
	h := heap.New()
	a := h.NewString("hello")
	b := h.NewString("hello")
	require.Same(t, a, b, "interning must return the same Obj for equal bytes")

	c := h.NewString("world")
	require.NotSame(t, a, c)
}

func TestCollectFreesUnreachableStrings(t *testing.T) {
	h := heap.New()
	roots := &fakeRoots{}
	h.SetRoots(roots)

	kept := h.NewString("kept")
	h.NewString("garbage")
	roots.live = []value.Value{value.ObjVal(kept)}

	before := h.BytesAllocated()
	h.Collect()
	after := h.BytesAllocated()
	require.Less(t, after, before, "collecting should have freed the unreachable string")

	// the kept string must still be findable through the intern table
	same := h.NewString("kept")
	require.Same(t, kept, same)
}

func TestCollectPrunesInternTableOfDeadStrings(t *testing.T) {
	h := heap.New()
	roots := &fakeRoots{}
	h.SetRoots(roots)

	first := h.NewString("temp")
	h.Collect()

	// re-interning "temp" after collection must allocate a fresh string, not
	// resurrect the freed one, because the dead entry was pruned from the
	// table before sweep.
	again := h.NewString("temp")
	require.NotNil(t, again)
	require.NotSame(t, first, again)
}

func TestStressModeCollectsEveryAllocation(t *testing.T) {
	h := heap.New()
	h.Stress = true
	roots := &fakeRoots{}
	h.SetRoots(roots)

	h.NewString("a")
	h.NewString("b")
	// with nothing rooted, both should have been collected already
	require.Equal(t, 0, h.BytesAllocated())
}

func TestMarkObjectGraphThroughClosureAndUpvalue(t *testing.T) {
	h := heap.New()
	roots := &fakeRoots{}
	h.SetRoots(roots)

	fnObj := h.NewFunction()
	fn := fnObj.AsFunctionPayload()
	fn.UpvalueCount = 1
	nameObj := h.NewString("f")
	fn.Name = nameObj.AsStringKey()

	closureObj := h.NewClosure(fnObj)
	closure := closureObj.AsClosurePayload()

	capturedObj := h.NewString("captured")
	slot := value.ObjVal(capturedObj)
	upObj := h.NewUpvalue(&slot)
	closure.Upvalues[0] = upObj

	roots.live = []value.Value{value.ObjVal(closureObj)}
	h.Collect()

	require.False(t, fnObj.Marked, "mark bits are cleared after a cycle")
	// everything reachable from the closure should have survived the sweep:
	// re-requesting the same strings by content must still hit the intern
	// table rather than allocating anew at a different address.
	require.Same(t, nameObj, h.NewString("f"))
	require.Same(t, capturedObj, h.NewString("captured"))
}
