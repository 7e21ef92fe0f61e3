// Package heap implements Ember's precise tri-color mark-sweep garbage
// collector (spec.md §4.4): allocation accounting with an adaptive
// heap-growth threshold, the intrusive object list every heap object is
// linked into, and string interning. The collector does not replace Go's own
// memory management — it models, on top of it, the exact bookkeeping and
// mark/sweep contract spec.md requires (bytesAllocated accounting, the
// stress-test mode, root enumeration), so the behavioral invariants in
// spec.md §8 hold regardless of when Go's runtime actually reclaims memory.
package heap

import (
	"fmt"
	"io"

	"github.com/mna/ember/lang/value"
)

// growFactor is applied to bytesAllocated to compute the next collection
// threshold after a cycle completes (spec.md §4.4).
const growFactor = 2

// initialNextGC is the threshold for the very first collection.
const initialNextGC = 1 << 20

// RootSource is implemented by whatever owns the live mutator state (the VM,
// and transitively the compiler chain while compilation is in progress) so
// the collector can enumerate roots without heap importing vm or compiler.
type RootSource interface {
	// MarkRoots is called at the start of every collection cycle; it must
	// call h.MarkValue/h.MarkObject for every root described in spec.md §4.4:
	// the value stack, call frames, the open-upvalue list, the globals table,
	// and the compiler chain's currently-compiling functions.
	MarkRoots(h *Heap)
}

// Heap owns every object allocated while compiling or running a program: the
// intrusive object list, the string intern table, and the GC's bookkeeping.
type Heap struct {
	// roots is a stack of every RootSource currently in scope, consulted in
	// full on every collection. Index 0 is the long-lived base installed by
	// SetRoots (the owning VM); anything above it is a temporary layer pushed
	// by PushRoots (e.g. a compilation in progress), so that roots accumulate
	// instead of being replaced.
	roots []RootSource

	objects *value.Obj
	strings *value.Table

	bytesAllocated int
	nextGC         int

	gray []*value.Obj

	// pinned holds values that must survive a collection that happens before
	// they've been reachable from any root yet — e.g. a freshly interned
	// string, mid-concatenation, that hasn't been pushed onto the VM stack or
	// stored into a table slot. Allocation call sites Pin before doing
	// anything that might itself allocate, and Unpin once the value is
	// reachable some other way (spec.md §4.4, "Allocation during
	// compilation").
	pinned []value.Value

	Stress bool      // force a collection cycle on every allocation
	LogGC  bool       // log allocate/free/collect events
	Log    io.Writer // destination for LogGC output; defaults to io.Discard
}

// New returns an empty Heap. SetRoots must be called once the owning VM
// exists, before any allocation that could trigger a collection cycle; a
// compilation adds its own roots with PushRoots.
func New() *Heap {
	return &Heap{
		strings: value.NewTable(),
		nextGC:  initialNextGC,
		Log:     io.Discard,
	}
}

// SetRoots installs rs as the base RootSource consulted by every subsequent
// collection, replacing whatever base was installed before (there is at most
// one: the owning VM, for the lifetime of the heap). It does not disturb any
// layer pushed by PushRoots.
func (h *Heap) SetRoots(rs RootSource) {
	if len(h.roots) == 0 {
		h.roots = append(h.roots, rs)
		return
	}
	h.roots[0] = rs
}

// PushRoots adds rs as an additional RootSource, consulted alongside every
// other currently-installed root source (the base and any other pushed
// layer) until the matching PopRoots call. Compilation uses this so that the
// compiler chain's in-progress functions are marked in addition to, not
// instead of, the owning VM's roots (spec.md §4.4): a GC cycle triggered
// mid-compile — including one forced by Stress — must still see the VM's
// stack, frames, globals, and open upvalues.
func (h *Heap) PushRoots(rs RootSource) {
	h.roots = append(h.roots, rs)
}

// PopRoots removes the most recently pushed RootSource. Must be paired LIFO
// with PushRoots, typically via defer right after the matching push.
func (h *Heap) PopRoots() {
	h.roots = h.roots[:len(h.roots)-1]
}

// BytesAllocated returns the current allocation accounting total.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// Strings returns the intern table, for diagnostics only.
func (h *Heap) Strings() *value.Table { return h.strings }

// Objects returns the head of the intrusive object list, for diagnostics
// only.
func (h *Heap) Objects() *value.Obj { return h.objects }

// Pin roots v across an allocation that might otherwise collect it before it
// becomes reachable some other way. Must be paired with Unpin, LIFO.
func (h *Heap) Pin(v value.Value) { h.pinned = append(h.pinned, v) }

// Unpin releases the most recently pinned value.
func (h *Heap) Unpin() { h.pinned = h.pinned[:len(h.pinned)-1] }

// logf writes a GC diagnostic line when LogGC is enabled.
func (h *Heap) logf(format string, args ...interface{}) {
	if h.LogGC {
		fmt.Fprintf(h.Log, format+"\n", args...)
	}
}

// link accounts for size bytes and threads obj into the object list. Every
// New* allocator below calls this exactly once, immediately after creating
// the Obj and before it is otherwise reachable.
func (h *Heap) link(obj *value.Obj, size int) {
	obj.Next = h.objects
	h.objects = obj
	h.bytesAllocated += size
	h.logf("alloc %p size=%d (kind=%s)", obj, size, obj.Kind)
}

// maybeCollect runs a cycle if the stress flag is set or the allocation
// threshold has been exceeded (spec.md §4.4).
func (h *Heap) maybeCollect() {
	if h.Stress || h.bytesAllocated > h.nextGC {
		h.Collect()
	}
}

// sizeofString approximates an ObjString's footprint: header plus bytes.
func sizeofString(chars string) int { return 32 + len(chars) }

const (
	sizeofFunction    = 96
	sizeofNative      = 48
	sizeofUpvalue     = 32
	sizeofClosureBase = 40
	sizeofPtr         = 8
	sizeofClass       = 48
	sizeofInstance    = 48
	sizeofBoundMethod = 32
)

// NewString interns chars, returning the existing ObjString if one with the
// same bytes is already live, or allocating (and linking) a new one. This is
// the only path through which strings enter the heap, so at most one live
// string per byte sequence ever exists in the VM (spec.md §3).
func (h *Heap) NewString(chars string) *value.Obj {
	hash := value.HashString(chars)
	if key := h.strings.FindString(chars, hash); key != nil {
		v, _ := h.strings.Get(key)
		return v.AsObj()
	}

	obj := value.NewString(chars)
	h.link(obj, sizeofString(chars))

	// root the new string across the table insertion below, which must not
	// see it collected before it is itself in the table.
	wrapped := value.ObjVal(obj)
	h.Pin(wrapped)
	h.strings.Set(obj.AsStringKey(), wrapped)
	h.Unpin()

	h.maybeCollect()
	return obj
}

func (h *Heap) NewFunction() *value.Obj {
	obj := value.NewFunction()
	h.link(obj, sizeofFunction)
	h.maybeCollect()
	return obj
}

func (h *Heap) NewNative(name string, arity int, fn value.NativeFn) *value.Obj {
	obj := value.NewNative(name, arity, fn)
	h.link(obj, sizeofNative)
	h.maybeCollect()
	return obj
}

func (h *Heap) NewUpvalue(slot *value.Value) *value.Obj {
	obj := value.NewUpvalue(slot)
	h.link(obj, sizeofUpvalue)
	h.maybeCollect()
	return obj
}

func (h *Heap) NewClosure(fn *value.Obj) *value.Obj {
	h.Pin(value.ObjVal(fn))
	obj := value.NewClosure(fn)
	h.link(obj, sizeofClosureBase+fn.AsFunctionPayload().UpvalueCount*sizeofPtr)
	h.Unpin()
	h.maybeCollect()
	return obj
}

func (h *Heap) NewClass(name *value.Obj) *value.Obj {
	h.Pin(value.ObjVal(name))
	obj := value.NewClass(name.AsStringKey())
	h.link(obj, sizeofClass)
	h.Unpin()
	h.maybeCollect()
	return obj
}

func (h *Heap) NewInstance(class *value.Obj) *value.Obj {
	h.Pin(value.ObjVal(class))
	obj := value.NewInstance(class)
	h.link(obj, sizeofInstance)
	h.Unpin()
	h.maybeCollect()
	return obj
}

func (h *Heap) NewBoundMethod(receiver value.Value, method *value.Obj) *value.Obj {
	h.Pin(receiver)
	h.Pin(value.ObjVal(method))
	obj := value.NewBoundMethod(receiver, method)
	h.link(obj, sizeofBoundMethod)
	h.Unpin()
	h.Unpin()
	h.maybeCollect()
	return obj
}
