package heap

import "github.com/mna/ember/lang/value"

// Collect runs one full mark-sweep cycle: mark every root and everything
// reachable from it, prune dead entries from the string-intern table, sweep
// every unmarked object from the object list, and grow the next-collection
// threshold (spec.md §4.4). It is safe to call directly (e.g. from tests
// exercising GC behavior) in addition to being triggered automatically by
// allocation.
func (h *Heap) Collect() {
	before := h.bytesAllocated
	h.logf("-- gc begin")

	h.markRoots()
	h.traceReferences()
	h.pruneStrings()
	h.sweep()

	h.nextGC = h.bytesAllocated * growFactor
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}

	h.logf("-- gc end, collected %d bytes (from %d to %d), next at %d",
		before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
}

func (h *Heap) markRoots() {
	for _, v := range h.pinned {
		h.MarkValue(v)
	}
	for _, rs := range h.roots {
		if rs != nil {
			rs.MarkRoots(h)
		}
	}
}

// MarkValue marks v's underlying object, if it is a heap value.
func (h *Heap) MarkValue(v value.Value) {
	if v.IsObj() {
		h.MarkObject(v.AsObj())
	}
}

// MarkObject marks obj reachable, queuing it on the gray worklist if this is
// the first time it's been reached this cycle (spec.md §4.4 tri-color
// marking: marking = white -> gray).
func (h *Heap) MarkObject(obj *value.Obj) {
	if obj == nil || obj.Marked {
		return
	}
	obj.Marked = true
	h.gray = append(h.gray, obj)
	h.logf("mark %p (kind=%s)", obj, obj.Kind)
}

// MarkTable marks every key and value in t (used for the globals table and
// for method/field tables reached from a class or instance).
func (h *Heap) MarkTable(t *value.Table) {
	if t == nil {
		return
	}
	for _, k := range t.Keys() {
		h.MarkObject(k.Obj())
		if v, ok := t.Get(k); ok {
			h.MarkValue(v)
		}
	}
}

// traceReferences drains the gray worklist, blackening each object in turn
// (visiting its children and marking them gray).
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		obj := h.gray[n]
		h.gray = h.gray[:n]
		h.blacken(obj)
	}
}

// blacken visits obj's outgoing references, by object type, marking each
// (spec.md §4.4).
func (h *Heap) blacken(obj *value.Obj) {
	h.logf("blacken %p (kind=%s)", obj, obj.Kind)
	switch obj.Kind {
	case value.ObjStringKind, value.ObjNativeKind:
		// no children
	case value.ObjUpvalueKind:
		up := obj.AsUpvaluePayload()
		h.MarkValue(up.Get())
	case value.ObjFunctionKind:
		fn := obj.AsFunctionPayload()
		if fn.Name != nil {
			h.MarkObject(fn.Name.Obj())
		}
		for _, c := range fn.Chunk.Constants {
			h.MarkValue(c)
		}
	case value.ObjClosureKind:
		cl := obj.AsClosurePayload()
		h.MarkObject(cl.FunctionObj)
		for _, uv := range cl.Upvalues {
			h.MarkObject(uv)
		}
	case value.ObjClassKind:
		cls := obj.AsClassPayload()
		h.MarkObject(cls.Name.Obj())
		h.MarkTable(cls.Methods)
	case value.ObjInstanceKind:
		inst := obj.AsInstancePayload()
		h.MarkObject(inst.ClassObj)
		h.MarkTable(inst.Fields)
	case value.ObjBoundMethodKind:
		bm := obj.AsBoundMethodPayload()
		h.MarkValue(bm.Receiver)
		h.MarkObject(bm.MethodObj)
	}
}

// pruneStrings removes every intern-table entry whose key is about to be
// swept, so that no probe sequence can later dereference a freed string
// (spec.md §4.4, "String table pruning").
func (h *Heap) pruneStrings() {
	for _, k := range h.strings.Keys() {
		if !k.Obj().Marked {
			h.strings.Delete(k)
		}
	}
}

// sweep unlinks and frees every unmarked object, clearing the mark bit of
// everything that survives.
func (h *Heap) sweep() {
	var prev *value.Obj
	obj := h.objects
	for obj != nil {
		if obj.Marked {
			obj.Marked = false
			prev = obj
			obj = obj.Next
			continue
		}

		unreached := obj
		obj = obj.Next
		if prev != nil {
			prev.Next = obj
		} else {
			h.objects = obj
		}
		h.free(unreached)
	}
}

func (h *Heap) free(obj *value.Obj) {
	h.bytesAllocated -= sizeofObj(obj)
	h.logf("free %p (kind=%s)", obj, obj.Kind)
}

func sizeofObj(obj *value.Obj) int {
	switch obj.Kind {
	case value.ObjStringKind:
		return sizeofString(obj.AsStringKey().Chars)
	case value.ObjFunctionKind:
		return sizeofFunction
	case value.ObjNativeKind:
		return sizeofNative
	case value.ObjUpvalueKind:
		return sizeofUpvalue
	case value.ObjClosureKind:
		return sizeofClosureBase + len(obj.AsClosurePayload().Upvalues)*sizeofPtr
	case value.ObjClassKind:
		return sizeofClass
	case value.ObjInstanceKind:
		return sizeofInstance
	case value.ObjBoundMethodKind:
		return sizeofBoundMethod
	default:
		return 0
	}
}
