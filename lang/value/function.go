package value

import "fmt"

// ObjFunction is a compiled function: its arity, the number of upvalues it
// captures, the chunk of bytecode it owns exclusively, and an optional name
// (nil for the top-level script function).
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString // nil for the top-level <script> function
}

func NewFunction() *Obj {
	return newObj(ObjFunctionKind, &ObjFunction{})
}

func (o *Obj) asFunction() *ObjFunction {
	if o.Kind != ObjFunctionKind {
		panic("value: asFunction on non-function Obj")
	}
	return o.payload.(*ObjFunction)
}

// AsFunction recovers the ObjFunction payload from v, which must hold one.
func (v Value) AsFunction() *ObjFunction { return v.obj.asFunction() }

// IsFunction reports whether v is a heap function.
func (v Value) IsFunction() bool { return v.IsObjType(ObjFunctionKind) }

func (fn *ObjFunction) String() string {
	if fn.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", fn.Name.Chars)
}

// NativeFn is the signature of a built-in function: given the argument
// values, it returns a result or an error. Arity is validated by the VM
// before calling, using ObjNative.Arity (spec.md §4.3 extended per
// SPEC_FULL.md's native registry addition).
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a Go-implemented built-in function, such as clock.
type ObjNative struct {
	Name  string
	Arity int // -1 means variadic / unchecked
	Fn    NativeFn
}

func NewNative(name string, arity int, fn NativeFn) *Obj {
	return newObj(ObjNativeKind, &ObjNative{Name: name, Arity: arity, Fn: fn})
}

func (o *Obj) asNative() *ObjNative {
	if o.Kind != ObjNativeKind {
		panic("value: asNative on non-native Obj")
	}
	return o.payload.(*ObjNative)
}

// AsNative recovers the ObjNative payload from v, which must hold one.
func (v Value) AsNative() *ObjNative { return v.obj.asNative() }

// IsNative reports whether v is a native function.
func (v Value) IsNative() bool { return v.IsObjType(ObjNativeKind) }

// ObjUpvalue is either "open" (Location points into a live stack slot) or
// "closed" (Closed owns the captured value, Location is nil). The VM links
// open upvalues into a list sorted by descending stack address so that
// overlapping closures created from the same frame share a single Upvalue
// per captured slot (spec.md §3, §4.3).
type ObjUpvalue struct {
	Location *Value // non-nil while open; points into the value stack
	Closed   Value  // valid once closed
	Next     *ObjUpvalue
}

func NewUpvalue(slot *Value) *Obj {
	return newObj(ObjUpvalueKind, &ObjUpvalue{Location: slot})
}

func (o *Obj) asUpvalue() *ObjUpvalue {
	if o.Kind != ObjUpvalueKind {
		panic("value: asUpvalue on non-upvalue Obj")
	}
	return o.payload.(*ObjUpvalue)
}

// AsUpvalue recovers the ObjUpvalue payload from v, which must hold one.
func (v Value) AsUpvalue() *ObjUpvalue { return v.obj.asUpvalue() }

// Get returns the upvalue's current value, whether open or closed.
func (u *ObjUpvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the upvalue's current location, whether open or
// closed, preserving the aliasing behavior spec.md §9 requires: writes via
// SET_LOCAL remain visible through GET_UPVALUE until the slot is closed.
func (u *ObjUpvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close copies the current (aliased) value into the upvalue and severs the
// alias, so the upvalue now owns its value independent of the stack slot.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

// ObjClosure pairs a compiled function with the upvalues captured at the
// site of its creation; Upvalues is sized exactly to Function.UpvalueCount.
// FunctionObj, rather than *ObjFunction directly, so the GC can mark the
// function through the normal Obj-graph traversal (heap's blacken).
type ObjClosure struct {
	FunctionObj *Obj // Kind == ObjFunctionKind
	Upvalues    []*Obj // each Kind == ObjUpvalueKind
}

func NewClosure(fnObj *Obj) *Obj {
	fn := fnObj.asFunction()
	return newObj(ObjClosureKind, &ObjClosure{
		FunctionObj: fnObj,
		Upvalues:    make([]*Obj, fn.UpvalueCount),
	})
}

func (o *Obj) asClosure() *ObjClosure {
	if o.Kind != ObjClosureKind {
		panic("value: asClosure on non-closure Obj")
	}
	return o.payload.(*ObjClosure)
}

// AsClosure recovers the ObjClosure payload from v, which must hold one.
func (v Value) AsClosure() *ObjClosure { return v.obj.asClosure() }

// IsClosure reports whether v is a heap closure.
func (v Value) IsClosure() bool { return v.IsObjType(ObjClosureKind) }

// Function returns the closure's underlying ObjFunction.
func (c *ObjClosure) Function() *ObjFunction { return c.FunctionObj.asFunction() }

// Upvalue returns the i'th captured upvalue's ObjUpvalue payload.
func (c *ObjClosure) Upvalue(i int) *ObjUpvalue { return c.Upvalues[i].asUpvalue() }
