package value

// ObjKind discriminates the kind of heap object an Obj header belongs to.
type ObjKind uint8

const (
	ObjStringKind ObjKind = iota
	ObjFunctionKind
	ObjNativeKind
	ObjUpvalueKind
	ObjClosureKind
	ObjClassKind
	ObjInstanceKind
	ObjBoundMethodKind
)

func (k ObjKind) String() string {
	switch k {
	case ObjStringKind:
		return "string"
	case ObjFunctionKind:
		return "function"
	case ObjNativeKind:
		return "native function"
	case ObjUpvalueKind:
		return "upvalue"
	case ObjClosureKind:
		return "closure"
	case ObjClassKind:
		return "class"
	case ObjInstanceKind:
		return "instance"
	case ObjBoundMethodKind:
		return "bound method"
	default:
		return "unknown"
	}
}

// Obj is the header shared by every heap object: its kind, the GC mark bit,
// and the intrusive link into the heap's object list (spec.md §3). The
// concrete object is held as the Obj's payload and recovered from a *Obj via
// the As* helpers.
type Obj struct {
	Kind    ObjKind
	Marked  bool
	Next    *Obj
	payload interface{}
}

// String implements Value's rendering for heap objects by dispatching to the
// concrete object's own String method.
func (o *Obj) String() string {
	switch o.Kind {
	case ObjStringKind:
		return o.asString().Chars
	case ObjFunctionKind:
		return o.asFunction().String()
	case ObjNativeKind:
		return "<native fn>"
	case ObjUpvalueKind:
		return "upvalue"
	case ObjClosureKind:
		return o.asClosure().Function().String()
	case ObjClassKind:
		return o.asClass().Name.Chars
	case ObjInstanceKind:
		return o.asInstance().Class().Name.Chars + " instance"
	case ObjBoundMethodKind:
		return o.asBoundMethod().Method().Function().String()
	default:
		return "<obj>"
	}
}

func newObj(kind ObjKind, payload interface{}) *Obj {
	return &Obj{Kind: kind, payload: payload}
}

// The As*Payload methods expose each concrete object type to packages
// outside value (heap, compiler, vm) that need to walk the object graph
// directly via *Obj, rather than through a Value wrapper.

func (o *Obj) AsStringKey() *ObjString             { return o.asString() }
func (o *Obj) AsFunctionPayload() *ObjFunction     { return o.asFunction() }
func (o *Obj) AsNativePayload() *ObjNative         { return o.asNative() }
func (o *Obj) AsUpvaluePayload() *ObjUpvalue       { return o.asUpvalue() }
func (o *Obj) AsClosurePayload() *ObjClosure       { return o.asClosure() }
func (o *Obj) AsClassPayload() *ObjClass           { return o.asClass() }
func (o *Obj) AsInstancePayload() *ObjInstance     { return o.asInstance() }
func (o *Obj) AsBoundMethodPayload() *ObjBoundMethod { return o.asBoundMethod() }
