package value

// ObjClass is a class: its name and its method table (name -> *ObjClosure,
// stored as Value so the table can be the shared Table type).
type ObjClass struct {
	Name    *ObjString
	Methods *Table
}

func NewClass(name *ObjString) *Obj {
	return newObj(ObjClassKind, &ObjClass{Name: name, Methods: NewTable()})
}

func (o *Obj) asClass() *ObjClass {
	if o.Kind != ObjClassKind {
		panic("value: asClass on non-class Obj")
	}
	return o.payload.(*ObjClass)
}

// AsClass recovers the ObjClass payload from v, which must hold one.
func (v Value) AsClass() *ObjClass { return v.obj.asClass() }

// IsClass reports whether v is a heap class.
func (v Value) IsClass() bool { return v.IsObjType(ObjClassKind) }

// ObjInstance is an instance of a class, with a mutable field table
// (spec.md §3). ClassObj, rather than *ObjClass directly, so the GC can mark
// the class through the normal Obj-graph traversal.
type ObjInstance struct {
	ClassObj *Obj // Kind == ObjClassKind
	Fields   *Table
}

func NewInstance(classObj *Obj) *Obj {
	return newObj(ObjInstanceKind, &ObjInstance{ClassObj: classObj, Fields: NewTable()})
}

func (o *Obj) asInstance() *ObjInstance {
	if o.Kind != ObjInstanceKind {
		panic("value: asInstance on non-instance Obj")
	}
	return o.payload.(*ObjInstance)
}

// AsInstance recovers the ObjInstance payload from v, which must hold one.
func (v Value) AsInstance() *ObjInstance { return v.obj.asInstance() }

// IsInstance reports whether v is a heap instance.
func (v Value) IsInstance() bool { return v.IsObjType(ObjInstanceKind) }

// Class returns the instance's class.
func (i *ObjInstance) Class() *ObjClass { return i.ClassObj.asClass() }

// ObjBoundMethod pairs a receiver with a method closure, preserving `this`
// across a property load followed by a call (spec.md §3). MethodObj, rather
// than *ObjClosure directly, so the GC can mark the method through the
// normal Obj-graph traversal.
type ObjBoundMethod struct {
	Receiver  Value
	MethodObj *Obj // Kind == ObjClosureKind
}

func NewBoundMethod(receiver Value, methodObj *Obj) *Obj {
	return newObj(ObjBoundMethodKind, &ObjBoundMethod{Receiver: receiver, MethodObj: methodObj})
}

func (o *Obj) asBoundMethod() *ObjBoundMethod {
	if o.Kind != ObjBoundMethodKind {
		panic("value: asBoundMethod on non-bound-method Obj")
	}
	return o.payload.(*ObjBoundMethod)
}

// AsBoundMethod recovers the ObjBoundMethod payload from v, which must hold one.
func (v Value) AsBoundMethod() *ObjBoundMethod { return v.obj.asBoundMethod() }

// IsBoundMethod reports whether v is a heap bound method.
func (v Value) IsBoundMethod() bool { return v.IsObjType(ObjBoundMethodKind) }

// Method returns the bound method's underlying closure.
func (b *ObjBoundMethod) Method() *ObjClosure { return b.MethodObj.asClosure() }
