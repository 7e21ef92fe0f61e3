package value

// ObjString is an immutable, interned byte string. At most one ObjString
// with a given byte sequence is ever live in a VM; equality of ObjString
// pointers is therefore equivalent to equality of their bytes (spec.md §3).
type ObjString struct {
	Chars string
	Hash  uint32
	self  *Obj // back-reference, so holders of a bare *ObjString (e.g. a
	// function's Name, a class's Name) can still reach the Obj header to
	// mark it during GC.
}

// NewString allocates a new, un-interned ObjString wrapping chars. Callers
// that need interning (i.e. almost everyone) should go through
// heap.Heap.NewString instead of calling this directly.
func NewString(chars string) *Obj {
	s := &ObjString{Chars: chars, Hash: HashString(chars)}
	obj := newObj(ObjStringKind, s)
	s.self = obj
	return obj
}

// Obj returns the heap object header wrapping this string.
func (s *ObjString) Obj() *Obj { return s.self }

func (o *Obj) asString() *ObjString {
	if o.Kind != ObjStringKind {
		panic("value: asString on non-string Obj")
	}
	return o.payload.(*ObjString)
}

// AsString recovers the ObjString payload from v, which must hold a string.
func (v Value) AsString() *ObjString { return v.obj.asString() }

// IsString reports whether v is a heap string.
func (v Value) IsString() bool { return v.IsObjType(ObjStringKind) }

// HashString computes the 32-bit FNV-1a hash of s, used both for string
// interning and as the hash table probe key (spec.md §3, §4.5).
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
