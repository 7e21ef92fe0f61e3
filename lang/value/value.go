// Package value implements Ember's runtime value representation: the
// discriminated Value type, the heap-object hierarchy (strings, functions,
// closures, upvalues, classes, instances, bound methods), and the bytecode
// Chunk that a compiled function owns.
//
// Value, Obj and Chunk are defined in a single package rather than split
// across value/object/chunk packages because their natural Go types are
// mutually dependent: a Value may hold a pointer to an Obj, an ObjFunction
// (an Obj) owns a Chunk, and a Chunk's constant pool is a slice of Value.
// Splitting them would require an import cycle; collapsing them here is the
// same resolution the teacher repo uses for its flat lang/types package.
package value

import (
	"fmt"
	"math"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is Ember's uniform value representation: nil, a boolean, an
// IEEE-754 double, or a pointer to a heap Obj. This is the "discriminated
// variant" rendering spec.md allows as an alternative to NaN-boxing.
type Value struct {
	kind Kind
	num  float64 // also holds 1.0/0.0 for true/false, unused for nil/obj
	obj  *Obj
}

// Nil is the singleton nil value.
var Nil = Value{kind: KindNil}

// True and False are the two boolean values.
var (
	True  = Value{kind: KindBool, num: 1}
	False = Value{kind: KindBool, num: 0}
)

// Bool returns the Value for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns the Value wrapping the float64 n.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// ObjVal returns the Value wrapping the heap object o. o must not be nil.
func ObjVal(o *Obj) Value {
	if o == nil {
		panic("value: ObjVal called with nil Obj")
	}
	return Value{kind: KindObj, obj: o}
}

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObj() bool    { return v.kind == KindObj }

func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() *Obj       { return v.obj }

// IsObjType reports whether v is a heap object of the given Kind.
func (v Value) IsObjType(k ObjKind) bool { return v.kind == KindObj && v.obj.Kind == k }

// Falsey reports whether v belongs to the "falsey" set: nil and false.
// Everything else, including 0 and the empty string, is truthy.
func (v Value) Falsey() bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements Ember's value-equality rule: nil equals nil; booleans and
// numbers compare by value (so NaN != NaN, per IEEE-754); objects compare by
// identity, except that interned strings compare equal iff they are the same
// identity (which holds automatically since all live strings are interned).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool:
		return a.num == b.num
	case KindNumber:
		return a.num == b.num
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v using Ember's canonical stdout rendering (spec.md §6).
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

// TypeName returns a short description of v's runtime type, used in error
// messages ("Operand must be a number.", etc.).
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObj:
		return v.obj.Kind.String()
	default:
		return "invalid"
	}
}

func formatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if math.IsNaN(n) {
		return "nan"
	}
	return fmt.Sprintf("%g", n)
}
