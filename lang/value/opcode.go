package value

import "fmt"

// OpCode is a single bytecode instruction's operation. Operand widths are
// fixed per opcode (spec.md §4.3): one byte for CONSTANT and most name/slot
// operands, three bytes (little-endian) for CONSTANT_LONG, two bytes
// (big-endian) for jump targets.
type OpCode uint8

//nolint:revive
const (
	OpConstant     OpCode = iota // - CONSTANT<u8>      value
	OpConstantLong               // - CONSTANT_LONG<u24> value
	OpNil                        // - NIL   nil
	OpTrue                       // - TRUE  true
	OpFalse                      // - FALSE false
	OpPop                        // x POP   -

	OpGetLocal    // -     GET_LOCAL<slot>     value
	OpSetLocal    // value SET_LOCAL<slot>     value
	OpGetGlobal   // -     GET_GLOBAL<name>    value
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue

	OpGetProperty // instance     GET_PROPERTY<name> value
	OpSetProperty // instance val SET_PROPERTY<name> val

	OpEqual
	OpGreater
	OpLess

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNegate
	OpNot

	OpPrint

	OpJump        // -    JUMP<u16>          -
	OpJumpIfFalse // cond JUMP_IF_FALSE<u16> cond (does not pop)
	OpLoop        // -    LOOP<u16>          -

	OpCall        // callee arg1..argN CALL<argc>          result
	OpInvoke      // recv   arg1..argN INVOKE<name,argc>   result
	OpSuperInvoke // recv   arg1..argN SUPER_INVOKE<name,argc> result
	OpClosure     // -                 CLOSURE<const,(isLocal,index)*> closure
	OpCloseUpvalue
	OpReturn

	OpClass
	OpInherit
	OpMethod
	OpGetSuper

	opCodeMax
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpConstantLong: "OP_CONSTANT_LONG",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNegate:       "OP_NEGATE",
	OpNot:          "OP_NOT",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
	OpGetSuper:     "OP_GET_SUPER",
}

func (op OpCode) String() string {
	if op < opCodeMax {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", uint8(op))
}
