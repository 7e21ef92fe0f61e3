// Package vm implements Ember's stack-based bytecode interpreter: the
// fetch-decode-execute loop, call frames, the globals table, and the
// runtime's object-graph operations (closures, upvalues, classes, instances,
// method dispatch) that the compiler's opcodes assume (spec.md §5).
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/value"
)

const maxFrames = 64

// stackMax bounds the operand stack at a fixed capacity, the way clox's
// STACK_MAX does: every open upvalue holds a raw *Value pointing directly
// into this backing array (captureUpvalue), so the array must never be
// reallocated by append while any upvalue could be open. Preallocating
// stackMax slots up front and enforcing the frame-count limit in call()
// before ever pushing past it keeps every append within capacity, so the
// backing array address never moves (spec.md §5.1, §4.3).
const stackMax = maxFrames * 256

// frame is one call's activation record: the closure being executed, the
// instruction pointer into its chunk, and the base stack slot its locals
// start at (spec.md §5.1).
type frame struct {
	closure *value.Obj // Kind == ObjClosureKind
	ip      int
	slots   int
}

// VM runs compiled Ember programs. The zero value is not usable; construct
// with New.
type VM struct {
	heap    *heap.Heap
	stack   []value.Value
	frames  []frame
	globals *value.Table

	openUpvalues *value.Obj // head of the open-upvalue list, sorted by descending stack slot
	initString   *value.ObjString
	natives      *nativeRegistry

	Stdout io.Writer
	Stderr io.Writer
}

// New returns a ready-to-use VM backed by h, with every builtin installed
// into its globals table.
func New(h *heap.Heap) *VM {
	vm := &VM{
		heap:    h,
		globals: value.NewTable(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	vm.stack = make([]value.Value, 0, stackMax)
	h.SetRoots(vm)
	vm.initString = h.NewString("init").AsStringKey()
	vm.natives = newNativeRegistry()
	vm.natives.installInto(vm)
	return vm
}

// MarkRoots implements heap.RootSource: every value on the operand stack,
// every frame's closure, the globals table, the open-upvalue list and the
// interned "init" string are GC roots for the lifetime of the VM (spec.md
// §4.4, §5).
func (vm *VM) MarkRoots(h *heap.Heap) {
	for _, v := range vm.stack {
		h.MarkValue(v)
	}
	for _, f := range vm.frames {
		h.MarkObject(f.closure)
	}
	h.MarkTable(vm.globals)
	for up := vm.openUpvalues; up != nil; up = up.AsUpvaluePayload().Next {
		h.MarkObject(up)
	}
	if vm.initString != nil {
		h.MarkObject(vm.initString.Obj())
	}
}

// Interpret compiles and runs source as a fresh top-level program.
func (vm *VM) Interpret(source []byte) error {
	fnObj, err := compiler.Compile(source, vm.heap)
	if err != nil {
		return err
	}

	vm.push(value.ObjVal(fnObj))
	closureObj := vm.heap.NewClosure(fnObj)
	vm.pop()
	vm.push(value.ObjVal(closureObj))

	if err := vm.call(closureObj, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) resetStack() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.openUpvalues = nil
}

func (vm *VM) currentFrame() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) currentChunk() *value.Chunk {
	return &vm.currentFrame().closure.AsClosurePayload().Function().Chunk
}

func (vm *VM) readByte() byte {
	f := vm.currentFrame()
	b := vm.currentChunk().Code[f.ip]
	f.ip++
	return b
}

// readShort reads a two-byte, big-endian jump/loop operand (spec.md §4.3).
func (vm *VM) readShort() uint16 {
	hi := vm.readByte()
	lo := vm.readByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (vm *VM) readConstant() value.Value {
	idx := int(vm.readByte())
	return vm.currentChunk().Constants[idx]
}

func (vm *VM) readConstantLong() value.Value {
	b0 := int(vm.readByte())
	b1 := int(vm.readByte())
	b2 := int(vm.readByte())
	idx := b0 | b1<<8 | b2<<16
	return vm.currentChunk().Constants[idx]
}

func (vm *VM) readString() *value.ObjString { return vm.readConstant().AsString() }

// run executes the fetch-decode loop until the outermost call frame returns
// or a runtime error is raised (spec.md §5).
func (vm *VM) run() error {
	for {
		op := value.OpCode(vm.readByte())
		switch op {
		case value.OpConstant:
			vm.push(vm.readConstant())
		case value.OpConstantLong:
			vm.push(vm.readConstantLong())
		case value.OpNil:
			vm.push(value.Nil)
		case value.OpTrue:
			vm.push(value.True)
		case value.OpFalse:
			vm.push(value.False)
		case value.OpPop:
			vm.pop()

		case value.OpGetLocal:
			slot := int(vm.readByte())
			vm.push(vm.stack[vm.currentFrame().slots+slot])
		case value.OpSetLocal:
			slot := int(vm.readByte())
			vm.stack[vm.currentFrame().slots+slot] = vm.peek(0)

		case value.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case value.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case value.OpSetGlobal:
			name := vm.readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case value.OpGetUpvalue:
			slot := int(vm.readByte())
			cl := vm.currentFrame().closure.AsClosurePayload()
			vm.push(cl.Upvalue(slot).Get())
		case value.OpSetUpvalue:
			slot := int(vm.readByte())
			cl := vm.currentFrame().closure.AsClosurePayload()
			cl.Upvalue(slot).Set(vm.peek(0))

		case value.OpGetProperty:
			if err := vm.getProperty(); err != nil {
				return err
			}
		case value.OpSetProperty:
			if err := vm.setProperty(); err != nil {
				return err
			}

		case value.OpGetSuper:
			name := vm.readString()
			superclass := vm.pop().AsClass()
			if !vm.bindMethod(superclass, name) {
				return vm.runtimeError("Undefined property '%s'.", name.Chars)
			}

		case value.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case value.OpGreater:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case value.OpLess:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}

		case value.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case value.OpSubtract, value.OpMultiply, value.OpDivide:
			if err := vm.binaryNumberOp(op); err != nil {
				return err
			}
		case value.OpNot:
			vm.push(value.Bool(vm.pop().Falsey()))
		case value.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case value.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case value.OpJump:
			offset := vm.readShort()
			vm.currentFrame().ip += int(offset)
		case value.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).Falsey() {
				vm.currentFrame().ip += int(offset)
			}
		case value.OpLoop:
			offset := vm.readShort()
			vm.currentFrame().ip -= int(offset)

		case value.OpCall:
			argc := int(vm.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
		case value.OpInvoke:
			name := vm.readString()
			argc := int(vm.readByte())
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
		case value.OpSuperInvoke:
			name := vm.readString()
			argc := int(vm.readByte())
			superclass := vm.pop().AsClass()
			if err := vm.invokeFromClass(superclass, name, argc); err != nil {
				return err
			}

		case value.OpClosure:
			if err := vm.closure(); err != nil {
				return err
			}
		case value.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case value.OpReturn:
			result := vm.pop()
			finishedFrameSlots := vm.currentFrame().slots
			vm.closeUpvalues(finishedFrameSlots)
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop()
				return nil
			}
			vm.stack = vm.stack[:finishedFrameSlots]
			vm.push(result)

		case value.OpClass:
			name := vm.readString()
			vm.push(value.ObjVal(vm.heap.NewClass(name.Obj())))
		case value.OpInherit:
			if err := vm.inherit(); err != nil {
				return err
			}
		case value.OpMethod:
			vm.defineMethod(vm.readString())

		default:
			return vm.runtimeError("Unknown opcode %s.", op)
		}
	}
}
