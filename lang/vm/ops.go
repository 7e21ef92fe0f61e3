package vm

import "github.com/mna/ember/lang/value"

// binaryNumberOp implements the arithmetic and ordering opcodes that require
// both operands to be numbers (spec.md §5.2): SUBTRACT, MULTIPLY, DIVIDE,
// GREATER, LESS.
func (vm *VM) binaryNumberOp(op value.OpCode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()

	switch op {
	case value.OpGreater:
		vm.push(value.Bool(a > b))
	case value.OpLess:
		vm.push(value.Bool(a < b))
	case value.OpSubtract:
		vm.push(value.Number(a - b))
	case value.OpMultiply:
		vm.push(value.Number(a * b))
	case value.OpDivide:
		vm.push(value.Number(a / b))
	}
	return nil
}

// add implements OP_ADD's two overloads: number + number, and string +
// string (concatenation, which interns the result through the heap, per
// spec.md §5.2).
func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		concatenated := a.AsString().Chars + b.AsString().Chars
		vm.push(value.ObjVal(vm.heap.NewString(concatenated)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// getProperty implements OP_GET_PROPERTY: an instance field read, falling
// back to a bound method lookup on the instance's class (spec.md §5.3).
func (vm *VM) getProperty() error {
	if !vm.peek(0).IsInstance() {
		return vm.runtimeError("Only instances have properties.")
	}
	inst := vm.peek(0).AsInstance()
	name := vm.readString()

	if v, ok := inst.Fields.Get(name); ok {
		vm.pop() // instance
		vm.push(v)
		return nil
	}
	if !vm.bindMethod(inst.Class(), name) {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return nil
}

func (vm *VM) setProperty() error {
	if !vm.peek(1).IsInstance() {
		return vm.runtimeError("Only instances have fields.")
	}
	inst := vm.peek(1).AsInstance()
	name := vm.readString()
	inst.Fields.Set(name, vm.peek(0))

	v := vm.pop()
	vm.pop() // instance
	vm.push(v)
	return nil
}

// bindMethod looks up name on class's method table and, if found, wraps it
// with the receiver (currently sitting at the top of the stack) into a bound
// method, replacing the receiver on the stack (spec.md §5.3).
func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) bool {
	methodVal, ok := class.Methods.Get(name)
	if !ok {
		return false
	}
	receiver := vm.pop()
	bound := vm.heap.NewBoundMethod(receiver, methodVal.AsObj())
	vm.push(value.ObjVal(bound))
	return true
}

// inherit implements OP_INHERIT: the subclass (top of stack) copies every
// method from the superclass (just below it) into its own method table, then
// the superclass value is left in place for the enclosing scope's "super"
// local to reference (spec.md §5.4).
func (vm *VM) inherit() error {
	superVal := vm.peek(1)
	if !superVal.IsClass() {
		return vm.runtimeError("Superclass must be a class.")
	}
	subclass := vm.peek(0).AsClass()
	subclass.Methods.AddAll(superVal.AsClass().Methods)
	vm.pop() // the subclass reference pushed for inherit; the superclass stays as "super"
	return nil
}

// defineMethod implements OP_METHOD: the just-closed method (top of stack)
// is installed into the class just below it, by name.
func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.pop()
	class := vm.peek(0).AsClass()
	class.Methods.Set(name, method)
}

// closure implements OP_CLOSURE: wrap the function constant into a closure,
// resolving each upvalue descriptor that follows it either by capturing a
// live local slot from the enclosing frame or by forwarding an upvalue
// already captured by that frame's own closure (spec.md §4.3, §5.1).
func (vm *VM) closure() error {
	fnObj := vm.readConstant().AsObj()
	fn := fnObj.AsFunctionPayload()
	closureObj := vm.heap.NewClosure(fnObj)
	closure := closureObj.AsClosurePayload()
	// pushed before capturing, since captureUpvalue allocates
	vm.push(value.ObjVal(closureObj))

	enclosing := vm.currentFrame().closure.AsClosurePayload()
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte()
		index := int(vm.readByte())
		if isLocal != 0 {
			closure.Upvalues[i] = vm.captureUpvalue(vm.currentFrame().slots + index)
		} else {
			closure.Upvalues[i] = enclosing.Upvalues[index]
		}
	}
	return nil
}

// captureUpvalue returns the open upvalue for stack slot, reusing one
// already open for that exact slot so that two closures capturing the same
// variable observe each other's writes (spec.md §4.3, "shared upvalues").
// The open list is kept sorted by descending slot index, matching the
// teacher's invariant that the list can be scanned instead of searched.
func (vm *VM) captureUpvalue(slot int) *value.Obj {
	var prev *value.Obj
	up := vm.openUpvalues
	for up != nil {
		payload := up.AsUpvaluePayload()
		idx := slotIndexOf(vm, payload.Location)
		if idx == slot {
			return up
		}
		if idx < slot {
			break
		}
		prev = up
		up = payload.Next
	}

	created := vm.heap.NewUpvalue(&vm.stack[slot])
	created.AsUpvaluePayload().Next = up
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.AsUpvaluePayload().Next = created
	}
	return created
}

// slotIndexOf recovers the stack index a still-open upvalue points into, for
// ordering comparisons. loc always aliases some live element of vm.stack
// while the upvalue is open.
func slotIndexOf(vm *VM, loc *value.Value) int {
	for i := range vm.stack {
		if &vm.stack[i] == loc {
			return i
		}
	}
	return -1
}

// closeUpvalues closes every open upvalue pointing at stack slot from
// onward (inclusive), copying each one's value out of the stack so it
// survives the slot being reused or popped (spec.md §4.4, §5.1).
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil {
		payload := vm.openUpvalues.AsUpvaluePayload()
		if slotIndexOf(vm, payload.Location) < from {
			break
		}
		payload.Close()
		vm.openUpvalues = payload.Next
	}
}
