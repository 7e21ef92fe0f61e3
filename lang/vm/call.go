package vm

import "github.com/mna/ember/lang/value"

// callValue dispatches OP_CALL and super/invoke call sites that fell through
// to a plain value: a closure call, a native call, a class call
// (instantiation, optionally running init), or a bound-method call (spec.md
// §5.3, §5.4).
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}

	switch {
	case callee.IsClosure():
		return vm.call(callee.AsObj(), argCount)

	case callee.IsNative():
		native := callee.AsNative()
		if native.Arity >= 0 && argCount != native.Arity {
			return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
		}
		args := vm.stack[len(vm.stack)-argCount:]
		result, err := native.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return nil

	case callee.IsClass():
		class := callee.AsClass()
		instObj := vm.heap.NewInstance(callee.AsObj())
		vm.stack[len(vm.stack)-argCount-1] = value.ObjVal(instObj)

		if initializer, ok := class.Methods.Get(vm.initString); ok {
			return vm.call(initializer.AsObj(), argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil

	case callee.IsBoundMethod():
		bound := callee.AsBoundMethod()
		vm.stack[len(vm.stack)-argCount-1] = bound.Receiver
		return vm.call(bound.MethodObj, argCount)

	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// call pushes a new frame for closureObj, whose Kind must be ObjClosureKind,
// checking arity and recursion depth first (spec.md §5.1).
func (vm *VM) call(closureObj *value.Obj, argCount int) error {
	closure := closureObj.AsClosurePayload()
	fn := closure.Function()

	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if len(vm.frames) >= maxFrames {
		return vm.runtimeError("Stack overflow.")
	}

	vm.frames = append(vm.frames, frame{
		closure: closureObj,
		slots:   len(vm.stack) - argCount - 1,
	})
	return nil
}

// invoke compiles OP_INVOKE's fused "get property, then call it" into one
// step, skipping the intermediate bound-method allocation in the common case
// of a direct method call (spec.md §5.3, "invoke optimization").
func (vm *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsInstance() {
		return vm.runtimeError("Only instances have methods.")
	}
	inst := receiver.AsInstance()

	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[len(vm.stack)-argCount-1] = v
		return vm.callValue(v, argCount)
	}
	return vm.invokeFromClass(inst.Class(), name, argCount)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argCount int) error {
	methodVal, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.call(methodVal.AsObj(), argCount)
}
