package vm

import "fmt"

// RuntimeError is raised by the running VM (as opposed to a compile-time
// error): an undefined variable, a type mismatch, a bad call target, and so
// on. It carries a clox-style stack trace, innermost frame first (spec.md
// §5, §7).
type RuntimeError struct {
	Msg   string
	Trace []string
}

func (e *RuntimeError) Error() string {
	s := e.Msg
	for _, line := range e.Trace {
		s += "\n" + line
	}
	return s
}

// runtimeError formats msg, captures a stack trace from the current frames,
// and resets the VM to a clean, reusable state (spec.md §5, "error
// recovery": a single runtime error aborts the program, not the process).
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		fn := f.closure.AsClosurePayload().Function()
		line := fn.Chunk.GetLine(f.ip - 1)
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	vm.resetStack()
	return &RuntimeError{Msg: "[runtime error] " + msg, Trace: trace}
}
