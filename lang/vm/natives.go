package vm

import (
	"time"

	"github.com/dolthub/swiss"
	"github.com/mna/ember/lang/value"
)

// nativeDef is one builtin's arity and implementation, prior to being
// installed into a particular VM's globals table.
type nativeDef struct {
	arity int
	fn    value.NativeFn
}

// nativeRegistry is the set of builtins every fresh VM starts with. A
// swiss-table map is more machinery than the handful of builtins Ember ships
// today strictly need, but it is the natural home for this registry as it
// grows (spec.md's native-function surface), and gives the standard-library
// surface a fast, open-addressed lookup independent of the language-level
// globals Table.
type nativeRegistry struct {
	fns *swiss.Map[string, nativeDef]
}

func newNativeRegistry() *nativeRegistry {
	r := &nativeRegistry{fns: swiss.NewMap[string, nativeDef](8)}
	r.register("clock", 0, nativeClock)
	return r
}

func (r *nativeRegistry) register(name string, arity int, fn value.NativeFn) {
	r.fns.Put(name, nativeDef{arity: arity, fn: fn})
}

// installInto defines every registered builtin as a global in vm, as a fresh
// ObjNative per VM so each VM's heap owns its own copy.
func (r *nativeRegistry) installInto(vm *VM) {
	r.fns.Iter(func(name string, def nativeDef) bool {
		obj := vm.heap.NewNative(name, def.arity, def.fn)
		vm.heap.Pin(value.ObjVal(obj))
		nameObj := vm.heap.NewString(name)
		vm.heap.Unpin()
		vm.globals.Set(nameObj.AsStringKey(), value.ObjVal(obj))
		return false
	})
}

// nativeClock returns the number of seconds since the Unix epoch, as a
// float, the same surface spec.md's §6 native-function table describes.
func nativeClock(args []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}
