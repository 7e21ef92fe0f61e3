package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out
	err := m.Interpret([]byte(src))
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestGlobalAndLocalVariables(t *testing.T) {
	out, err := run(t, `
var a = 1;
{
  var b = 2;
  print a + b;
}
`)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)
}

func TestIfElseBranching(t *testing.T) {
	out, err := run(t, `
if (1 < 2) { print "yes"; } else { print "no"; }
`)
	require.NoError(t, err)
	require.Equal(t, "yes\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
var i = 0;
var sum = 0;
while (i < 5) {
  sum = sum + i;
  i = i + 1;
}
print sum;
`)
	require.NoError(t, err)
	require.Equal(t, "10\n", out)
}

func TestForLoop(t *testing.T) {
	out, err := run(t, `
var sum = 0;
for (var i = 0; i < 5; i = i + 1) {
  sum = sum + i;
}
print sum;
`)
	require.NoError(t, err)
	require.Equal(t, "10\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out, err := run(t, `
fun add(a, b) {
  return a + b;
}
print add(3, 4);
`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestClosureCapturesVariable(t *testing.T) {
	out, err := run(t, `
fun makeCounter() {
  var count = 0;
  fun counter() {
    count = count + 1;
    return count;
  }
  return counter;
}
var c = makeCounter();
print c();
print c();
print c();
`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestClassesInstancesAndMethods(t *testing.T) {
	out, err := run(t, `
class Counter {
  init() {
    this.count = 0;
  }
  increment() {
    this.count = this.count + 1;
    return this.count;
  }
}
var c = Counter();
print c.increment();
print c.increment();
`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n", out)
}

func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
class Animal {
  speak() {
    print "...";
  }
}
class Dog < Animal {
  speak() {
    super.speak();
    print "woof";
  }
}
Dog().speak();
`)
	require.NoError(t, err)
	require.Equal(t, "...\nwoof\n", out)
}

func TestRecursion(t *testing.T) {
	out, err := run(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	require.NoError(t, err)
	require.Equal(t, "55\n", out)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	_, err := run(t, `print nope;`)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Undefined variable"))
}

func TestTypeMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, `print 1 + "two";`)
	require.Error(t, err)
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	_, err := run(t, `var x = 1; x();`)
	require.Error(t, err)
}

func TestNativeClockIsCallable(t *testing.T) {
	out, err := run(t, `print clock() > 0;`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestAndOrShortCircuit(t *testing.T) {
	out, err := run(t, `
fun sideEffect() {
  print "called";
  return true;
}
false and sideEffect();
print "after and";
true or sideEffect();
print "after or";
`)
	require.NoError(t, err)
	require.Equal(t, "after and\nafter or\n", out)
}
