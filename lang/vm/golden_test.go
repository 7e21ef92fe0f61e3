package vm_test

import (
	"bytes"
	"testing"

	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/vm"
	"github.com/stretchr/testify/require"
)

// scenarios is the literal end-to-end table spec.md §8 specifies: source in,
// stdout out, for a fresh VM each time.
var scenarios = []struct {
	name string
	src  string
	want string
}{
	{"A", `print 1+2*3;`, "7\n"},
	{"B", `var a="he"; var b="llo"; print a+b;`, "hello\n"},
	{"C", `fun fib(n){if(n<2)return n; return fib(n-1)+fib(n-2);} print fib(10);`, "55\n"},
	{"D", `class A{greet(){print "hi";}} A().greet();`, "hi\n"},
	{"E", `class A{init(x){this.x=x;}} class B<A{init(x,y){super.init(x); this.y=y;}} var b=B(1,2); print b.x; print b.y;`, "1\n2\n"},
	{"F", `fun make(){var c=0; fun inc(){c=c+1;return c;} return inc;} var f=make(); print f(); print f(); print f();`, "1\n2\n3\n"},
}

func TestEndToEndScenarios(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			out, err := run(t, sc.src)
			require.NoError(t, err)
			require.Equal(t, sc.want, out)
		})
	}
}

// TestRoundTripIsDeterministic exercises spec.md §8 invariant 6: running the
// same terminating program twice, each in a fresh VM, produces identical
// stdout.
func TestRoundTripIsDeterministic(t *testing.T) {
	const src = `
class Node {
  init(v) { this.v = v; this.next = nil; }
}
fun sum(n) {
  var total = 0;
  while (n != nil) {
    total = total + n.v;
    n = n.next;
  }
  return total;
}
var a = Node(1);
a.next = Node(2);
a.next.next = Node(3);
print sum(a);
`
	out1, err1 := run(t, src)
	require.NoError(t, err1)
	out2, err2 := run(t, src)
	require.NoError(t, err2)
	require.Equal(t, out1, out2)
	require.Equal(t, "6\n", out1)
}

// TestIdempotentPrintOfPureExpression exercises spec.md §8 invariant 7.
func TestIdempotentPrintOfPureExpression(t *testing.T) {
	out, err := run(t, `var x = 1 + 2 * 3; print x; print x;`)
	require.NoError(t, err)
	require.Equal(t, "7\n7\n", out)
}

// TestVMReturnsToCleanStateAfterProgram exercises spec.md §8 invariant 1: at
// termination the frame stack and value stack are both empty, so a second,
// unrelated Interpret call on the same VM starts from a clean slate.
func TestVMReturnsToCleanStateAfterProgram(t *testing.T) {
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	require.NoError(t, m.Interpret([]byte(`print 1;`)))
	require.NoError(t, m.Interpret([]byte(`print 2;`)))
	require.Equal(t, "1\n2\n", out.String())
}

// TestStressGCPreservesStringInterningAcrossInterpret exercises spec.md §8
// invariant 3 (the interned string table never holds two live strings with
// equal bytes) under the combination that actually exercises heap.PushRoots:
// a real vm.New/Interpret run, with Stress forcing a collection on every
// single allocation, including the ones compiler.Compile performs before the
// VM ever gets to execute a single instruction. Before the compiler's own
// pcomp was wired to augment rather than replace the VM's installed roots,
// this collected away the VM's stack/frames/globals as soon as Compile ran,
// so a later-interned "a" would be a distinct ObjString from an
// earlier-interned equal one, and this would print "false".
func TestStressGCPreservesStringInterningAcrossInterpret(t *testing.T) {
	h := heap.New()
	h.Stress = true
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	err := m.Interpret([]byte(`fun cat(s) { return s + "!"; } print cat("a") == cat("a");`))
	require.NoError(t, err)
	require.Equal(t, "true\n", out.String())
}

// TestRuntimeErrorResetsStackForReuse exercises spec.md §7 ("a single
// runtime error aborts the program, not the process"): the VM recovers to a
// state where a later Interpret call still works.
func TestRuntimeErrorResetsStackForReuse(t *testing.T) {
	h := heap.New()
	m := vm.New(h)
	var out bytes.Buffer
	m.Stdout = &out

	err := m.Interpret([]byte(`print nope;`))
	require.Error(t, err)

	require.NoError(t, m.Interpret([]byte(`print "recovered";`)))
	require.Equal(t, "recovered\n", out.String())
}
