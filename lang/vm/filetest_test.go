package vm_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/ember/internal/filetest"
	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/vm"
)

var testUpdateVMTests = flag.Bool("test.update-vm-tests", false, "If set, replace expected VM test results with actual results.")

// TestRunTestdataPrograms runs every program under testdata/in against a
// fresh VM and diffs its stdout against the matching golden file in
// testdata/out, the same in/out golden-corpus layout and filetest plumbing
// the teacher's scanner_test.go uses for its own per-file fixtures.
func TestRunTestdataPrograms(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".ember") {
		t.Run(fi.Name(), func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			h := heap.New()
			m := vm.New(h)
			var out bytes.Buffer
			m.Stdout = &out
			if err := m.Interpret(source); err != nil {
				t.Fatal(err)
			}

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateVMTests)
		})
	}
}
