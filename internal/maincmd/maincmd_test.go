package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/ember/internal/maincmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func stdio() (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{Stdout: &out, Stderr: &errOut, Stdin: bytes.NewReader(nil)}, &out, &errOut
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.ember")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunScriptSucceeds(t *testing.T) {
	path := writeScript(t, `print 1 + 2;`)
	sio, out, _ := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", path}, sio)
	require.EqualValues(t, 0, code)
	require.Equal(t, "3\n", out.String())
}

func TestRunMissingFileIsIOError(t *testing.T) {
	sio, _, errOut := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", filepath.Join(t.TempDir(), "nope.ember")}, sio)
	require.EqualValues(t, 74, code)
	require.NotEmpty(t, errOut.String())
}

func TestRunCompileErrorIsDataError(t *testing.T) {
	path := writeScript(t, `var = ;`)
	sio, _, errOut := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", path}, sio)
	require.EqualValues(t, 65, code)
	require.NotEmpty(t, errOut.String())
}

func TestRunRuntimeErrorIsSoftwareError(t *testing.T) {
	path := writeScript(t, `print nope;`)
	sio, _, errOut := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", path}, sio)
	require.EqualValues(t, 70, code)
	require.NotEmpty(t, errOut.String())
}

func TestTokenizeSubcommand(t *testing.T) {
	path := writeScript(t, `print 1;`)
	sio, out, _ := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", "tokenize", path}, sio)
	require.EqualValues(t, 0, code)
	require.Contains(t, out.String(), "print")
	require.Contains(t, out.String(), "number literal")
}

func TestCompileSubcommand(t *testing.T) {
	path := writeScript(t, `fun f() { return 1; } print f();`)
	sio, out, _ := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", "compile", path}, sio)
	require.EqualValues(t, 0, code)
	require.Contains(t, out.String(), "OP_RETURN")
	require.Contains(t, out.String(), "OP_CALL")
}

func TestHelpFlag(t *testing.T) {
	sio, out, _ := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", "--help"}, sio)
	require.EqualValues(t, 0, code)
	require.Contains(t, out.String(), "tokenize")
	require.Contains(t, out.String(), "compile")
}

func TestTooManyArgsIsUsageError(t *testing.T) {
	sio, _, errOut := stdio()

	var c maincmd.Cmd
	code := c.Main([]string{"ember", "a.ember", "b.ember"}, sio)
	require.EqualValues(t, 64, code)
	require.NotEmpty(t, errOut.String())
}
