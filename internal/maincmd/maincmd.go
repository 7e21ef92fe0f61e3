// Package maincmd implements Ember's command-line surface: running a script
// or REPL (spec.md §6) plus the debug subcommands (tokenize, compile) a
// reader can use to inspect the scanner's and compiler's internal
// representations.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/vm"
	"github.com/mna/mainer"
	"golang.org/x/exp/maps"
)

const binName = "ember"

// Exit codes follow the sysexits(3) convention spec.md §6 names explicitly:
// 64 for a CLI usage error, 65 for a compile (data) error, 70 for a runtime
// (internal) error, 74 for a file I/O error.
const (
	exitUsage    mainer.ExitCode = 64
	exitDataErr  mainer.ExitCode = 65
	exitSoftware mainer.ExitCode = 70
	exitIOErr    mainer.ExitCode = 74
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<path>]
       %[1]s tokenize|compile <path>
Run '%[1]s --help' for details.
`, binName)

	longUsageTemplate = `usage: %s [<option>...] [<path>]
       %[1]s %s <path>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the %[1]s programming language.

With no <path>, runs an interactive line-at-a-time REPL reading from
stdin until EOF; each line is interpreted independently and a runtime
error does not end the REPL session.

With a <path>, compiles and runs that script.

The debug <command>, when given instead of a script path, can be one
of: %[2]s

       tokenize <path>           Scan the file and print its tokens.
       compile <path>            Compile the file and print the
                                 disassembled bytecode of its
                                 top-level chunk and every nested
                                 function.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --stress-gc               Run a collection before every heap
                                 allocation.
       --log-gc                  Log each allocation, free, and
                                 collection cycle to stderr.

More information on the %[1]s repository:
       https://github.com/mna/ember
`
)

// longUsage renders the help text, listing the debug subcommands buildCmds
// actually finds on c rather than a separately maintained literal list.
func longUsage(c *Cmd) string {
	names := sortedCommandNames(buildCmds(c))
	return fmt.Sprintf(longUsageTemplate, binName, strings.Join(names, "|"))
}

// Cmd is the entry point mainer.Parser populates from argv (environment
// variables are not read),
// and the receiver buildCmds reflects over to find debug subcommands.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	StressGC bool `flag:"stress-gc"`
	LogGC    bool `flag:"log-gc"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	switch len(c.args) {
	case 0:
		c.cmdFn = c.repl
		return nil
	case 1:
		c.cmdFn = c.runFile
		return nil
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	fn := commands[cmdName]
	if fn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}
	if len(c.args[1:]) != 1 {
		return fmt.Errorf("%s: exactly one file must be provided", cmdName)
	}
	c.cmdFn = fn
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage(c))
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	runArgs := c.args
	if len(c.args) >= 1 {
		if _, ok := buildCmds(c)[c.args[0]]; ok {
			runArgs = c.args[1:]
		}
	}
	if err := c.cmdFn(ctx, stdio, runArgs); err != nil {
		return exitCodeFor(err)
	}
	return mainer.Success
}

// exitCodeFor maps a returned error to the sysexits-style code spec.md §6
// assigns it: a compile error is a data error, a runtime error is a software
// error, an I/O error (opening the script file) is an I/O error, anything
// else falls back to a generic failure.
func exitCodeFor(err error) mainer.ExitCode {
	var compileErr *compiler.CompileError
	var runtimeErr *vm.RuntimeError
	var pathErr *os.PathError
	switch {
	case errors.As(err, &compileErr):
		return exitDataErr
	case errors.As(err, &runtimeErr):
		return exitSoftware
	case errors.As(err, &pathErr):
		return exitIOErr
	default:
		return mainer.Failure
	}
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output; printed in a stable, sorted order
// wherever the set itself needs listing (e.g. a future `--list-commands`).
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		name := strings.ToLower(m.Name)
		if name == "run" {
			// Run is the REPL/script dispatcher, not a named debug subcommand a
			// user types; Validate wires repl and runFile directly.
			continue
		}
		cmds[name] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}

// sortedCommandNames is used only by help text generation / tests that want
// a deterministic listing of the registered debug subcommands.
func sortedCommandNames(cmds map[string]func(context.Context, mainer.Stdio, []string) error) []string {
	names := maps.Keys(cmds)
	sort.Strings(names)
	return names
}
