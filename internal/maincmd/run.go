package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/vm"
	"github.com/mna/mainer"
)

// Run is the REPL/script dispatcher: with no path it reads stdin line by
// line, with one path it compiles and runs that file. It is excluded from
// the reflection-built subcommand table (buildCmds) since running a script
// is not typed by name; Validate wires repl and runFile directly, and
// nothing calls Run (spec.md §6).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return c.repl(ctx, stdio, args)
	}
	return c.runFile(ctx, stdio, args)
}

func (c *Cmd) newVM(stdio mainer.Stdio) *vm.VM {
	h := heap.New()
	h.Stress = c.StressGC
	h.LogGC = c.LogGC
	h.Log = stdio.Stderr
	m := vm.New(h)
	m.Stdout = stdio.Stdout
	m.Stderr = stdio.Stderr
	return m
}

// repl reads one line at a time from stdin until EOF, interpreting each line
// independently; a runtime or compile error is printed but never ends the
// session (spec.md §6).
func (c *Cmd) repl(ctx context.Context, stdio mainer.Stdio, _ []string) error {
	m := c.newVM(stdio)
	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Interpret([]byte(scanner.Text())); err != nil {
			printError(stdio, err)
		}
	}
}

// runFile reads the single script at args[0], compiles and runs it. An I/O
// error reading the file is reported and wraps the *os.PathError so the exit
// code maps to 74 (spec.md §6).
func (c *Cmd) runFile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, fmt.Errorf("reading %s: %w", args[0], err))
	}

	m := c.newVM(stdio)
	if err := m.Interpret(source); err != nil {
		return printError(stdio, err)
	}
	return nil
}
