package maincmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/value"
	"github.com/mna/mainer"
)

// Compile compiles args[0] and, on success, disassembles the top-level
// chunk and every nested function's chunk it can reach through the constant
// pool, replacing the teacher's AST-printing `parse` subcommand now that
// there is no AST (spec.md §1, §4.2).
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, fmt.Errorf("reading %s: %w", args[0], err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	h := heap.New()
	fnObj, err := compiler.Compile(source, h)
	if err != nil {
		return printError(stdio, err)
	}

	disassembleFunction(stdio.Stdout, fnObj, args[0])
	return nil
}

func disassembleFunction(w io.Writer, fnObj *value.Obj, scriptName string) {
	fn := fnObj.AsFunctionPayload()
	name := scriptName
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	fn.Chunk.Disassemble(w, name)

	for _, k := range fn.Chunk.Constants {
		if k.IsFunction() {
			disassembleFunction(w, k.AsObj(), scriptName)
		}
	}
}
