package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
	"github.com/mna/mainer"
)

// Tokenize scans args[0] and prints every token it produces, one per line,
// the way the teacher's debug subcommands print an internal representation
// instead of running it (spec.md §1).
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return printError(stdio, fmt.Errorf("reading %s: %w", args[0], err))
	}

	s := scanner.New(source)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok := s.Scan()
		fmt.Fprintf(stdio.Stdout, "%4d %-16s '%s'\n", tok.Line, tok.Type, tok.Lexeme)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			break
		}
	}
	return nil
}
