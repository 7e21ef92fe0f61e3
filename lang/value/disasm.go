package value

import (
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

// Disassemble writes a human-readable dump of every instruction in c to w,
// labelled name, the way the teacher's `-v`-style debug subcommands print an
// internal representation rather than reaching for a structured logger
// (spec.md §1, "may be enabled"). It never affects program semantics.
func (c *Chunk) Disassemble(w io.Writer, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.disassembleInstruction(w, offset)
	}
}

func (c *Chunk) disassembleInstruction(w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant:
		return c.constantInstruction(w, op, offset)
	case OpConstantLong:
		return c.constantLongInstruction(w, op, offset)
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return c.byteInstruction(w, op, offset)
	case OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpGetProperty, OpSetProperty,
		OpMethod, OpClass, OpGetSuper:
		return c.constantInstruction(w, op, offset)
	case OpJump, OpJumpIfFalse:
		return c.jumpInstruction(w, op, 1, offset)
	case OpLoop:
		return c.jumpInstruction(w, op, -1, offset)
	case OpInvoke, OpSuperInvoke:
		return c.invokeInstruction(w, op, offset)
	case OpClosure:
		return c.closureInstruction(w, offset)
	default:
		fmt.Fprintln(w, op)
		return offset + 1
	}
}

func (c *Chunk) simple(w io.Writer, op OpCode, offset int) int {
	fmt.Fprintln(w, op)
	return offset + 1
}

func (c *Chunk) constantInstruction(w io.Writer, op OpCode, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())
	return offset + 2
}

func (c *Chunk) constantLongInstruction(w io.Writer, op OpCode, offset int) int {
	idx := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, c.Constants[idx].String())
	return offset + 4
}

func (c *Chunk) byteInstruction(w io.Writer, op OpCode, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func (c *Chunk) jumpInstruction(w io.Writer, op OpCode, sign, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func (c *Chunk) invokeInstruction(w io.Writer, op OpCode, offset int) int {
	nameIdx := c.Code[offset+1]
	argc := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argc, nameIdx, c.Constants[nameIdx].String())
	return offset + 3
}

func (c *Chunk) closureInstruction(w io.Writer, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", OpClosure, idx, c.Constants[idx].String())
	offset += 2

	fn := c.Constants[idx].AsFunction()
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}

// sortedStringKeys returns t's live keys ordered by their text, used only by
// debug dumps (a class's method table, an instance's field table) that want
// deterministic output across runs; Table itself makes no ordering promise.
func sortedStringKeys(t *Table) []*ObjString {
	keys := t.Keys()
	slices.SortFunc(keys, func(a, b *ObjString) int {
		switch {
		case a.Chars < b.Chars:
			return -1
		case a.Chars > b.Chars:
			return 1
		default:
			return 0
		}
	})
	return keys
}

// DumpTable writes every key/value pair of t to w, sorted by key text, one
// per line, prefixed by label (used for debug inspection of a class's
// methods or an instance's fields).
func DumpTable(w io.Writer, label string, t *Table) {
	for _, k := range sortedStringKeys(t) {
		v, _ := t.Get(k)
		fmt.Fprintf(w, "%s.%s = %s\n", label, k.Chars, v.String())
	}
}
