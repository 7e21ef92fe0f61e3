// Package compiler implements Ember's single-pass Pratt compiler: it scans
// and parses source text and emits bytecode directly into a chunk as it
// goes, with no intermediate parse tree (spec.md §1, §4.2).
package compiler

import (
	"fmt"

	"github.com/mna/ember/lang/heap"
	"github.com/mna/ember/lang/scanner"
	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxConstants = 1 << 24
const maxJump = 1 << 16

// funcType distinguishes the kind of function currently being compiled,
// since it changes how slot 0 and implicit/explicit returns are handled
// (spec.md §4.2).
type funcType int

const (
	typeScript funcType = iota
	typeFunction
	typeMethod
	typeInitializer
)

type local struct {
	name       string
	depth      int // -1 while uninitialized
	isCaptured bool
}

type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// classState tracks the class currently being compiled, forming a chain so
// nested classes (e.g. a class with a method containing a class expression,
// were that allowed) know whether an enclosing class has a superclass.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler compiles one function body (the top-level script, or a nested
// fun/method) at a time; nested functions push a new Compiler linked via
// enclosing, mirroring spec.md §4.2's "nested compiler" discipline. The
// scanner, the parser cursor and the error state live in pcomp, which every
// Compiler in the chain shares for the whole compilation.
type Compiler struct {
	enclosing *Compiler
	pc        *pcomp

	function *value.Obj // Kind == ObjFunctionKind
	funcType funcType

	locals     []local
	scopeDepth int
	upvalues   []upvalueDesc

	class *classState
}

// pcomp holds the state shared by every Compiler in the enclosing chain for
// a single compilation: the scanner, the parser's one-token lookahead, and
// error bookkeeping. This corresponds to the teacher's pcomp/Parser split in
// lang/compiler/compiler.go, adapted so there is no separate AST stage.
type pcomp struct {
	heap *heap.Heap

	scan     *scanner.Scanner
	current  scanner.Tok
	previous scanner.Tok

	hadError  bool
	panicMode bool
	errors    []*CompileError

	top *Compiler // innermost Compiler currently active; root of MarkRoots walk
}

// Compile compiles source into a top-level script function, following
// spec.md §7's propagation rule: on any compile error, parsing continues (in
// panic mode) to discover more errors, but the function returned is nil and
// the aggregated errors are returned as a *CompileError.
func Compile(source []byte, h *heap.Heap) (*value.Obj, error) {
	pc := &pcomp{heap: h, scan: scanner.New(source)}
	c := &Compiler{pc: pc, funcType: typeScript}
	pc.top = c

	// pushed, not set, and before the first allocation: a VM may already have
	// installed itself as the base root source, and a GC cycle during
	// compilation (including one forced by Stress, on this very allocation)
	// must still mark its stack/frames/globals in addition to the
	// in-progress function chain.
	h.PushRoots(pc)
	defer h.PopRoots()

	c.function = h.NewFunction()
	c.beginCompilerLocals()
	pc.advance()
	for !pc.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if pc.hadError {
		return nil, &CompileError{sub: pc.errors}
	}
	return fn, nil
}

// MarkRoots implements heap.RootSource for the duration of compilation: the
// compiler chain's currently-compiling functions are GC roots (spec.md
// §4.4), reached by walking from the innermost active Compiler outward.
func (pc *pcomp) MarkRoots(h *heap.Heap) {
	for c := pc.top; c != nil; c = c.enclosing {
		h.MarkObject(c.function)
	}
}

// beginCompilerLocals reserves local slot 0: for methods/initializers it is
// named "this"; for plain functions and the top-level script it is an
// unnamed placeholder for the callee (spec.md §4.2).
func (c *Compiler) beginCompilerLocals() {
	name := ""
	if c.funcType == typeMethod || c.funcType == typeInitializer {
		name = "this"
	}
	c.locals = append(c.locals, local{name: name, depth: 0})
}

func (pc *pcomp) advance() {
	pc.previous = pc.current
	for {
		pc.current = pc.scan.Scan()
		if pc.current.Type != token.ILLEGAL {
			break
		}
		pc.errorAtCurrent(string(pc.current.Lexeme))
	}
}

func (pc *pcomp) check(t token.Token) bool { return pc.current.Type == t }

func (pc *pcomp) match(t token.Token) bool {
	if !pc.check(t) {
		return false
	}
	pc.advance()
	return true
}

func (pc *pcomp) consume(t token.Token, msg string) {
	if pc.current.Type == t {
		pc.advance()
		return
	}
	pc.errorAtCurrent(msg)
}

// --- error reporting & panic-mode recovery (spec.md §4.2, §7) ---

func (pc *pcomp) errorAtCurrent(msg string) { pc.errorAt(pc.current, msg) }
func (pc *pcomp) error(msg string)          { pc.errorAt(pc.previous, msg) }

func (pc *pcomp) errorAt(tok scanner.Tok, msg string) {
	if pc.panicMode {
		return
	}
	pc.panicMode = true
	pc.hadError = true

	where := ""
	switch {
	case tok.Type == token.EOF:
		where = " at end"
	case tok.Type == token.ILLEGAL:
		// lexical error: message is already in the lexeme
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	pc.errors = append(pc.errors, &CompileError{line: tok.Line, msg: fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg)})
}

// synchronize skips tokens until it finds a likely statement boundary, so a
// single error does not cascade into a wall of spurious ones (spec.md §4.2).
func (pc *pcomp) synchronize() {
	pc.panicMode = false
	for pc.current.Type != token.EOF {
		if pc.previous.Type == token.SEMI {
			return
		}
		switch pc.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		pc.advance()
	}
}

// --- bytecode emission ---

func (c *Compiler) chunk() *value.Chunk { return &c.function.AsFunctionPayload().Chunk }

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.pc.previous.Line)
}

func (c *Compiler) emitOp(op value.OpCode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOps(op1, op2 value.OpCode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *Compiler) emitBytes(op value.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

// emitConstant appends v to the current chunk's constant pool and emits the
// load instruction for it, using the one-byte form when possible and the
// three-byte little-endian long form otherwise (spec.md §4.2).
func (c *Compiler) emitConstant(v value.Value) {
	idx := c.makeConstant(v)
	c.emitConstantIndex(idx)
}

func (c *Compiler) makeConstant(v value.Value) int {
	if len(c.chunk().Constants) >= maxConstants {
		c.pc.error("Too many constants in one chunk.")
		return 0
	}
	return c.chunk().AddConstant(v)
}

func (c *Compiler) emitConstantIndex(idx int) {
	if idx <= 255 {
		c.emitBytes(value.OpConstant, byte(idx))
		return
	}
	c.emitOp(value.OpConstantLong)
	c.emitByte(byte(idx & 0xff))
	c.emitByte(byte((idx >> 8) & 0xff))
	c.emitByte(byte((idx >> 16) & 0xff))
}

// emitJump emits a jump opcode with a two-byte placeholder operand and
// returns the offset of the first placeholder byte, for a later patchJump.
func (c *Compiler) emitJump(op value.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump backfills the two-byte operand at offset with the distance from
// just after it to the current end of the chunk (spec.md §4.2).
func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > maxJump-1 {
		c.pc.error("Too much code to jump over.")
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits OP_LOOP with a positive back-offset the VM subtracts from
// its instruction pointer.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > maxJump-1 {
		c.pc.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *Compiler) emitReturn() {
	if c.funcType == typeInitializer {
		c.emitBytes(value.OpGetLocal, 0)
	} else {
		c.emitOp(value.OpNil)
	}
	c.emitOp(value.OpReturn)
}

// endCompiler emits the implicit return and returns the finished function.
func (c *Compiler) endCompiler() *value.Obj {
	c.emitReturn()
	fn := c.function
	c.pc.top = c.enclosing
	return fn
}
