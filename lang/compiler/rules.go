package compiler

import (
	"strconv"

	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

// precedence orders Ember's binary operators from loosest- to
// tightest-binding (spec.md §4.2); parsePrecedence uses it to decide how far
// an infix operator is allowed to "eat" into the expression to its right.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// rules is indexed by token.Token and drives the whole expression grammar:
// every prefix position consults rules[tok].prefix, every infix position
// consults rules[tok].infix and rules[tok].prec (spec.md §4.2).
var rules = [...]parseRule{
	token.LPAREN:  {prefix: grouping, infix: call, prec: precCall},
	token.DOT:     {infix: dot, prec: precCall},
	token.MINUS:   {prefix: unary, infix: binary, prec: precTerm},
	token.PLUS:    {infix: binary, prec: precTerm},
	token.SLASH:   {infix: binary, prec: precFactor},
	token.STAR:    {infix: binary, prec: precFactor},
	token.BANG:    {prefix: unary},
	token.BANG_EQ: {infix: binary, prec: precEquality},
	token.EQ_EQ:   {infix: binary, prec: precEquality},
	token.GT:      {infix: binary, prec: precComparison},
	token.GT_EQ:   {infix: binary, prec: precComparison},
	token.LT:      {infix: binary, prec: precComparison},
	token.LT_EQ:   {infix: binary, prec: precComparison},
	token.IDENT:   {prefix: variable},
	token.STRING:  {prefix: strLit},
	token.NUMBER:  {prefix: number},
	token.AND:     {infix: and_, prec: precAnd},
	token.OR:      {infix: or_, prec: precOr},
	token.FALSE:   {prefix: literal},
	token.NIL:     {prefix: literal},
	token.TRUE:    {prefix: literal},
	token.THIS:    {prefix: this},
	token.SUPER:   {prefix: super},
}

func ruleFor(t token.Token) *parseRule { return &rules[t] }

// parsePrecedence parses one expression at or above the given precedence: a
// prefix parser for the leading token, then as many infix operators as bind
// at least that tightly (spec.md §4.2's Pratt climbing loop).
func (c *Compiler) parsePrecedence(prec precedence) {
	c.pc.advance()
	prefix := ruleFor(c.pc.previous.Type).prefix
	if prefix == nil {
		c.pc.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= ruleFor(c.pc.current.Type).prec {
		c.pc.advance()
		infix := ruleFor(c.pc.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.pc.match(token.EQ) {
		c.pc.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.pc.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	op := c.pc.previous.Type
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emitOp(value.OpNegate)
	case token.BANG:
		c.emitOp(value.OpNot)
	}
}

func binary(c *Compiler, _ bool) {
	op := c.pc.previous.Type
	rule := ruleFor(op)
	c.parsePrecedence(rule.prec + 1)

	switch op {
	case token.BANG_EQ:
		c.emitOps(value.OpEqual, value.OpNot)
	case token.EQ_EQ:
		c.emitOp(value.OpEqual)
	case token.GT:
		c.emitOp(value.OpGreater)
	case token.GT_EQ:
		c.emitOps(value.OpLess, value.OpNot)
	case token.LT:
		c.emitOp(value.OpLess)
	case token.LT_EQ:
		c.emitOps(value.OpGreater, value.OpNot)
	case token.PLUS:
		c.emitOp(value.OpAdd)
	case token.MINUS:
		c.emitOp(value.OpSubtract)
	case token.STAR:
		c.emitOp(value.OpMultiply)
	case token.SLASH:
		c.emitOp(value.OpDivide)
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(value.OpJumpIfFalse)
	endJump := c.emitJump(value.OpJump)
	c.patchJump(elseJump)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func literal(c *Compiler, _ bool) {
	switch c.pc.previous.Type {
	case token.FALSE:
		c.emitOp(value.OpFalse)
	case token.NIL:
		c.emitOp(value.OpNil)
	case token.TRUE:
		c.emitOp(value.OpTrue)
	}
}

func number(c *Compiler, _ bool) {
	n, err := parseFloat(string(c.pc.previous.Lexeme))
	if err != nil {
		c.pc.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

func strLit(c *Compiler, _ bool) {
	lex := c.pc.previous.Lexeme
	s := string(lex[1 : len(lex)-1]) // strip the surrounding quotes
	obj := c.pc.heap.NewString(s)
	c.emitConstant(value.ObjVal(obj))
}

// variable compiles an identifier in expression position: either a read, or,
// if immediately followed by '=' in an assignable context, a write.
func variable(c *Compiler, canAssign bool) {
	c.namedVariable(string(c.pc.previous.Lexeme), canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp value.OpCode
	arg, scope := c.resolveVariable(name)

	switch scope {
	case scopeLocal:
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	case scopeUpvalue:
		getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
	default:
		getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
	}

	if canAssign && c.pc.match(token.EQ) {
		c.expression()
		c.emitNameOp(setOp, arg)
		return
	}
	c.emitNameOp(getOp, arg)
}

func this(c *Compiler, _ bool) {
	if c.class == nil {
		c.pc.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func super(c *Compiler, _ bool) {
	if c.class == nil {
		c.pc.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.pc.error("Can't use 'super' in a class with no superclass.")
	}

	c.pc.consume(token.DOT, "Expect '.' after 'super'.")
	c.pc.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(string(c.pc.previous.Lexeme))

	c.namedVariable("this", false)
	if c.pc.match(token.LPAREN) {
		argc := c.argumentList()
		c.namedVariable("super", false)
		c.emitNameOp(value.OpSuperInvoke, name)
		c.emitByte(byte(argc))
	} else {
		c.namedVariable("super", false)
		c.emitNameOp(value.OpGetSuper, name)
	}
}

func call(c *Compiler, _ bool) {
	argc := c.argumentList()
	c.emitBytes(value.OpCall, byte(argc))
}

func dot(c *Compiler, canAssign bool) {
	c.pc.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(string(c.pc.previous.Lexeme))

	switch {
	case canAssign && c.pc.match(token.EQ):
		c.expression()
		c.emitNameOp(value.OpSetProperty, name)
	case c.pc.match(token.LPAREN):
		argc := c.argumentList()
		c.emitNameOp(value.OpInvoke, name)
		c.emitByte(byte(argc))
	default:
		c.emitNameOp(value.OpGetProperty, name)
	}
}

// emitNameOp emits op followed by a single-byte name/slot operand. Globals,
// properties and methods are looked up by name at runtime through the
// constant pool, but (unlike OP_CONSTANT) never need the three-byte long
// form: a single function body cannot realistically declare 256 distinct
// locals or upvalues (locals are already capped at maxLocals), and programs
// with more than 255 distinct global/property names in one function are
// rejected with a compile error instead.
func (c *Compiler) emitNameOp(op value.OpCode, idx int) {
	if idx > 255 {
		c.pc.error("Too many unique names referenced in one function.")
		idx = 255
	}
	c.emitBytes(op, byte(idx))
}

// identifierConstant adds name as a string constant (interning it through
// the heap) and returns its constant-pool index, for use as a GET/SET
// GLOBAL, GET/SET PROPERTY or METHOD name operand.
func (c *Compiler) identifierConstant(name string) int {
	obj := c.pc.heap.NewString(name)
	return c.makeConstant(value.ObjVal(obj))
}

// argumentList parses a parenthesized, comma-separated call argument list
// (the opening '(' has already been consumed by the call site) and returns
// the argument count.
func (c *Compiler) argumentList() int {
	argc := 0
	if !c.pc.check(token.RPAREN) {
		for {
			c.expression()
			if argc == 255 {
				c.pc.error("Can't have more than 255 arguments.")
			}
			argc++
			if !c.pc.match(token.COMMA) {
				break
			}
		}
	}
	c.pc.consume(token.RPAREN, "Expect ')' after arguments.")
	return argc
}

func parseFloat(lexeme string) (float64, error) {
	return strconv.ParseFloat(lexeme, 64)
}
