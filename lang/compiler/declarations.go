package compiler

import (
	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

// declaration parses the outermost grammar rule: a class, function or var
// declaration, or else falls through to statement. On error it resynchronizes
// at the next likely statement boundary instead of aborting the whole
// compile (spec.md §4.2, §7).
func (c *Compiler) declaration() {
	switch {
	case c.pc.match(token.CLASS):
		c.classDeclaration()
	case c.pc.match(token.FUN):
		c.funDeclaration()
	case c.pc.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.pc.panicMode {
		c.pc.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.pc.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(value.OpNil)
	}
	c.pc.consume(token.SEMI, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

// function compiles a fun body (or a method body, when called from
// classDeclaration with kind typeMethod/typeInitializer) as a nested
// Compiler, then splices a CLOSURE instruction for it into the enclosing
// chunk (spec.md §4.2, §4.3: every function value is created by OP_CLOSURE,
// even one that captures nothing).
func (c *Compiler) function(kind funcType) {
	nested := &Compiler{enclosing: c, pc: c.pc, funcType: kind, class: c.class}
	c.pc.top = nested
	nested.function = c.pc.heap.NewFunction()
	if kind != typeScript {
		nameObj := c.pc.heap.NewString(string(c.pc.previous.Lexeme))
		nested.function.AsFunctionPayload().Name = nameObj.AsStringKey()
	}
	nested.beginCompilerLocals()

	nested.beginScope()
	c.pc.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.pc.check(token.RPAREN) {
		for {
			fn := nested.function.AsFunctionPayload()
			fn.Arity++
			if fn.Arity > 255 {
				c.pc.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := nested.parseVariable("Expect parameter name.")
			nested.defineVariable(paramConst)
			if !c.pc.match(token.COMMA) {
				break
			}
		}
	}
	c.pc.consume(token.RPAREN, "Expect ')' after parameters.")
	c.pc.consume(token.LBRACE, "Expect '{' before function body.")
	nested.block()

	fnObj := nested.endCompiler()
	idx := c.makeConstant(value.ObjVal(fnObj))
	c.emitClosure(idx)
	for _, uv := range nested.upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}

// emitClosure emits OP_CLOSURE with a single-byte constant-pool index for
// the function it wraps; unlike OP_CONSTANT there is no long form, since a
// single function body realistically never defines 256 distinct nested
// functions.
func (c *Compiler) emitClosure(idx int) {
	if idx > 255 {
		c.pc.error("Too many constants in one chunk.")
		idx = 255
	}
	c.emitBytes(value.OpClosure, byte(idx))
}

func (c *Compiler) classDeclaration() {
	c.pc.consume(token.IDENT, "Expect class name.")
	nameTok := c.pc.previous
	className := string(nameTok.Lexeme)
	nameConst := c.identifierConstant(className)
	c.declareVariable(className)

	c.emitNameOp(value.OpClass, nameConst)
	c.defineVariable(nameConst)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.pc.match(token.LT) {
		c.pc.consume(token.IDENT, "Expect superclass name.")
		variable(c, false)

		if string(c.pc.previous.Lexeme) == className {
			c.pc.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(value.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.pc.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.pc.check(token.RBRACE) && !c.pc.check(token.EOF) {
		c.method()
	}
	c.pc.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(value.OpPop) // the class value pushed for namedVariable above

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.pc.consume(token.IDENT, "Expect method name.")
	name := string(c.pc.previous.Lexeme)
	nameConst := c.identifierConstant(name)

	kind := typeMethod
	if name == "init" {
		kind = typeInitializer
	}
	c.function(kind)
	c.emitNameOp(value.OpMethod, nameConst)
}

func (c *Compiler) statement() {
	switch {
	case c.pc.match(token.PRINT):
		c.printStatement()
	case c.pc.match(token.IF):
		c.ifStatement()
	case c.pc.match(token.WHILE):
		c.whileStatement()
	case c.pc.match(token.FOR):
		c.forStatement()
	case c.pc.match(token.RETURN):
		c.returnStatement()
	case c.pc.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

// block parses statements until the closing brace; the opening '{' has
// already been consumed by the caller.
func (c *Compiler) block() {
	for !c.pc.check(token.RBRACE) && !c.pc.check(token.EOF) {
		c.declaration()
	}
	c.pc.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.pc.consume(token.SEMI, "Expect ';' after value.")
	c.emitOp(value.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.pc.consume(token.SEMI, "Expect ';' after expression.")
	c.emitOp(value.OpPop)
}

func (c *Compiler) ifStatement() {
	c.pc.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.pc.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()

	elseJump := c.emitJump(value.OpJump)
	c.patchJump(thenJump)
	c.emitOp(value.OpPop)

	if c.pc.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.pc.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.pc.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(value.OpPop)
}

// forStatement desugars entirely to while-shaped bytecode at compile time;
// there is no OP_FOR of any kind (spec.md §4.2).
func (c *Compiler) forStatement() {
	c.beginScope()
	c.pc.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.pc.match(token.SEMI):
		// no initializer
	case c.pc.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.pc.match(token.SEMI) {
		c.expression()
		c.pc.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = c.emitJump(value.OpJumpIfFalse)
		c.emitOp(value.OpPop)
	}

	if !c.pc.match(token.RPAREN) {
		bodyJump := c.emitJump(value.OpJump)
		incrStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(value.OpPop)
		c.pc.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(value.OpPop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.funcType == typeScript {
		c.pc.error("Can't return from top-level code.")
	}
	if c.pc.match(token.SEMI) {
		c.emitReturn()
		return
	}
	if c.funcType == typeInitializer {
		c.pc.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.pc.consume(token.SEMI, "Expect ';' after return value.")
	c.emitOp(value.OpReturn)
}
