package compiler

import (
	"github.com/mna/ember/lang/token"
	"github.com/mna/ember/lang/value"
)

// varScope says where a resolved variable reference lives, which in turn
// selects the GET/SET opcode pair namedVariable emits.
type varScope int

const (
	scopeGlobal varScope = iota
	scopeLocal
	scopeUpvalue
)

// resolveVariable looks up name as a local, then as an upvalue captured from
// an enclosing function, and finally falls back to treating it as a global
// (spec.md §4.2: globals are late-bound, by name, at runtime).
func (c *Compiler) resolveVariable(name string) (int, varScope) {
	if idx := c.resolveLocal(name); idx != -1 {
		return idx, scopeLocal
	}
	if idx := c.resolveUpvalue(name); idx != -1 {
		return idx, scopeUpvalue
	}
	return c.identifierConstant(name), scopeGlobal
}

// resolveLocal searches this compiler's own locals, innermost scope first.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				c.pc.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue walks the enclosing-compiler chain looking for name as a
// local (or an already-captured upvalue) of some ancestor function, adding
// an upvalue slot to every compiler on the path so each intervening
// function forwards the capture (spec.md §4.2, §9: closures over locals
// from more than one level up).
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := c.enclosing.resolveLocal(name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(uint8(local), true)
	}
	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(uint8(up), false)
	}
	return -1
}

// addUpvalue records (or reuses) a capture of the given enclosing index,
// returning this function's own upvalue slot for it.
func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		c.pc.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	c.function.AsFunctionPayload().UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope pops every local declared at the scope just exited, closing any
// that were captured by a nested closure (spec.md §4.4, "closing upvalues").
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareVariable registers a just-parsed identifier as a new local in the
// current scope. It is a no-op at global scope, where variables are
// resolved by name at runtime instead.
func (c *Compiler) declareVariable(name string) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth != -1 && c.locals[i].depth < c.scopeDepth {
			break
		}
		if c.locals[i].name == name {
			c.pc.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.locals) >= maxLocals {
		c.pc.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// parseVariable consumes the identifier naming a var/fun/param/class and
// declares it; for globals it also returns the constant-pool index that
// defineVariable will later emit a name operand from.
func (c *Compiler) parseVariable(errMsg string) int {
	c.pc.consume(token.IDENT, errMsg)
	name := string(c.pc.previous.Lexeme)

	c.declareVariable(name)
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// defineVariable finishes a var/fun/param/class declaration: locals need
// nothing further (the value is already sitting in its stack slot), while
// globals are bound by name at runtime.
func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitNameOp(value.OpDefineGlobal, global)
}
