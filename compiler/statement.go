package compiler

import (
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

func (c *Compiler) next() (token.Token, error) {
	tok, err := c.scan.Next()
	if err != nil {
		return tok, err
	}
	c.tok = tok
	return tok, nil
}

func (c *Compiler) unread(tok token.Token) {
	c.scan.Unread(tok)
}

// require reads the next token and fails unless it has type typ.
func (c *Compiler) require(typ token.Type) (token.Token, error) {
	tok, err := c.next()
	if err != nil {
		return tok, err
	}
	return tok, c.expect(tok, typ)
}

func (c *Compiler) expect(tok token.Token, typ token.Type) error {
	if tok.Type != typ {
		return c.failAt(tok.Position, errors.Syntaxf(errors.E1001,
			"expecting '%s', found '%s'", token.Describe(typ), tok))
	}
	return nil
}

// accept consumes the next token if it has type typ.
func (c *Compiler) accept(typ token.Type) (bool, error) {
	tok, err := c.next()
	if err != nil {
		return false, err
	}
	if tok.Type != typ {
		c.unread(tok)
		return false, nil
	}
	return true, nil
}

// parseStatement compiles one statement starting with tok. A statement that
// completes the body of an open block finishes that block.
func (c *Compiler) parseStatement(tok token.Token) error {
	complete, err := c.parseStatement1(tok)
	if err != nil {
		return err
	}
	if !complete || c.failure != nil {
		return c.failure
	}
	return c.completeBlocks()
}

// parseStatement1 compiles a statement or the head of a compound statement.
// It reports whether the statement is complete.
func (c *Compiler) parseStatement1(tok token.Token) (bool, error) {
	switch tok.Type {
	case token.DEF:
		return c.parseDef(tok)
	case token.VAR:
		return true, c.parseVar()
	case token.IF:
		return false, c.parseIf(tok)
	case token.ELSE:
		return false, c.fail(errors.Syntaxf(errors.E1001, "'else' without a matching 'if'"))
	case token.WHILE:
		return false, c.parseWhile(tok)
	case token.DO:
		return false, c.parseDo(tok)
	case token.FOR:
		return false, c.parseFor(tok)
	case token.BREAK, token.CONTINUE:
		return true, c.parseBreakOrContinue(tok)
	case token.GOTO:
		return true, c.parseGoto()
	case token.ASM:
		return true, c.failAt(tok.Position, errors.Semanticf(errors.E2002, "asm is not supported"))
	case token.RETURN:
		return true, c.parseReturn()
	case token.PRINT:
		return true, c.parsePrint()
	case token.LBRACE:
		_, err := c.pushBlock(blockBrace, tok.Position)
		return false, err
	case token.RBRACE:
		return true, c.closeBrace()
	case token.SEMICOLON:
		return true, nil
	case token.IDENT:
		if c.scan.AtLabel() {
			return true, c.defineLabel(tok)
		}
	}
	c.unread(tok)
	if err := c.parseRValue(); err != nil {
		return false, err
	}
	c.emit(op.Drop)
	_, err := c.require(token.SEMICOLON)
	return true, err
}

func (c *Compiler) closeBrace() error {
	switch kind := c.blocks.topKind(); kind {
	case blockDef:
		return c.finishFunctionDef()
	case blockBrace:
		c.popBlock()
		return nil
	case blockNone:
		return c.fail(errors.Syntaxf(errors.E1001, "unexpected '}'"))
	default:
		return c.fail(errors.Syntaxf(errors.E1005, "expecting statement after '%s', found '}'", kind))
	}
}

func (c *Compiler) parseDef(tok token.Token) (bool, error) {
	name, err := c.require(token.IDENT)
	if err != nil {
		return false, err
	}
	next, err := c.next()
	if err != nil {
		return false, err
	}
	if next.Type == token.ASSIGN {
		return true, c.parseConstantDef(name)
	}
	if err := c.expect(next, token.LPAREN); err != nil {
		return false, err
	}
	return false, c.parseFunctionDef(tok, name)
}

// parseConstantValue parses an expression that must fold to an integer.
func (c *Compiler) parseConstantValue() (int32, error) {
	expr, err := c.parseExpr()
	if err != nil {
		return 0, err
	}
	v, ok := c.isIntegerLit(expr)
	if !ok {
		return 0, c.failAt(c.node(expr).pos, errors.Semanticf(errors.E2002, "expecting a constant expression"))
	}
	return v, nil
}

func (c *Compiler) parseConstantDef(name token.Token) error {
	v, err := c.parseConstantValue()
	if err != nil {
		return err
	}
	sym, err := c.img.DeclareGlobal(name.Literal, symbol.Constant, v)
	if err != nil {
		return c.failAt(name.Position, errors.OutOfMemory("image"))
	}
	if sym.Class != symbol.Constant || sym.Code {
		return c.redefined(name, sym)
	}
	_, err = c.require(token.SEMICOLON)
	return err
}

func (c *Compiler) redefined(name token.Token, sym *symbol.Symbol) error {
	return c.failAt(name.Position, errors.Semanticf(errors.E2008,
		"cannot redefine %s '%s'", sym.Class, name.Literal))
}

// parseFunctionDef compiles the head of a function definition and starts
// the function's unit. The body follows as ordinary statements up to the
// closing brace.
func (c *Compiler) parseFunctionDef(def, name token.Token) error {
	if c.blocks.contains(blockDef) {
		return c.failAt(def.Position, errors.Semanticf(errors.E2007, "nested function definitions are not allowed"))
	}
	if c.img.HasPendingCode() || !c.labels.empty() {
		return c.failAt(def.Position, errors.Semanticf(errors.E2007, "functions must precede the main code"))
	}
	if _, err := c.pushBlock(blockDef, def.Position); err != nil {
		return err
	}
	sym, err := c.img.DeclareGlobal(name.Literal, symbol.Variable, 0)
	if err != nil {
		return c.failAt(name.Position, errors.OutOfMemory("image"))
	}
	if sym.Class != symbol.Variable {
		return c.redefined(name, sym)
	}
	c.startUnit(unitFunction, name.Literal, sym)

	tok, err := c.next()
	if err != nil {
		return err
	}
	if tok.Type != token.RPAREN {
		c.unread(tok)
		for {
			arg, err := c.require(token.IDENT)
			if err != nil {
				return err
			}
			if err := c.addFrameSymbol(c.arguments, arg, symbol.Argument); err != nil {
				return err
			}
			if tok, err = c.next(); err != nil {
				return err
			}
			if tok.Type != token.COMMA {
				break
			}
		}
		if err := c.expect(tok, token.RPAREN); err != nil {
			return err
		}
	}
	_, err = c.require(token.LBRACE)
	return err
}

// addFrameSymbol adds an argument or local at the next frame slot.
func (c *Compiler) addFrameSymbol(table *symbol.Table, name token.Token, class symbol.Class) error {
	addr, err := c.heap.Allocate(symbol.Size(name.Literal))
	if err != nil {
		return c.failAt(name.Position, errors.OutOfMemory("heap"))
	}
	table.Add(&symbol.Symbol{Name: name.Literal, Class: class, Value: int32(c.localOffset), Addr: addr})
	c.localOffset++
	return nil
}

// finishFunctionDef seals the function and stores its entry address in the
// function's global cell. The main unit resumes afterwards.
func (c *Compiler) finishFunctionDef() error {
	sym := c.codeSym
	entry, err := c.finishUnit()
	if err != nil {
		return err
	}
	c.img.WriteLong(memory.Addr(sym.Value), int32(entry))
	c.popBlock()
	c.startUnit(unitMain, mainName, nil)
	return nil
}

func (c *Compiler) parseVar() error {
	for {
		name, err := c.require(token.IDENT)
		if err != nil {
			return err
		}
		if c.kind == unitFunction {
			err = c.parseLocalVar(name)
		} else {
			err = c.parseGlobalVar(name)
		}
		if err != nil {
			return err
		}
		tok, err := c.next()
		if err != nil {
			return err
		}
		if tok.Type != token.COMMA {
			return c.expect(tok, token.SEMICOLON)
		}
	}
}

func (c *Compiler) parseLocalVar(name token.Token) error {
	tok, err := c.next()
	if err != nil {
		return err
	}
	if tok.Type == token.LBRACKET {
		return c.failAt(tok.Position, errors.Semanticf(errors.E2002, "local arrays are not supported"))
	}
	slot := c.localOffset
	if err := c.addFrameSymbol(c.locals, name, symbol.Local); err != nil {
		return err
	}
	if tok.Type != token.ASSIGN {
		c.unread(tok)
		return nil
	}
	if err := c.parseRValue(); err != nil {
		return err
	}
	c.emit(op.LSet, int32(slot))
	c.emit(op.Drop)
	return nil
}

// parseGlobalVar declares a global scalar or array. Initializers must be
// constant and are stored in the image at compile time. An array's cell
// holds the address of its element vector.
func (c *Compiler) parseGlobalVar(name token.Token) error {
	tok, err := c.next()
	if err != nil {
		return err
	}
	isArray := tok.Type == token.LBRACKET
	size := 1
	if isArray {
		if size, err = c.parseArraySize(); err != nil {
			return err
		}
		if tok, err = c.next(); err != nil {
			return err
		}
	}

	var values []int32
	switch {
	case tok.Type != token.ASSIGN:
		c.unread(tok)
	case isArray:
		if values, err = c.parseArrayInitializers(size); err != nil {
			return err
		}
		if size == 0 {
			size = len(values)
		}
	default:
		v, err := c.parseConstantValue()
		if err != nil {
			return err
		}
		values = []int32{v}
	}

	// Redeclaring an existing variable leaves its storage alone.
	if sym, found := c.img.FindGlobal(name.Literal); found {
		if sym.Class != symbol.Variable {
			return c.redefined(name, sym)
		}
		return nil
	}

	value := int32(0)
	if len(values) > 0 {
		value = values[0]
	}
	if isArray {
		vector := make([]int32, size)
		copy(vector, values)
		addr, err := c.img.StoreVector(vector)
		if err != nil {
			return c.failAt(name.Position, errors.OutOfMemory("image"))
		}
		value = int32(addr)
	}

	if _, err := c.img.DeclareGlobal(name.Literal, symbol.Variable, value); err != nil {
		return c.failAt(name.Position, errors.OutOfMemory("image"))
	}
	return nil
}

// parseArraySize parses the size of an array declaration after its '['.
// Zero means the size comes from the initializers.
func (c *Compiler) parseArraySize() (int, error) {
	closed, err := c.accept(token.RBRACKET)
	if err != nil || closed {
		return 0, err
	}
	expr, err := c.parseExpr()
	if err != nil {
		return 0, err
	}
	v, ok := c.isIntegerLit(expr)
	if !ok || v <= 0 {
		return 0, c.failAt(c.node(expr).pos, errors.Semanticf(errors.E2002, "expecting a positive constant expression"))
	}
	if _, err := c.require(token.RBRACKET); err != nil {
		return 0, err
	}
	return int(v), nil
}

// parseArrayInitializers parses a braced list of constants. A size of zero
// accepts any number of values.
func (c *Compiler) parseArrayInitializers(size int) ([]int32, error) {
	if _, err := c.require(token.LBRACE); err != nil {
		return nil, err
	}
	closed, err := c.accept(token.RBRACE)
	if err != nil || closed {
		return nil, err
	}
	var values []int32
	for {
		if size > 0 && len(values) == size {
			return nil, c.fail(errors.Semanticf(errors.E2002, "too many initializers"))
		}
		v, err := c.parseConstantValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		tok, err := c.next()
		if err != nil {
			return nil, err
		}
		if tok.Type != token.COMMA {
			return values, c.expect(tok, token.RBRACE)
		}
	}
}

func (c *Compiler) parseReturn() error {
	empty, err := c.accept(token.SEMICOLON)
	if err != nil {
		return err
	}
	if empty {
		c.emit(op.SLit, 0)
	} else {
		if err := c.parseRValue(); err != nil {
			return err
		}
		if _, err := c.require(token.SEMICOLON); err != nil {
			return err
		}
	}
	c.emit(op.Return)
	return nil
}

// parsePrint compiles a print statement. A ',' prints a tab and a '$'
// prints nothing; either one at the end suppresses the newline.
func (c *Compiler) parsePrint() error {
	newline := true
	for {
		tok, err := c.next()
		if err != nil {
			return err
		}
		switch tok.Type {
		case token.SEMICOLON:
			if newline {
				c.emit(op.Trap, int32(op.TrapPrintNL))
			} else {
				c.emit(op.Trap, int32(op.TrapPrintFlush))
			}
			return nil
		case token.COMMA:
			newline = false
			c.emit(op.Trap, int32(op.TrapPrintTab))
		case token.DOLLAR:
			newline = false
		case token.EOF:
			return c.expect(tok, token.SEMICOLON)
		default:
			newline = true
			c.unread(tok)
			expr, err := c.parseExpr()
			if err != nil {
				return err
			}
			trap := op.TrapPrintInt
			if c.node(expr).kind == nodeStringLit {
				trap = op.TrapPrintStr
			}
			if err := c.codeRvalue(expr); err != nil {
				return err
			}
			c.emit(op.Trap, int32(trap))
		}
	}
}
