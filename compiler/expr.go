package compiler

import (
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

type binaryOperator struct {
	tok  token.Type
	code op.Code
}

// Binary operator levels from lowest to highest precedence, below && and ||.
var binaryLevels = [][]binaryOperator{
	{{token.BITOR, op.BOr}},
	{{token.CARET, op.BXor}},
	{{token.AMPERSAND, op.BAnd}},
	{{token.EQ, op.Eq}, {token.NOT_EQ, op.Ne}},
	{{token.LT, op.Lt}, {token.LT_EQUALS, op.Le}, {token.GT, op.Gt}, {token.GT_EQUALS, op.Ge}},
	{{token.LT_LT, op.Shl}, {token.GT_GT, op.Shr}},
	{{token.PLUS, op.Add}, {token.MINUS, op.Sub}},
	{{token.ASTERISK, op.Mul}, {token.SLASH, op.Div}, {token.MOD, op.Rem}},
}

var binaryCodes = map[token.Type]op.Code{}

func init() {
	for _, level := range binaryLevels {
		for _, bo := range level {
			binaryCodes[bo.tok] = bo.code
		}
	}
}

// parseRValue parses an expression and leaves its value on the stack.
func (c *Compiler) parseRValue() error {
	expr, err := c.parseExpr()
	if err != nil {
		return err
	}
	return c.codeRvalue(expr)
}

// parseExpr parses a full expression, including assignments.
func (c *Compiler) parseExpr() (memory.Handle, error) {
	left, err := c.parseOr()
	if err != nil {
		return memory.Nil, err
	}
	tok, err := c.next()
	if err != nil {
		return memory.Nil, err
	}
	code := op.Halt
	if tok.Type != token.ASSIGN {
		binary, ok := token.CompoundOperator(tok.Type)
		if !ok {
			c.unread(tok)
			return left, nil
		}
		code = binaryCodes[binary]
	}
	right, err := c.parseExpr()
	if err != nil {
		return memory.Nil, err
	}
	return c.newNode(node{kind: nodeAssignment, pos: tok.Position, op: code, left: left, right: right})
}

func (c *Compiler) parseOr() (memory.Handle, error) {
	return c.parseChain(token.OR, nodeDisjunction, c.parseAnd)
}

func (c *Compiler) parseAnd() (memory.Handle, error) {
	return c.parseChain(token.AND, nodeConjunction, func() (memory.Handle, error) {
		return c.parseBinary(0)
	})
}

// parseChain collects operands separated by sep into one short circuit node.
func (c *Compiler) parseChain(sep token.Type, kind nodeKind, operand func() (memory.Handle, error)) (memory.Handle, error) {
	first, err := operand()
	if err != nil {
		return memory.Nil, err
	}
	exprs := []memory.Handle{first}
	var pos token.Position
	for {
		tok, err := c.next()
		if err != nil {
			return memory.Nil, err
		}
		if tok.Type != sep {
			c.unread(tok)
			break
		}
		if len(exprs) == 1 {
			pos = tok.Position
		}
		expr, err := operand()
		if err != nil {
			return memory.Nil, err
		}
		exprs = append(exprs, expr)
	}
	if len(exprs) == 1 {
		return first, nil
	}
	return c.newNode(node{kind: kind, pos: pos, exprs: exprs, left: memory.Nil, right: memory.Nil})
}

func (c *Compiler) parseBinary(level int) (memory.Handle, error) {
	if level == len(binaryLevels) {
		return c.parseUnary()
	}
	left, err := c.parseBinary(level + 1)
	if err != nil {
		return memory.Nil, err
	}
	for {
		tok, err := c.next()
		if err != nil {
			return memory.Nil, err
		}
		code, ok := levelOperator(binaryLevels[level], tok.Type)
		if !ok {
			c.unread(tok)
			return left, nil
		}
		right, err := c.parseBinary(level + 1)
		if err != nil {
			return memory.Nil, err
		}
		if left, err = c.binaryOp(tok.Position, code, left, right); err != nil {
			return memory.Nil, err
		}
	}
}

func levelOperator(level []binaryOperator, typ token.Type) (op.Code, bool) {
	for _, bo := range level {
		if bo.tok == typ {
			return bo.code, true
		}
	}
	return 0, false
}

func (c *Compiler) parseUnary() (memory.Handle, error) {
	tok, err := c.next()
	if err != nil {
		return memory.Nil, err
	}
	var code op.Code
	switch tok.Type {
	case token.PLUS:
		return c.parseUnary()
	case token.MINUS:
		code = op.Neg
	case token.BANG:
		code = op.Not
	case token.TILDE:
		code = op.BNot
	case token.PLUS_PLUS, token.MINUS_MINUS:
		expr, err := c.parseUnary()
		if err != nil {
			return memory.Nil, err
		}
		return c.increment(tok, expr, false)
	default:
		c.unread(tok)
		return c.parsePostfix()
	}
	expr, err := c.parseUnary()
	if err != nil {
		return memory.Nil, err
	}
	return c.unaryOp(tok.Position, code, expr)
}

func (c *Compiler) increment(tok token.Token, expr memory.Handle, post bool) (memory.Handle, error) {
	amount := int32(1)
	if tok.Type == token.MINUS_MINUS {
		amount = -1
	}
	return c.newNode(node{kind: nodeIncrement, pos: tok.Position, value: amount, post: post, left: expr, right: memory.Nil})
}

func (c *Compiler) parsePostfix() (memory.Handle, error) {
	expr, err := c.parsePrimary()
	if err != nil {
		return memory.Nil, err
	}
	for {
		tok, err := c.next()
		if err != nil {
			return memory.Nil, err
		}
		switch tok.Type {
		case token.LBRACKET:
			expr, err = c.parseIndex(tok, expr)
		case token.LPAREN:
			expr, err = c.parseCall(tok, expr)
		case token.PLUS_PLUS, token.MINUS_MINUS:
			expr, err = c.increment(tok, expr, true)
		default:
			c.unread(tok)
			return expr, nil
		}
		if err != nil {
			return memory.Nil, err
		}
	}
}

func (c *Compiler) parseIndex(open token.Token, array memory.Handle) (memory.Handle, error) {
	index, err := c.parseExpr()
	if err != nil {
		return memory.Nil, err
	}
	if _, err := c.require(token.RBRACKET); err != nil {
		return memory.Nil, err
	}
	return c.newNode(node{kind: nodeArrayRef, pos: open.Position, left: array, right: index})
}

func (c *Compiler) parseCall(open token.Token, fn memory.Handle) (memory.Handle, error) {
	var args []memory.Handle
	tok, err := c.next()
	if err != nil {
		return memory.Nil, err
	}
	if tok.Type != token.RPAREN {
		c.unread(tok)
		for {
			arg, err := c.parseExpr()
			if err != nil {
				return memory.Nil, err
			}
			args = append(args, arg)
			if tok, err = c.next(); err != nil {
				return memory.Nil, err
			}
			if tok.Type != token.COMMA {
				break
			}
		}
		if err := c.expect(tok, token.RPAREN); err != nil {
			return memory.Nil, err
		}
	}
	if len(args) > MaxFrameSlots {
		return memory.Nil, c.failAt(open.Position, errors.Resourcef(errors.E4003, "too many arguments"))
	}
	return c.newNode(node{kind: nodeCall, pos: open.Position, left: fn, right: memory.Nil, exprs: args})
}

func (c *Compiler) parsePrimary() (memory.Handle, error) {
	tok, err := c.next()
	if err != nil {
		return memory.Nil, err
	}
	switch tok.Type {
	case token.LPAREN:
		expr, err := c.parseExpr()
		if err != nil {
			return memory.Nil, err
		}
		if _, err := c.require(token.RPAREN); err != nil {
			return memory.Nil, err
		}
		return expr, nil
	case token.INT:
		return c.integerLit(tok.Position, tok.Value)
	case token.STRING:
		str, err := c.img.AddString(tok.Literal)
		if err != nil {
			return memory.Nil, c.fail(errors.OutOfMemory("image"))
		}
		return c.newNode(node{kind: nodeStringLit, pos: tok.Position, str: str, left: memory.Nil, right: memory.Nil})
	case token.IDENT:
		return c.symbolRef(tok)
	}
	return memory.Nil, c.fail(errors.Syntaxf(errors.E1001, "expecting a primary expression, found '%s'", tok))
}

// symbolRef resolves an identifier. Locals shadow arguments, which shadow
// globals. An unknown name is declared as a global variable so functions can
// be referenced before they are defined.
func (c *Compiler) symbolRef(tok token.Token) (memory.Handle, error) {
	name := tok.Literal
	sym, found := c.locals.Find(name)
	if !found {
		sym, found = c.arguments.Find(name)
	}
	if !found {
		sym, found = c.img.FindGlobal(name)
	}
	if !found {
		var err error
		if sym, err = c.img.DeclareGlobal(name, symbol.Variable, 0); err != nil {
			return memory.Nil, c.fail(errors.OutOfMemory("image"))
		}
	}
	switch {
	case sym.Code:
		return c.newNode(node{kind: nodeFunctionLit, pos: tok.Position, value: sym.Value, left: memory.Nil, right: memory.Nil})
	case sym.IsConstant():
		return c.integerLit(tok.Position, sym.Value)
	}
	return c.newNode(node{kind: nodeSymbolRef, pos: tok.Position, sym: sym, left: memory.Nil, right: memory.Nil})
}
