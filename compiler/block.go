package compiler

import (
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/op"
)

// MaxBlockDepth is the deepest statement nesting the compiler accepts.
const MaxBlockDepth = 10

type blockKind int

const (
	blockNone blockKind = iota
	blockDef
	blockIf
	blockElse
	blockFor
	blockWhile
	blockDo
	blockBrace
)

func (k blockKind) String() string {
	switch k {
	case blockDef:
		return "def"
	case blockIf:
		return "if"
	case blockElse:
		return "else"
	case blockFor:
		return "for"
	case blockWhile:
		return "while"
	case blockDo:
		return "do"
	case blockBrace:
		return "{"
	default:
		return "none"
	}
}

func (k blockKind) isLoop() bool {
	return k == blockFor || k == blockWhile || k == blockDo
}

// block is one open statement on the block stack.
type block struct {
	kind blockKind
	pos  token.Position

	// if: branch taken when the condition is false
	next fixups
	// if/else: join point; loops: break target
	end fixups

	// Loop re-entry point: the test of a while, the start of a do body, the
	// update clause of a for.
	top int

	// Continue target. A do loop's target is not known until its trailing
	// while is reached, so continues collect in cont until then.
	contAddr    int
	contDefined bool
	cont        fixups
}

type blockStack struct {
	frames [MaxBlockDepth]block
	n      int
}

func (s *blockStack) depth() int {
	return s.n
}

func (s *blockStack) top() *block {
	if s.n == 0 {
		return nil
	}
	return &s.frames[s.n-1]
}

func (s *blockStack) topKind() blockKind {
	if b := s.top(); b != nil {
		return b.kind
	}
	return blockNone
}

func (s *blockStack) reset() {
	for i := range s.frames[:s.n] {
		s.frames[i] = block{}
	}
	s.n = 0
}

func (s *blockStack) contains(kind blockKind) bool {
	for i := 0; i < s.n; i++ {
		if s.frames[i].kind == kind {
			return true
		}
	}
	return false
}

// innermostLoop returns the nearest enclosing loop frame.
func (s *blockStack) innermostLoop() *block {
	for i := s.n - 1; i >= 0; i-- {
		if s.frames[i].kind.isLoop() {
			return &s.frames[i]
		}
	}
	return nil
}

func (c *Compiler) pushBlock(kind blockKind, pos token.Position) (*block, error) {
	s := &c.blocks
	if s.n == MaxBlockDepth {
		return nil, c.failAt(pos, errors.Resourcef(errors.E4002, "statements too deeply nested"))
	}
	s.frames[s.n] = block{kind: kind, pos: pos}
	s.n++
	return &s.frames[s.n-1], nil
}

func (c *Compiler) popBlock() {
	s := &c.blocks
	s.frames[s.n-1] = block{}
	s.n--
}

// checkOpenBlocks fails if any block is still open.
func (c *Compiler) checkOpenBlocks() error {
	b := c.blocks.top()
	if b == nil {
		return nil
	}
	return c.fail(unterminated(b.kind))
}

func unterminated(kind blockKind) *errors.CompileError {
	switch kind {
	case blockDef, blockBrace:
		return errors.Syntaxf(errors.E1005, "expecting '}'")
	}
	return errors.Syntaxf(errors.E1005, "expecting statement after '%s'", kind)
}

// completeBlocks is called after a complete statement. The statement may be
// the body of the open block on top of the stack, whose completion may in
// turn complete the block below it.
func (c *Compiler) completeBlocks() error {
	for {
		b := c.blocks.top()
		if b == nil {
			return nil
		}
		var err error
		switch b.kind {
		case blockIf:
			var transmuted bool
			if transmuted, err = c.checkForElse(b); transmuted {
				return err
			}
		case blockElse:
			c.finishElse(b)
		case blockFor:
			c.finishFor(b)
		case blockWhile:
			c.finishWhile(b)
		case blockDo:
			err = c.finishDo(b)
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Compiler) parseIf(tok token.Token) error {
	if err := c.parseCondition(); err != nil {
		return err
	}
	b, err := c.pushBlock(blockIf, tok.Position)
	if err != nil {
		return err
	}
	c.emitBranch(op.BrF, &b.next)
	return nil
}

// checkForElse finishes an if block, or turns it into an else block when an
// else follows. It reports whether the block became an else block.
func (c *Compiler) checkForElse(b *block) (bool, error) {
	tok, err := c.next()
	if err != nil {
		return false, err
	}
	if tok.Type == token.ELSE {
		c.emitBranch(op.Br, &b.end)
		c.resolve(&b.next, c.here())
		b.kind = blockElse
		return true, nil
	}
	c.unread(tok)
	c.resolve(&b.next, c.here())
	c.resolve(&b.end, c.here())
	c.popBlock()
	return false, nil
}

func (c *Compiler) finishElse(b *block) {
	c.resolve(&b.end, c.here())
	c.popBlock()
}

func (c *Compiler) parseWhile(tok token.Token) error {
	b, err := c.pushBlock(blockWhile, tok.Position)
	if err != nil {
		return err
	}
	b.top = c.here()
	b.contAddr = b.top
	b.contDefined = true
	if err := c.parseCondition(); err != nil {
		return err
	}
	c.emitBranch(op.BrF, &b.end)
	return nil
}

func (c *Compiler) finishWhile(b *block) {
	c.emitBranchTo(op.Br, b.top)
	c.resolve(&b.end, c.here())
	c.popBlock()
}

func (c *Compiler) parseDo(tok token.Token) error {
	b, err := c.pushBlock(blockDo, tok.Position)
	if err != nil {
		return err
	}
	b.top = c.here()
	return nil
}

// finishDo compiles the trailing while of a do loop. Continues branch to the
// test.
func (c *Compiler) finishDo(b *block) error {
	c.resolve(&b.cont, c.here())
	b.contAddr = c.here()
	b.contDefined = true
	if _, err := c.require(token.WHILE); err != nil {
		return err
	}
	if err := c.parseCondition(); err != nil {
		return err
	}
	c.emitBranchTo(op.BrT, b.top)
	c.resolve(&b.end, c.here())
	c.popBlock()
	_, err := c.require(token.SEMICOLON)
	return err
}

// parseFor compiles the clauses of a for statement:
//
//	init; DROP
//	test: cond; BRT body; BR end     (BR body without a condition)
//	update: expr; DROP; BR test
//	body:
func (c *Compiler) parseFor(tok token.Token) error {
	b, err := c.pushBlock(blockFor, tok.Position)
	if err != nil {
		return err
	}
	if _, err := c.require(token.LPAREN); err != nil {
		return err
	}
	if err := c.parseClause(token.SEMICOLON); err != nil {
		return err
	}

	test := c.here()
	hasTest, err := c.parseTest()
	if err != nil {
		return err
	}
	var body fixups
	if hasTest {
		c.emitBranch(op.BrT, &body)
		c.emitBranch(op.Br, &b.end)
	} else {
		c.emitBranch(op.Br, &body)
	}

	b.top = c.here()
	b.contAddr = b.top
	b.contDefined = true
	if err := c.parseClause(token.RPAREN); err != nil {
		return err
	}
	c.emitBranchTo(op.Br, test)

	c.resolve(&body, c.here())
	return nil
}

// parseClause compiles an optional expression statement ending with term.
func (c *Compiler) parseClause(term token.Type) error {
	empty, err := c.accept(term)
	if err != nil || empty {
		return err
	}
	if err := c.parseRValue(); err != nil {
		return err
	}
	c.emit(op.Drop)
	_, err = c.require(term)
	return err
}

// parseTest compiles the optional condition of a for statement.
func (c *Compiler) parseTest() (bool, error) {
	empty, err := c.accept(token.SEMICOLON)
	if err != nil || empty {
		return false, err
	}
	if err := c.parseRValue(); err != nil {
		return false, err
	}
	_, err = c.require(token.SEMICOLON)
	return true, err
}

func (c *Compiler) finishFor(b *block) {
	c.emitBranchTo(op.Br, b.top)
	c.resolve(&b.end, c.here())
	c.popBlock()
}

func (c *Compiler) parseBreakOrContinue(tok token.Token) error {
	b := c.blocks.innermostLoop()
	if b == nil {
		if tok.Type == token.BREAK {
			return c.fail(errors.Semanticf(errors.E2003, "'break' not allowed outside of a loop"))
		}
		return c.fail(errors.Semanticf(errors.E2004, "'continue' not allowed outside of a loop"))
	}
	switch {
	case tok.Type == token.BREAK:
		c.emitBranch(op.Br, &b.end)
	case b.contDefined:
		c.emitBranchTo(op.Br, b.contAddr)
	default:
		c.emitBranch(op.Br, &b.cont)
	}
	_, err := c.require(token.SEMICOLON)
	return err
}

// parseCondition compiles a parenthesized expression.
func (c *Compiler) parseCondition() error {
	if _, err := c.require(token.LPAREN); err != nil {
		return err
	}
	if err := c.parseRValue(); err != nil {
		return err
	}
	_, err := c.require(token.RPAREN)
	return err
}
