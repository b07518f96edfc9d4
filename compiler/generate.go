package compiler

import (
	"fmt"
	"math"

	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

// fixups is a list of unit offsets of branch operands waiting for a target.
type fixups []int

// here returns the unit offset of the next instruction.
func (c *Compiler) here() int {
	return c.img.CodeAddr()
}

// emit appends one instruction and returns its unit offset. Running out of
// image space records a failure and suppresses further output.
func (c *Compiler) emit(code op.Code, operands ...int32) int {
	pos := c.here()
	if c.failure != nil {
		return pos
	}
	info := op.GetInfo(code)
	want := 0
	if info.Format != op.FmtNone {
		want = 1
	}
	if len(operands) != want {
		panic(fmt.Sprintf("compiler: %s takes %d operands, got %d", info.Name, want, len(operands)))
	}
	if c.img.Free() < info.Size() {
		c.failure = c.fail(errors.OutOfMemory("image"))
		return pos
	}
	// Space was checked above, so the emits cannot fail.
	c.img.EmitByte(byte(code))
	switch info.Format {
	case op.FmtByte, op.FmtSByte:
		c.img.EmitByte(byte(operands[0]))
	case op.FmtWord:
		c.img.EmitWord(int16(operands[0]))
	case op.FmtLong:
		c.img.EmitLong(operands[0])
	}
	return pos
}

// emitLiteral pushes v using the short form when it fits in a signed byte.
func (c *Compiler) emitLiteral(v int32) {
	if v >= math.MinInt8 && v <= math.MaxInt8 {
		c.emit(op.SLit, v)
	} else {
		c.emit(op.Lit, v)
	}
}

// emitBranch emits a forward branch and adds its operand to chain.
func (c *Compiler) emitBranch(code op.Code, chain *fixups) {
	pos := c.emit(code, 0)
	if c.failure == nil {
		*chain = append(*chain, pos+1)
	}
}

// emitBranchTo emits a branch to a known unit offset.
func (c *Compiler) emitBranchTo(code op.Code, target int) {
	pos := c.here()
	c.emit(code, c.branchOffset(pos+1, target))
}

// branchOffset returns the relative offset stored in the operand at off for
// a branch to target, counted from the byte after the operand.
func (c *Compiler) branchOffset(off, target int) int32 {
	delta := target - (off + op.WordSize)
	if delta < math.MinInt16 || delta > math.MaxInt16 {
		if c.failure == nil {
			c.failure = c.fail(errors.Resourcef(errors.E4004, "branch out of range"))
		}
		return 0
	}
	return int32(delta)
}

// resolve patches every operand in chain to branch to target and empties it.
func (c *Compiler) resolve(chain *fixups, target int) {
	if c.failure == nil {
		for _, off := range *chain {
			c.img.PatchWord(off, int16(c.branchOffset(off, target)))
		}
	}
	*chain = nil
}

// codeRvalue generates code leaving the value of the expression on the stack.
func (c *Compiler) codeRvalue(h memory.Handle) error {
	pv, err := c.codeExpr(h)
	if err != nil {
		return err
	}
	c.load(pv)
	return nil
}

// codeLvalue generates code for an expression that must denote storage.
func (c *Compiler) codeLvalue(h memory.Handle) (pval, error) {
	pv, err := c.codeExpr(h)
	if err != nil {
		return pv, err
	}
	return pv, c.requireLvalue(pv, c.node(h).pos)
}

func (c *Compiler) codeExpr(h memory.Handle) (pval, error) {
	n := c.node(h)
	switch n.kind {
	case nodeSymbolRef:
		return c.codeSymbolRef(n.sym), nil
	case nodeStringLit:
		c.emit(op.Lit, int32(n.str.Addr))
		return rvalueOnly, nil
	case nodeIntegerLit:
		c.emitLiteral(n.value)
		return rvalueOnly, nil
	case nodeFunctionLit:
		c.emit(op.Lit, n.value)
		return rvalueOnly, nil
	case nodeUnaryOp:
		if err := c.codeRvalue(n.left); err != nil {
			return rvalueOnly, err
		}
		c.emit(n.op)
		return rvalueOnly, nil
	case nodeBinaryOp:
		if err := c.codeRvalue(n.left); err != nil {
			return rvalueOnly, err
		}
		if err := c.codeRvalue(n.right); err != nil {
			return rvalueOnly, err
		}
		c.emit(n.op)
		return rvalueOnly, nil
	case nodeAssignment:
		return rvalueOnly, c.codeAssignment(n)
	case nodeIncrement:
		return rvalueOnly, c.codeIncrement(n)
	case nodeArrayRef:
		if err := c.codeRvalue(n.left); err != nil {
			return rvalueOnly, err
		}
		if err := c.codeRvalue(n.right); err != nil {
			return rvalueOnly, err
		}
		c.emit(op.Index)
		return pval{access: accessIndexed}, nil
	case nodeCall:
		return rvalueOnly, c.codeCall(n)
	case nodeDisjunction:
		return rvalueOnly, c.codeShortCircuit(op.BrTSC, n)
	case nodeConjunction:
		return rvalueOnly, c.codeShortCircuit(op.BrFSC, n)
	}
	panic(fmt.Sprintf("compiler: unknown node kind %d", n.kind))
}

func (c *Compiler) codeSymbolRef(sym *symbol.Symbol) pval {
	switch sym.Class {
	case symbol.Argument, symbol.Local:
		return pval{access: accessLocal, slot: int(sym.Value)}
	default:
		// Variables hold their cell address and registers their own address.
		c.emit(op.Lit, sym.Value)
		return pval{access: accessGlobal}
	}
}

func (c *Compiler) codeAssignment(n *node) error {
	pv, err := c.codeLvalue(n.left)
	if err != nil {
		return err
	}
	if n.compound() {
		c.dupAddress(pv)
		c.load(pv)
	}
	if err := c.codeRvalue(n.right); err != nil {
		return err
	}
	if n.compound() {
		c.emit(n.op)
	}
	c.store(pv)
	return nil
}

func (c *Compiler) codeIncrement(n *node) error {
	pv, err := c.codeLvalue(n.left)
	if err != nil {
		return err
	}
	c.dupAddress(pv)
	c.load(pv)
	if n.post {
		c.keepLoaded(pv)
	}
	c.emit(op.SLit, n.value)
	c.emit(op.Add)
	c.store(pv)
	if n.post {
		c.emit(op.Drop)
	}
	return nil
}

func (c *Compiler) codeCall(n *node) error {
	for _, arg := range n.exprs {
		if err := c.codeRvalue(arg); err != nil {
			return err
		}
	}
	if err := c.codeRvalue(n.left); err != nil {
		return err
	}
	c.emit(op.Call, int32(len(n.exprs)))
	return nil
}

// codeShortCircuit compiles a chain of && or || operands sharing one exit.
func (c *Compiler) codeShortCircuit(code op.Code, n *node) error {
	if err := c.codeRvalue(n.exprs[0]); err != nil {
		return err
	}
	var end fixups
	for _, expr := range n.exprs[1:] {
		c.emitBranch(code, &end)
		if err := c.codeRvalue(expr); err != nil {
			return err
		}
	}
	c.resolve(&end, c.here())
	return nil
}
