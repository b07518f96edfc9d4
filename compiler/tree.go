package compiler

import (
	"github.com/dbasic-io/dbasic/errors"
	"github.com/dbasic-io/dbasic/image"
	"github.com/dbasic-io/dbasic/internal/token"
	"github.com/dbasic-io/dbasic/memory"
	"github.com/dbasic-io/dbasic/op"
	"github.com/dbasic-io/dbasic/symbol"
)

type nodeKind int

const (
	nodeSymbolRef nodeKind = iota
	nodeStringLit
	nodeIntegerLit
	nodeFunctionLit
	nodeUnaryOp
	nodeBinaryOp
	nodeAssignment
	nodeIncrement
	nodeArrayRef
	nodeCall
	nodeDisjunction
	nodeConjunction
)

// Bytes charged to the scratch heap per node and per list entry.
const (
	nodeSize      = 16
	listEntrySize = 8
)

// node is one expression tree node. Children are handles into the unit's
// node slab.
type node struct {
	kind nodeKind
	pos  token.Position

	sym   *symbol.Symbol // nodeSymbolRef
	str   *image.String  // nodeStringLit
	value int32          // integer and function literals, increment amount
	op    op.Code        // unary, binary and compound assignment operator
	post  bool           // post increment

	left  memory.Handle
	right memory.Handle
	exprs []memory.Handle // call arguments, short circuit operands
}

// compound reports whether an assignment node applies an operator.
func (n *node) compound() bool {
	return n.op != op.Halt
}

func (c *Compiler) newNode(n node) (memory.Handle, error) {
	size := nodeSize + listEntrySize*len(n.exprs)
	h, err := c.nodes.New(n, size)
	if err != nil {
		return memory.Nil, c.failAt(n.pos, errors.OutOfMemory("heap"))
	}
	return h, nil
}

func (c *Compiler) node(h memory.Handle) *node {
	return c.nodes.Get(h)
}

func (c *Compiler) integerLit(pos token.Position, value int32) (memory.Handle, error) {
	return c.newNode(node{kind: nodeIntegerLit, pos: pos, value: value})
}

// isIntegerLit returns the value of an integer literal node.
func (c *Compiler) isIntegerLit(h memory.Handle) (int32, bool) {
	n := c.node(h)
	if n.kind != nodeIntegerLit {
		return 0, false
	}
	return n.value, true
}

// unaryOp builds a unary operator node, folding literal operands.
func (c *Compiler) unaryOp(pos token.Position, code op.Code, expr memory.Handle) (memory.Handle, error) {
	if v, ok := c.isIntegerLit(expr); ok {
		if folded, ok := op.EvalUnary(code, v); ok {
			return c.integerLit(pos, folded)
		}
	}
	return c.newNode(node{kind: nodeUnaryOp, pos: pos, op: code, left: expr, right: memory.Nil})
}

// binaryOp builds a binary operator node, folding literal operands except for
// division by zero, which is left for run time.
func (c *Compiler) binaryOp(pos token.Position, code op.Code, left, right memory.Handle) (memory.Handle, error) {
	if a, ok := c.isIntegerLit(left); ok {
		if b, ok := c.isIntegerLit(right); ok {
			if folded, ok := op.EvalBinary(code, a, b); ok {
				return c.integerLit(pos, folded)
			}
		}
	}
	return c.newNode(node{kind: nodeBinaryOp, pos: pos, op: code, left: left, right: right})
}
